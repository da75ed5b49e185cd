// Package lasso turns a rectangular multi-pick into selection toggles and
// a conflict-free batch of expand and collapse operations.
package lasso

import (
	"sort"

	"github.com/aaricantto/GraphFS/internal/graph"
	"github.com/aaricantto/GraphFS/internal/utils"
)

// Plan is the resolved form of one lasso gesture
type Plan struct {
	// ToggleFiles are captured files, in capture order.
	ToggleFiles []string `json:"toggle"`
	// Collapse are open folders, deepest first.
	Collapse []string `json:"collapse"`
	// Expand are closed folders, shallowest first.
	Expand []string `json:"expand"`
}

// Empty reports whether the plan does nothing
func (p Plan) Empty() bool {
	return len(p.ToggleFiles) == 0 && len(p.Collapse) == 0 && len(p.Expand) == 0
}

// Reader is the part of graph.State the resolver needs
type Reader interface {
	Node(path string) (graph.Node, bool)
}

// Resolve builds a plan from the captured paths. Unknown paths are
// ignored. A captured folder below another captured folder is dropped so
// each subtree gets exactly one instruction.
func Resolve(state Reader, captured []string) Plan {
	var plan Plan
	seen := make(map[string]bool, len(captured))
	var folders []graph.Node

	for _, raw := range captured {
		path := utils.Canonical(raw)
		if seen[path] {
			continue
		}
		seen[path] = true
		n, ok := state.Node(path)
		if !ok {
			continue
		}
		if n.IsFolder() {
			folders = append(folders, n)
		} else {
			plan.ToggleFiles = append(plan.ToggleFiles, n.Path)
		}
	}

	for _, f := range topLevel(folders) {
		if f.IsOpen {
			plan.Collapse = append(plan.Collapse, f.Path)
		} else {
			plan.Expand = append(plan.Expand, f.Path)
		}
	}
	depth := make(map[string]int, len(folders))
	for _, f := range folders {
		depth[f.Path] = f.Depth
	}
	sort.SliceStable(plan.Collapse, func(i, j int) bool {
		return depth[plan.Collapse[i]] > depth[plan.Collapse[j]]
	})
	sort.SliceStable(plan.Expand, func(i, j int) bool {
		return depth[plan.Expand[i]] < depth[plan.Expand[j]]
	})
	return plan
}

// topLevel drops every folder that has a captured path-ancestor
func topLevel(folders []graph.Node) []graph.Node {
	out := make([]graph.Node, 0, len(folders))
	for _, f := range folders {
		covered := false
		for _, other := range folders {
			if utils.IsAncestor(other.Path, f.Path) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, f)
		}
	}
	return out
}

// Apply runs the plan against state: toggles, then collapses, then
// expansions. A path that vanished before its turn is skipped. It returns
// the number of operations performed.
func Apply(state *graph.State, plan Plan) int {
	done := 0
	for _, p := range plan.ToggleFiles {
		if _, err := state.ToggleSelect(p); err == nil {
			done++
		}
	}
	for _, p := range plan.Collapse {
		if _, ok := state.Node(p); !ok {
			continue
		}
		if err := state.Collapse(p); err == nil {
			done++
		}
	}
	for _, p := range plan.Expand {
		if _, ok := state.Node(p); !ok {
			continue
		}
		if err := state.Expand(p); err == nil {
			done++
		}
	}
	return done
}
