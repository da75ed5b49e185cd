package exclude

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, []string{"node_modules", "*.pyc", "venv"}, Parse(" node_modules, *.pyc ,,venv, "))
	assert.Nil(t, Parse(""))
	assert.Nil(t, Parse(" , ,"))
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{"no patterns", "/proj/src", nil, false},
		{"exact segment", "/proj/node_modules", []string{"node_modules"}, true},
		{"segment deeper in path", "/proj/node_modules/lodash/index.js", []string{"node_modules"}, true},
		{"glob on base name", "/proj/app.pyc", []string{"*.pyc"}, true},
		{"glob on segment", "/proj/build-cache/out.o", []string{"build-*"}, true},
		{"glob miss", "/proj/app.py", []string{"*.pyc"}, false},
		{"substring of full path", "/proj/my.cache.d/x", []string{".cache"}, true},
		{"case sensitive", "/proj/Node_Modules", []string{"node_modules"}, false},
		{"unrelated", "/proj/src/main.go", []string{"node_modules", "*.pyc"}, false},
		{"empty pattern ignored", "/proj/src", []string{""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.path, tt.patterns))
		})
	}
}

func TestMatchesUnder(t *testing.T) {
	const root = "/home/u/build/proj"
	tests := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{"ancestor segment ignored", root + "/src/main.go", []string{"build"}, false},
		{"ancestor substring ignored", root + "/src/main.go", []string{"u/build"}, false},
		{"segment below root", root + "/build/out.o", []string{"build"}, true},
		{"relative substring", root + "/src/gen/x.go", []string{"src/gen"}, true},
		{"glob on base name", root + "/app.pyc", []string{"*.pyc"}, true},
		{"root itself", root, []string{"build"}, true},
		{"outside root", "/elsewhere/build/x", []string{"build"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesUnder(root, tt.path, tt.patterns))
		})
	}
	assert.True(t, MatchesUnder("", root+"/src", []string{"build"}), "no root means the full path")
}

func TestMatcher(t *testing.T) {
	var nilMatcher *Matcher
	assert.False(t, nilMatcher.Match("/anything"))
	assert.True(t, nilMatcher.Empty())

	m := FromCSV("node_modules,*.log")
	assert.False(t, m.Empty())
	assert.True(t, m.Match("/srv/app/debug.log"))
	assert.False(t, m.Match("/srv/app/main.go"))

	p := m.Patterns()
	p[0] = "mutated"
	assert.Equal(t, []string{"node_modules", "*.log"}, m.Patterns(), "Patterns must return a copy")
}
