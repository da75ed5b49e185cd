// Package listing reads one directory level at a time.
package listing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aaricantto/GraphFS/internal/exclude"
	"github.com/aaricantto/GraphFS/internal/metrics"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/aaricantto/GraphFS/internal/utils"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the directory vanished or is not a directory.
	ErrNotFound = errors.New("not found")
	// ErrPermission means the directory exists but cannot be read.
	ErrPermission = errors.New("permission denied")
	// ErrOutsideRoot means a path is not inside any active root.
	ErrOutsideRoot = errors.New("path is outside the active roots")
)

// Service lists directories
type Service struct {
	log *zap.Logger
}

// NewService creates a new listing service
func NewService(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log}
}

// List returns the immediate children of dirPath that survive the exclude
// patterns, folders first, then by name. It performs a single
// non-recursive read. Patterns are matched relative to dirPath.
func (s *Service) List(dirPath string, patterns []string) ([]types.Entry, error) {
	return s.ListUnder(dirPath, dirPath, patterns)
}

// ListUnder is List with patterns matched against paths relative to root,
// so the directories above root cannot exclude anything.
func (s *Service) ListUnder(root, dirPath string, patterns []string) ([]types.Entry, error) {
	start := time.Now()
	dirPath = utils.Canonical(dirPath)
	root = utils.Canonical(root)

	entries, err := readDir(dirPath)
	if err != nil {
		metrics.ObserveListing(time.Since(start), statusOf(err))
		s.log.Debug("listing failed", zap.String("path", dirPath), zap.Error(err))
		return nil, err
	}

	children := make([]types.Entry, 0, len(entries))
	for _, de := range entries {
		child := filepath.Join(dirPath, de.Name())
		if exclude.MatchesUnder(root, child, patterns) {
			continue
		}
		kind := types.KindFile
		if de.IsDir() {
			kind = types.KindFolder
		}
		children = append(children, types.Entry{
			Name: de.Name(),
			Path: utils.Canonical(child),
			Kind: kind,
		})
	}
	Sort(children)

	metrics.ObserveListing(time.Since(start), "ok")
	s.log.Debug("listing served",
		zap.String("path", dirPath),
		zap.Int("count", len(children)),
		zap.Int("excluded", len(entries)-len(children)),
	)
	return children, nil
}

// Sort orders entries folders-before-files, then case-insensitively by
// name with the exact name as tie-breaker.
func Sort(entries []types.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return types.EntryLess(entries[i], entries[j])
	})
}

func readDir(dirPath string) ([]fs.DirEntry, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, classify(dirPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dirPath, ErrNotFound)
	}
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, classify(dirPath, err)
	}
	return entries, nil
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to list %s: %w", path, ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("failed to list %s: %w", path, ErrPermission)
	default:
		return fmt.Errorf("failed to list %s: %w", path, err)
	}
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return types.CodeNotFound
	case errors.Is(err, ErrPermission):
		return types.CodePermissionDenied
	default:
		return "error"
	}
}

// Code maps a listing or resolution error to its wire code
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return types.CodeNotFound
	case errors.Is(err, ErrPermission):
		return types.CodePermissionDenied
	case errors.Is(err, ErrOutsideRoot):
		return types.CodeOutsideRoot
	default:
		return types.CodeInternal
	}
}
