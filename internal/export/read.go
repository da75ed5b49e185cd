// Package export reads selected files as text and bundles them into zip
// archives.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
)

const (
	// MaxConcurrentReads bounds parallel file reads per request
	MaxConcurrentReads = 8
	// MaxFileSize is the largest file ReadFiles will return
	MaxFileSize = 16 << 20
)

var (
	// ErrNotFile is reported for directories and special files
	ErrNotFile = errors.New("not a regular file")
	// ErrTooLarge is reported for files above MaxFileSize
	ErrTooLarge = errors.New("file too large")
)

// Resolver maps a requested path to the absolute path to open. It rejects
// paths the caller may not read.
type Resolver func(path string) (string, error)

// ReadFiles reads each path as text. Results keep the request order and
// carry a per-file error instead of failing the whole call; the returned
// error is only set when ctx is done.
func ReadFiles(ctx context.Context, paths []string, resolve Resolver) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentReads)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = readOne(p, resolve)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FileResult is the outcome for one requested path
type FileResult struct {
	Path    string
	Content string
	Err     error
}

func readOne(path string, resolve Resolver) FileResult {
	res := FileResult{Path: path}
	abs := path
	if resolve != nil {
		var err error
		if abs, err = resolve(path); err != nil {
			res.Err = err
			return res
		}
	}

	f, err := os.Open(abs)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		res.Err = err
		return res
	}
	if !info.Mode().IsRegular() {
		res.Err = fmt.Errorf("%s: %w", abs, ErrNotFile)
		return res
	}
	if info.Size() > MaxFileSize {
		res.Err = fmt.Errorf("%s: %w", abs, ErrTooLarge)
		return res
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		res.Err = err
		return res
	}
	res.Content, res.Err = Decode(data)
	return res
}

// Decode returns data as UTF-8 text, reinterpreting it as Latin-1 when it
// is not valid UTF-8.
func Decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode as latin-1: %w", err)
	}
	return string(out), nil
}

// Message renders a read error the way clients display it
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied"
	case errors.Is(err, fs.ErrNotExist):
		return "Not found"
	case errors.Is(err, ErrNotFile):
		return "Not a file"
	default:
		return err.Error()
	}
}
