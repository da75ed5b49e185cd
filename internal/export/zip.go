package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ArchiveName returns the download name of an archive built at t
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("graphfs-%d.zip", t.Unix())
}

// ZipFiles writes a deflated archive of the given files to w, storing each
// under its base name. Paths that cannot be resolved or are not regular
// files are skipped. It returns how many files were written.
func ZipFiles(ctx context.Context, w io.Writer, paths []string, resolve Resolver) (int, error) {
	zw := zip.NewWriter(w)
	used := make(map[string]int, len(paths))
	written := 0

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return written, err
		}
		abs := p
		if resolve != nil {
			var err error
			if abs, err = resolve(p); err != nil {
				continue
			}
		}
		ok, err := addFile(zw, abs, uniqueName(used, filepath.Base(abs)))
		if err != nil {
			zw.Close()
			return written, fmt.Errorf("failed to add %s to archive: %w", abs, err)
		}
		if ok {
			written++
		}
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %w", err)
	}
	return written, nil
}

// addFile copies one file into the archive. It reports false without an
// error when the file is unreadable and was skipped.
func addFile(zw *zip.Writer, abs, name string) (bool, error) {
	f, err := os.Open(abs)
	if err != nil {
		return false, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false, nil
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, nil
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(dst, f); err != nil {
		return false, err
	}
	return true, nil
}

// uniqueName returns name, or "stem (n).ext" when name was already used
func uniqueName(used map[string]int, name string) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := fmt.Sprintf("%s (%d)%s", stem, n+1, ext)
	for used[candidate] > 0 {
		n++
		candidate = fmt.Sprintf("%s (%d)%s", stem, n+1, ext)
	}
	used[candidate] = 1
	return candidate
}
