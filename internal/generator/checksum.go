package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Checksum returns the hex SHA256 of data
func Checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ChecksumFile hashes the file at path
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify re-hashes every file in m and reports the first mismatch
func Verify(m *Manifest) error {
	for _, rel := range m.FilePaths() {
		got, err := ChecksumFile(m.Abs(rel))
		if err != nil {
			return err
		}
		if got != m.Files[rel] {
			return fmt.Errorf("checksum mismatch for %s", rel)
		}
	}
	return nil
}
