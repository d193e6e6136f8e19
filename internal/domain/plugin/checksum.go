package plugin

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumPrefix tags digests with the algorithm that produced them.
const ChecksumPrefix = "sha256:"

// TreeChecksum computes an algorithm-tagged SHA256 digest over every regular
// file under root, in lexical walk order so the result is deterministic.
// Version-control metadata is excluded.
func TreeChecksum(root string) (string, error) {
	hasher := sha256.New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		if _, err := io.Copy(hasher, f); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", root, err)
	}

	return ChecksumPrefix + hex.EncodeToString(hasher.Sum(nil)), nil
}

// FileChecksum computes the algorithm-tagged SHA256 digest of a single file.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return ChecksumPrefix + hex.EncodeToString(hasher.Sum(nil)), nil
}

// ReceiptChecksum extracts the first sha256 entry from a distribution
// install-receipt (RECORD-style lines of "path,sha256=...,size").
// Returns an empty string when the receipt carries no usable digest.
func ReceiptChecksum(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), ",")
		if len(parts) < 2 {
			continue
		}
		if strings.HasPrefix(parts[1], "sha256=") {
			return ChecksumPrefix + strings.TrimPrefix(parts[1], "sha256=")
		}
	}
	return ""
}
