// Package fileutil holds the file plumbing shared by the ingest, publish
// and platform layers: existence checks, extension-filtered directory
// scans, and the copy helpers that move package artifacts between the hot
// folder, the working area and the public directory.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Exists reports whether a path is present, following symlinks.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ScanByExtensions walks dir recursively and returns the files whose
// extension matches one of the given extensions (leading dot optional,
// case-insensitive), sorted by path. The slide-image publisher uses this
// against the per-package working directory.
func ScanByExtensions(dir string, extensions []string) ([]string, error) {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	var matches []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if _, ok := allowed[ext]; ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// CopyFile streams src into dst, truncating any previous content. A failed
// copy removes the partial target. Used for publishing artifacts whose
// loss is recoverable (the pipeline re-publishes on retry).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("flush target: %w", err)
	}
	return nil
}

// CopyFileVerified copies src into dst and verifies the written file
// against the source size and digest before reporting success. Package
// files cross the hot-folder and platform boundaries through this helper
// so a truncated or corrupted deposit never enters the pipeline silently.
// Any verification failure removes dst.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	sourceSum, written, err := copyWithDigest(src, dst)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("short copy: wrote %d of %d bytes", written, info.Size())
	}

	targetSum, err := digestFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("verify target: %w", err)
	}
	if !bytes.Equal(sourceSum, targetSum) {
		_ = os.Remove(dst)
		return errors.New("copy verification failed: digest mismatch")
	}
	return nil
}

// copyWithDigest streams src into dst and returns the digest and byte
// count of what was read from the source.
func copyWithDigest(src, dst string) ([]byte, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, 0, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, 0, fmt.Errorf("create target: %w", err)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, hasher), in)
	if err != nil {
		out.Close()
		return nil, 0, fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, 0, fmt.Errorf("flush target: %w", err)
	}
	return hasher.Sum(nil), written, nil
}

// digestFile re-reads a freshly written file and returns its digest.
func digestFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return nil, err
	}
	return hasher.Sum(nil), nil
}
