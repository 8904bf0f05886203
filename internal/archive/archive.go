package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned when a file does not look like an archive the
// pipeline can extract.
var ErrUnsupported = errors.New("unsupported archive format")

// Kind names a supported archive container.
type Kind string

const (
	KindTar Kind = "tar"
	KindZip Kind = "zip"
)

// Detect classifies a file path by extension. Returns ErrUnsupported for
// anything that is not a tar, tar.gz, tgz or zip archive.
func Detect(path string) (Kind, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTar, nil
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
}

// Extract unpacks an archive into destDir, which must already exist.
// Entries resolving outside destDir are rejected.
func Extract(src, destDir string) error {
	kind, err := Detect(src)
	if err != nil {
		return err
	}
	switch kind {
	case KindTar:
		return extractTar(src, destDir)
	case KindZip:
		return extractZip(src, destDir)
	default:
		return ErrUnsupported
	}
}

func extractTar(src, destDir string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	lower := strings.ToLower(src)
	if strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".tgz") {
		gz, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return fmt.Errorf("open gzip stream: %w", gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	for {
		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("read archive entry: %w", nextErr)
		}

		target, resolveErr := securePath(destDir, header.Name)
		if resolveErr != nil {
			return resolveErr
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
				return fmt.Errorf("create directory: %w", mkErr)
			}
		case tar.TypeReg:
			if writeErr := writeEntry(target, tr, header.FileInfo().Mode()); writeErr != nil {
				return writeErr
			}
		default:
			// Symlinks and devices are not part of a media package.
			continue
		}
	}
}

func extractZip(src, destDir string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, resolveErr := securePath(destDir, file.Name)
		if resolveErr != nil {
			return resolveErr
		}

		if file.FileInfo().IsDir() {
			if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
				return fmt.Errorf("create directory: %w", mkErr)
			}
			continue
		}

		entry, openErr := file.Open()
		if openErr != nil {
			return fmt.Errorf("open archive entry: %w", openErr)
		}
		writeErr := writeEntry(target, entry, file.Mode())
		entry.Close()
		if writeErr != nil {
			return writeErr
		}
	}
	return nil
}

// securePath joins an archive entry name onto destDir and rejects names
// that escape it.
func securePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("archive entry %q has an absolute path", name)
	}
	target := filepath.Join(destDir, cleaned)
	relative, err := filepath.Rel(destDir, target)
	if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}
	return target, nil
}

func writeEntry(target string, source io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o400)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, source); err != nil {
		out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("write file: %w", err)
	}
	return out.Close()
}
