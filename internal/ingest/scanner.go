package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/config"
	"packflow/internal/logging"
	"packflow/internal/pack"
)

// Candidate is a hot-folder file ready to enter the pipeline.
type Candidate struct {
	Package *catalog.Package
	Kind    string
}

type snapshot struct {
	size    int64
	modTime time.Time
}

// Scanner watches the incoming directory for deposited package files. A
// file is only ingested once its size and modification time have been
// stable across two scans, so a file still being written is left alone.
type Scanner struct {
	store   *catalog.Store
	cfg     *config.Config
	logger  *slog.Logger
	pending map[string]snapshot
}

// NewScanner builds a scanner over the configured incoming directory.
func NewScanner(store *catalog.Store, cfg *config.Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]snapshot),
	}
}

// Scan walks the incoming directory once and returns the new package
// candidates. Unsupported files are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	entries, err := os.ReadDir(s.cfg.Paths.IncomingDir)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		seen[name] = struct{}{}

		kind, kindErr := pack.KindFor(name)
		if kindErr != nil {
			s.logger.Debug("ignoring unsupported file", logging.String("file", name))
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		current := snapshot{size: info.Size(), modTime: info.ModTime()}
		previous, tracked := s.pending[name]
		if !tracked || previous != current {
			// Still settling; pick it up on a later scan.
			s.pending[name] = current
			continue
		}

		path := filepath.Join(s.cfg.Paths.IncomingDir, name)
		exists, existsErr := s.store.HasPackageForPath(ctx, path)
		if existsErr != nil {
			return nil, existsErr
		}
		if exists {
			continue
		}

		candidates = append(candidates, Candidate{
			Kind: kind,
			Package: &catalog.Package{
				OriginalFileName:    name,
				OriginalPackagePath: path,
				PackageType:         packageSuffix(name),
				Type:                s.cfg.Workflow.DefaultPlatform,
				Title:               pack.DefaultTitle(name),
			},
		})
		delete(s.pending, name)
	}

	// Forget files that disappeared between scans.
	for name := range s.pending {
		if _, ok := seen[name]; !ok {
			delete(s.pending, name)
		}
	}
	return candidates, nil
}

// packageSuffix keeps the full archive suffix so compressed tarballs stay
// recognizable after the copy renames the file.
func packageSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".tar.gz", ".tgz", ".tar", ".zip", ".mp4"} {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimPrefix(suffix, ".")
		}
	}
	ext := filepath.Ext(lower)
	return strings.TrimPrefix(ext, ".")
}
