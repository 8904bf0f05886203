package platform

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"packflow/internal/fileutil"
)

// LocalProvider serves media straight from the public directory instead of
// a remote hosting service. It doubles as the reference Provider
// implementation for tests.
type LocalProvider struct {
	name      string
	publicDir string
	baseURL   string
}

// NewLocalProvider builds a provider that copies uploads into
// publicDir/media and answers with URLs below baseURL.
func NewLocalProvider(name, publicDir, baseURL string) *LocalProvider {
	if baseURL == "" {
		baseURL = "/media"
	}
	return &LocalProvider{name: name, publicDir: publicDir, baseURL: baseURL}
}

// Name returns the platform type identifier.
func (p *LocalProvider) Name() string {
	return p.name
}

// Upload copies the media file into the public directory under a generated
// id and returns the id with its playback URL.
func (p *LocalProvider) Upload(ctx context.Context, filePath string) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	mediaID := uuid.NewString()
	targetDir := filepath.Join(p.publicDir, "media")
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("create media directory: %w", err)
	}

	target := filepath.Join(targetDir, mediaID+filepath.Ext(filePath))
	if err := fileutil.CopyFileVerified(filePath, target); err != nil {
		return UploadResult{}, fmt.Errorf("store media file: %w", err)
	}
	return UploadResult{
		MediaID: mediaID,
		Link:    path.Join(p.baseURL, filepath.Base(target)),
	}, nil
}

// Update writes a metadata sidecar next to each stored media file. A local
// deployment has no remote catalog to synchronize, so the sidecar is the
// synchronization artifact.
func (p *LocalProvider) Update(ctx context.Context, mediaIDs []string, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	targetDir := filepath.Join(p.publicDir, "media")
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}
	payload := fmt.Sprintf("title=%s\ndate=%s\nduration=%d\nthumbnail=%s\n",
		meta.Title, meta.Date, meta.Duration, meta.Thumbnail)
	for _, mediaID := range mediaIDs {
		sidecar := filepath.Join(targetDir, mediaID+".meta")
		if err := os.WriteFile(sidecar, []byte(payload), 0o644); err != nil {
			return fmt.Errorf("write metadata sidecar: %w", err)
		}
	}
	return nil
}
