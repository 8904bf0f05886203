package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"packflow/internal/catalog"
)

// UploadResult carries the identifiers a hosting platform assigns to an
// uploaded media file.
type UploadResult struct {
	MediaID string
	Link    string
}

// Metadata is the subset of package fields pushed to a hosting platform
// during synchronization.
type Metadata struct {
	Title     string
	Date      string
	Duration  int64
	Thumbnail string
}

// Provider abstracts a remote video hosting service.
type Provider interface {
	// Name returns the platform type identifier this provider serves.
	Name() string
	// Upload pushes the media file and returns its remote identifiers.
	Upload(ctx context.Context, filePath string) (UploadResult, error)
	// Update pushes current package metadata to every remote media id.
	Update(ctx context.Context, mediaIDs []string, meta Metadata) error
}

// Registry resolves providers by platform type.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry builds an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider for its platform type.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(provider.Name())] = provider
}

// Resolve returns the provider registered for the given platform type.
func (r *Registry) Resolve(platformType string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[strings.ToLower(strings.TrimSpace(platformType))]
	if !ok {
		return nil, fmt.Errorf("no provider registered for platform type %q", platformType)
	}
	return provider, nil
}

// Names returns the registered platform types in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetadataFromPackage projects the package fields a platform update needs.
func MetadataFromPackage(pkg *catalog.Package) Metadata {
	meta := Metadata{
		Title:     pkg.Title,
		Thumbnail: pkg.Thumbnail,
	}
	if !pkg.Date.IsZero() {
		meta.Date = pkg.Date.UTC().Format("2006-01-02T15:04:05Z")
	}
	if pkg.Metadata != nil {
		meta.Duration = pkg.Metadata.Duration
	}
	return meta
}
