package pack

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"packflow/internal/archive"
	"packflow/internal/catalog"
	"packflow/internal/fileutil"
	"packflow/internal/logging"
	"packflow/internal/poi"
	"packflow/internal/services"
	"packflow/internal/sprites"
)

// extractPackage unpacks the copied archive into the working directory.
func (w *Worker) extractPackage(ctx context.Context, pkg *catalog.Package) error {
	archivePath, err := w.mediaFilePath(pkg)
	if err != nil {
		return err
	}
	if err := archive.Extract(archivePath, w.workDir(pkg)); err != nil {
		return services.Wrap(services.CodeExtract, "extract package archive", err)
	}
	return nil
}

// validatePackage reads the metadata descriptor from the extracted
// directory, requires it to name an existing media file, and merges it
// onto the package. Date and title are updated opportunistically; the
// title only when the operator never customized it.
func (w *Worker) validatePackage(ctx context.Context, pkg *catalog.Package) error {
	if pkg.Metadata != nil && len(pkg.Metadata.Indexes) > 0 && pkg.Metadata.Filename != "" {
		return nil
	}

	workDir := w.workDir(pkg)
	descriptorPath := filepath.Join(workDir, w.cfg.Points.MetadataFileName)
	raw, err := os.ReadFile(descriptorPath)
	if err != nil {
		return services.Wrap(services.CodeValidation, "read metadata descriptor", err)
	}
	var descriptor catalog.Metadata
	if err := json.Unmarshal(raw, &descriptor); err != nil {
		return services.Wrap(services.CodeValidation, "parse metadata descriptor", err)
	}
	if descriptor.Filename == "" {
		return services.Wrap(services.CodeValidation, "metadata descriptor names no media file", nil)
	}
	if !fileutil.Exists(filepath.Join(workDir, descriptor.Filename)) {
		return services.Wrap(services.CodeValidation, "media file named by descriptor is missing", nil)
	}

	merged := mergeMetadata(pkg.Metadata, &descriptor)
	if err := w.store.UpdateMetadata(ctx, pkg.ID, merged); err != nil {
		return services.Wrap(services.CodeValidation, "record merged metadata", err)
	}
	pkg.Metadata = merged

	if descriptor.Date > 0 {
		date := time.UnixMilli(descriptor.Date).UTC()
		if err := w.store.UpdateDate(ctx, pkg.ID, date); err != nil {
			return services.Wrap(services.CodeValidation, "record package date", err)
		}
		pkg.Date = date
	}
	if descriptor.Title != "" && titleIsDefault(pkg) {
		if err := w.store.UpdateTitle(ctx, pkg.ID, descriptor.Title); err != nil {
			return services.Wrap(services.CodeValidation, "record package title", err)
		}
		pkg.Title = descriptor.Title
	}
	return nil
}

// savePointsOfInterest turns the package markers into published artifacts:
// sprite sheets plus timecodes for image markers, point-of-interest rows
// for tag markers. Every failure in the chain carries the same coarse
// classification.
func (w *Worker) savePointsOfInterest(ctx context.Context, pkg *catalog.Package) error {
	workDir := w.workDir(pkg)
	markers, err := poi.Markers(pkg.Metadata, workDir)
	if err != nil {
		return services.Wrap(services.CodeSavePoints, "acquire markers", err)
	}
	if len(markers) == 0 {
		if err := w.store.UpdatePoints(ctx, pkg.ID, nil, nil); err != nil {
			return services.Wrap(services.CodeSavePoints, "record empty points", err)
		}
		pkg.Tags = nil
		pkg.Timecodes = nil
		return nil
	}

	spriteRefs, err := w.generateSprites(pkg, markers)
	if err != nil {
		return err
	}

	result, err := poi.Partition(pkg.ID, markers, spriteRefs, publicBase(pkg))
	if err != nil {
		return services.Wrap(services.CodeSavePoints, "partition markers", err)
	}

	tagIDs := make([]string, 0, len(result.Tags))
	for _, tag := range result.Tags {
		tagIDs = append(tagIDs, tag.ID)
	}
	if err := w.store.AddPoints(ctx, result.Tags); err != nil {
		return services.Wrap(services.CodeSavePoints, "persist tag points", err)
	}
	if err := w.store.UpdatePoints(ctx, pkg.ID, tagIDs, result.Timecodes); err != nil {
		return services.Wrap(services.CodeSavePoints, "record tags and timecodes", err)
	}
	pkg.Tags = tagIDs
	pkg.Timecodes = result.Timecodes

	logging.WithContext(ctx, w.logger).Info("points of interest saved",
		logging.Int("timecodes", len(result.Timecodes)),
		logging.Int("tags", len(tagIDs)))
	return nil
}

// generateSprites composes the sheets for every image marker and maps
// each slide filename to its sprite cell.
func (w *Worker) generateSprites(pkg *catalog.Package, markers []catalog.Marker) (map[string]catalog.SpriteRef, error) {
	workDir := w.workDir(pkg)
	var sources []string
	var names []string
	for _, marker := range markers {
		if marker.Type != poi.TypeImage {
			continue
		}
		if marker.Data.Filename == "" {
			return nil, services.Wrap(services.CodeSavePoints, "image marker has no filename", nil)
		}
		sources = append(sources, filepath.Join(workDir, marker.Data.Filename))
		names = append(names, marker.Data.Filename)
	}
	if len(sources) == 0 {
		return nil, nil
	}

	placements, err := sprites.Generate(sources, w.publicDir(pkg), sprites.Options{
		CellWidth:  w.cfg.Points.SpriteCellWidth,
		CellHeight: w.cfg.Points.SpriteCellHeight,
		Columns:    w.cfg.Points.SpriteColumns,
		MaxRows:    w.cfg.Points.SpriteMaxRows,
		Quality:    w.cfg.Points.SpriteQuality,
	})
	if err != nil {
		return nil, services.Wrap(services.CodeSavePoints, "generate sprite sheets", err)
	}

	refs := make(map[string]catalog.SpriteRef, len(placements))
	for i, placement := range placements {
		refs[names[i]] = catalog.SpriteRef{
			URL: publicURL(pkg, filepath.Base(placement.SheetFile)),
			X:   placement.X,
			Y:   placement.Y,
		}
	}
	return refs, nil
}

// titleIsDefault reports whether the package still carries a derived
// title rather than one an operator customized.
func titleIsDefault(pkg *catalog.Package) bool {
	return pkg.Title == "" ||
		pkg.Title == baseName(pkg.OriginalFileName) ||
		pkg.Title == DefaultTitle(pkg.OriginalFileName)
}

// mergeMetadata overlays descriptor fields onto existing metadata without
// discarding probe results recorded earlier.
func mergeMetadata(existing, descriptor *catalog.Metadata) *catalog.Metadata {
	if existing == nil {
		copied := *descriptor
		return &copied
	}
	merged := *existing
	if descriptor.Filename != "" {
		merged.Filename = descriptor.Filename
	}
	if descriptor.Title != "" {
		merged.Title = descriptor.Title
	}
	if descriptor.Date > 0 {
		merged.Date = descriptor.Date
	}
	if descriptor.Duration > 0 {
		merged.Duration = descriptor.Duration
	}
	if descriptor.RichMedia {
		merged.RichMedia = true
	}
	if len(descriptor.Indexes) > 0 {
		merged.Indexes = descriptor.Indexes
	}
	return &merged
}
