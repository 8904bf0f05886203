package pack

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"packflow/internal/catalog"
	"packflow/internal/fileutil"
	"packflow/internal/logging"
	"packflow/internal/platform"
	"packflow/internal/services"
)

// initPackage inserts the package record. On a resumed run the record
// already exists and nothing needs to happen.
func (w *Worker) initPackage(ctx context.Context, pkg *catalog.Package) error {
	if pkg.ID != 0 {
		return nil
	}
	pkg.State = catalog.StatePending
	pkg.LastState = catalog.StatePending
	pkg.LastTransition = catalog.TransitionInitPackage
	pkg.ErrorCode = services.CodeNoError
	if pkg.Title == "" {
		pkg.Title = baseName(pkg.OriginalFileName)
	}
	if err := w.store.Insert(ctx, pkg); err != nil {
		return services.Wrap(services.CodeSavePackageData, "create package record", err)
	}
	return nil
}

// copyPackage copies the original file into the working directory. An
// existing partial copy from a crashed run is overwritten.
func (w *Worker) copyPackage(ctx context.Context, pkg *catalog.Package) error {
	if err := os.MkdirAll(w.workDir(pkg), 0o755); err != nil {
		return services.Wrap(services.CodeCopy, "create working directory", err)
	}
	if err := fileutil.CopyFileVerified(pkg.OriginalPackagePath, w.copiedPackagePath(pkg)); err != nil {
		return services.Wrap(services.CodeCopy, "copy original file", err)
	}
	return nil
}

// removeOriginalPackage deletes the ingested hot-folder artifact. A file
// already gone is fine; this is best-effort cleanup.
func (w *Worker) removeOriginalPackage(ctx context.Context, pkg *catalog.Package) error {
	err := os.Remove(pkg.OriginalPackagePath)
	if err != nil && !os.IsNotExist(err) {
		return services.Wrap(services.CodeUnlink, "remove original file", err)
	}
	return nil
}

// uploadMedia pushes the working file to the package's platform and
// records the assigned media id and playback link.
func (w *Worker) uploadMedia(ctx context.Context, pkg *catalog.Package) error {
	provider, err := w.providers.Resolve(pkg.Type)
	if err != nil {
		return services.Wrap(services.CodeMediaUpload, "resolve platform provider", err)
	}
	mediaPath, err := w.mediaFilePath(pkg)
	if err != nil {
		return err
	}

	result, err := provider.Upload(ctx, mediaPath)
	if err != nil {
		return services.Wrap(services.CodeMediaUpload, "upload media file", err)
	}

	mediaIDs := []string{result.MediaID}
	if err := w.store.UpdateUploadResult(ctx, pkg.ID, mediaIDs, result.Link); err != nil {
		return services.Wrap(services.CodeMediaUpload, "record upload result", err)
	}
	pkg.MediaIDs = mediaIDs
	pkg.Link = result.Link
	return nil
}

// synchronizeMedia pushes the current package metadata to every remote
// media id.
func (w *Worker) synchronizeMedia(ctx context.Context, pkg *catalog.Package) error {
	provider, err := w.providers.Resolve(pkg.Type)
	if err != nil {
		return services.Wrap(services.CodeMediaSynchronize, "resolve platform provider", err)
	}
	if err := provider.Update(ctx, pkg.MediaIDs, platform.MetadataFromPackage(pkg)); err != nil {
		return services.Wrap(services.CodeMediaSynchronize, "synchronize media metadata", err)
	}
	return nil
}

// copyImages publishes the slide images from the working directory. A
// single unreadable slide is logged and skipped so it cannot block the
// whole package.
func (w *Worker) copyImages(ctx context.Context, pkg *catalog.Package) error {
	images, err := fileutil.ScanByExtensions(w.workDir(pkg), w.cfg.Points.ImageExtensions)
	if err != nil {
		return services.Wrap(services.CodeScanImages, "scan working directory for images", err)
	}
	if len(images) == 0 {
		return nil
	}

	publicDir := w.publicDir(pkg)
	if err := os.MkdirAll(publicDir, 0o755); err != nil {
		return services.Wrap(services.CodeScanImages, "create public directory", err)
	}

	logger := logging.WithContext(ctx, w.logger)
	for _, image := range images {
		target := filepath.Join(publicDir, filepath.Base(image))
		if copyErr := fileutil.CopyFile(image, target); copyErr != nil {
			logger.Warn("skipping unreadable slide image",
				logging.String("image", filepath.Base(image)),
				logging.Error(copyErr))
		}
	}
	return nil
}

// cleanDirectory removes the per-package working directory.
func (w *Worker) cleanDirectory(ctx context.Context, pkg *catalog.Package) error {
	if err := os.RemoveAll(w.workDir(pkg)); err != nil {
		return services.Wrap(services.CodeCleanDirectory, "remove working directory", err)
	}
	return nil
}

// publicURL maps a file in the package's public directory to its served
// path.
func publicURL(pkg *catalog.Package, fileName string) string {
	return path.Join(publicBase(pkg), fileName)
}

func baseName(fileName string) string {
	base := filepath.Base(fileName)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = base[:len(base)-len(ext)]
	}
	if base == "" {
		return fileName
	}
	return base
}
