package pack

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"packflow/internal/catalog"
	"packflow/internal/fileutil"
	"packflow/internal/logging"
	"packflow/internal/services"
)

// thumbFileName is the published thumbnail artifact when a frame is
// extracted from the media.
const thumbFileName = "thumb.jpg"

// thumbOffsetRatio places the thumbnail frame at 10% of the duration so
// intros and title cards are skipped.
const thumbOffsetRatio = 0.1

// defragmentMp4 relocates the moov atom when the container needs it. A
// container whose video stream reports a frame count is already streamable
// and is left untouched.
func (w *Worker) defragmentMp4(ctx context.Context, pkg *catalog.Package) error {
	mediaPath, err := w.mediaFilePath(pkg)
	if err != nil {
		return err
	}

	probe, err := w.tools.Probe(ctx, w.cfg.FFprobeBinary(), mediaPath)
	if err != nil {
		return services.Wrap(services.CodeDefragmentation, "probe media file", err)
	}
	if probe.FrameCount() > 0 {
		logging.WithContext(ctx, w.logger).Debug("container already streamable, skipping remux")
		return nil
	}
	if err := w.tools.Remux(ctx, w.cfg.FFmpegBinary(), mediaPath); err != nil {
		return services.Wrap(services.CodeDefragmentation, "remux media file", err)
	}
	return nil
}

// generateThumb publishes the package thumbnail and records its URL. A
// thumbnail supplied with the package wins: archives ship it as a
// thumbnail.<ext> file next to the media, videos as a same-named sidecar
// image next to the original deposit. The supplied source is deleted once
// published. Without one, a frame at 10% playback is extracted.
func (w *Worker) generateThumb(ctx context.Context, pkg *catalog.Package) error {
	publicDir := w.publicDir(pkg)
	if err := os.MkdirAll(publicDir, 0o755); err != nil {
		return services.Wrap(services.CodeGenerateThumb, "create public directory", err)
	}

	if source := w.suppliedThumbnail(pkg); source != "" {
		name := "thumb" + strings.ToLower(filepath.Ext(source))
		if err := fileutil.CopyFile(source, filepath.Join(publicDir, name)); err != nil {
			return services.Wrap(services.CodeGenerateThumb, "copy supplied thumbnail", err)
		}
		if err := os.Remove(source); err != nil && !os.IsNotExist(err) {
			return services.Wrap(services.CodeGenerateThumb, "remove supplied thumbnail", err)
		}
		return w.recordThumbnail(ctx, pkg, name)
	}

	mediaPath, err := w.mediaFilePath(pkg)
	if err != nil {
		return err
	}
	probe, err := w.tools.Probe(ctx, w.cfg.FFprobeBinary(), mediaPath)
	if err != nil {
		return services.Wrap(services.CodeGenerateThumb, "probe media file", err)
	}

	offset := 0.0
	if seconds := probe.DurationSeconds(); seconds > 0 {
		offset = seconds * thumbOffsetRatio
	}

	target := filepath.Join(publicDir, thumbFileName)
	if err := w.tools.ExtractFrame(ctx, w.cfg.FFmpegBinary(), mediaPath, target, offset); err != nil {
		return services.Wrap(services.CodeGenerateThumb, "extract thumbnail frame", err)
	}
	return w.recordThumbnail(ctx, pkg, thumbFileName)
}

// suppliedThumbnail locates a thumbnail deposited with the package, or
// returns the empty string when none exists.
func (w *Worker) suppliedThumbnail(pkg *catalog.Package) string {
	incomingDir := filepath.Dir(pkg.OriginalPackagePath)
	for _, ext := range w.cfg.Points.ImageExtensions {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		bundled := filepath.Join(w.workDir(pkg), "thumbnail."+ext)
		if fileutil.Exists(bundled) {
			return bundled
		}
		sidecar := filepath.Join(incomingDir, baseName(pkg.OriginalFileName)+"."+ext)
		if fileutil.Exists(sidecar) {
			return sidecar
		}
	}
	return ""
}

func (w *Worker) recordThumbnail(ctx context.Context, pkg *catalog.Package, fileName string) error {
	thumbnail := publicURL(pkg, fileName)
	if err := w.store.UpdateThumbnail(ctx, pkg.ID, thumbnail); err != nil {
		return services.Wrap(services.CodeGenerateThumb, "record thumbnail", err)
	}
	pkg.Thumbnail = thumbnail
	return nil
}

// getMetadata probes the working file and records duration and video
// height on the package metadata. A height already recorded, by a resumed
// run or a validated descriptor, skips the probe. A container without a
// video stream is fatal: there is nothing publishable to describe.
func (w *Worker) getMetadata(ctx context.Context, pkg *catalog.Package) error {
	if pkg.Metadata != nil && pkg.Metadata.ProfileSettings.VideoHeight > 0 {
		return nil
	}

	mediaPath, err := w.mediaFilePath(pkg)
	if err != nil {
		return err
	}
	probe, err := w.tools.Probe(ctx, w.cfg.FFprobeBinary(), mediaPath)
	if err != nil {
		return services.Wrap(services.CodeGetMetadata, "probe media file", err)
	}
	stream, ok := probe.VideoStream()
	if !ok {
		return services.Wrap(services.CodeGetMetadata, "no video stream in media file", nil)
	}

	meta := pkg.EnsureMetadata()
	meta.Duration = probe.DurationMillis()
	meta.ProfileSettings.VideoHeight = stream.Height

	if err := w.store.UpdateMetadata(ctx, pkg.ID, meta); err != nil {
		return services.Wrap(services.CodeGetMetadata, "record probe metadata", err)
	}
	return nil
}
