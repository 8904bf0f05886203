package pack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/config"
	"packflow/internal/logging"
	"packflow/internal/media/ffmpeg"
	"packflow/internal/media/ffprobe"
	"packflow/internal/pipeline"
	"packflow/internal/platform"
)

// Package kinds the worker can drive.
const (
	KindVideo = "video"
	KindTar   = "tar"
	KindZip   = "zip"
)

// MediaTools groups the external media tool invocations so tests can
// substitute stubs for the real ffmpeg/ffprobe binaries.
type MediaTools struct {
	Probe        func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	Remux        func(ctx context.Context, binary, path string) error
	ExtractFrame func(ctx context.Context, binary, src, dst string, offsetSeconds float64) error
}

func defaultMediaTools() MediaTools {
	return MediaTools{
		Probe:        ffprobe.Inspect,
		Remux:        ffmpeg.Remux,
		ExtractFrame: ffmpeg.ExtractFrame,
	}
}

// Worker owns the transition handlers for every package kind and builds
// the pipeline runner matching a package's kind.
type Worker struct {
	store        *catalog.Store
	cfg          *config.Config
	logger       *slog.Logger
	providers    *platform.Registry
	tools        MediaTools
	mergePoll    time.Duration
	mergeTimeout time.Duration
}

// Option customizes worker construction.
type Option func(*Worker)

// WithMergeTiming overrides the merge wait cadence, mainly for tests.
func WithMergeTiming(poll, timeout time.Duration) Option {
	return func(w *Worker) {
		if poll > 0 {
			w.mergePoll = poll
		}
		if timeout > 0 {
			w.mergeTimeout = timeout
		}
	}
}

// WithMediaTools overrides the external media tool invocations.
func WithMediaTools(tools MediaTools) Option {
	return func(w *Worker) {
		if tools.Probe != nil {
			w.tools.Probe = tools.Probe
		}
		if tools.Remux != nil {
			w.tools.Remux = tools.Remux
		}
		if tools.ExtractFrame != nil {
			w.tools.ExtractFrame = tools.ExtractFrame
		}
	}
}

// NewWorker wires the worker to its collaborators.
func NewWorker(store *catalog.Store, cfg *config.Config, logger *slog.Logger, providers *platform.Registry, opts ...Option) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if providers == nil {
		providers = platform.NewRegistry()
	}
	worker := &Worker{
		store:        store,
		cfg:          cfg,
		logger:       logger,
		providers:    providers,
		tools:        defaultMediaTools(),
		mergePoll:    time.Duration(cfg.Workflow.MergePollInterval) * time.Second,
		mergeTimeout: time.Duration(cfg.Workflow.MergeTimeout) * time.Second,
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

// KindFor classifies an original file name into a package kind.
func KindFor(fileName string) (string, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".mp4"):
		return KindVideo, nil
	case strings.HasSuffix(lower, ".tar"), strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTar, nil
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, nil
	default:
		return "", fmt.Errorf("unsupported package file %q", fileName)
	}
}

// RunnerFor builds the pipeline runner for a package kind.
func (w *Worker) RunnerFor(kind string) (*pipeline.Runner, error) {
	def, handlers, err := w.definitionFor(kind)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(w.store, w.logger, def, handlers), nil
}

func (w *Worker) definitionFor(kind string) (pipeline.Definition, map[catalog.Transition]pipeline.Handler, error) {
	switch kind {
	case KindVideo:
		return videoDefinition(), w.videoHandlers(), nil
	case KindTar, KindZip:
		return archiveDefinition(), w.archiveHandlers(), nil
	default:
		return pipeline.Definition{}, nil, fmt.Errorf("unknown package kind %q", kind)
	}
}

// videoDefinition is the plain MP4 pipeline: probe work happens between
// copy and removal of the original, and the merge chain closes the run.
func videoDefinition() pipeline.Definition {
	return pipeline.Definition{
		Stack: []catalog.Transition{
			catalog.TransitionInitPackage,
			catalog.TransitionCopyPackage,
			catalog.TransitionDefragmentMp4,
			catalog.TransitionGenerateThumb,
			catalog.TransitionGetMetadata,
			catalog.TransitionRemoveOriginal,
			catalog.TransitionUploadMedia,
			catalog.TransitionSynchronize,
			catalog.TransitionCopyImages,
			catalog.TransitionCleanDirectory,
			catalog.TransitionInitMerge,
			catalog.TransitionMerge,
			catalog.TransitionRemovePackage,
		},
		Edges: map[catalog.Transition]pipeline.Edge{
			catalog.TransitionInitPackage:    {From: catalog.StatePending, To: catalog.StatePending},
			catalog.TransitionCopyPackage:    {From: catalog.StatePending, To: catalog.StateCopied},
			catalog.TransitionDefragmentMp4:  {From: catalog.StateCopied, To: catalog.StateDefragmented},
			catalog.TransitionGenerateThumb:  {From: catalog.StateDefragmented, To: catalog.StateThumbGenerated},
			catalog.TransitionGetMetadata:    {From: catalog.StateThumbGenerated, To: catalog.StateMetadataRetrieved},
			catalog.TransitionRemoveOriginal: {From: catalog.StateMetadataRetrieved, To: catalog.StateOriginalRemoved},
			catalog.TransitionUploadMedia:    {From: catalog.StateOriginalRemoved, To: catalog.StateUploaded},
			catalog.TransitionSynchronize:    {From: catalog.StateUploaded, To: catalog.StateSynchronized},
			catalog.TransitionCopyImages:     {From: catalog.StateSynchronized, To: catalog.StateImagesCopied},
			catalog.TransitionCleanDirectory: {From: catalog.StateImagesCopied, To: catalog.StateDirectoryCleaned},
			catalog.TransitionInitMerge:      {From: catalog.StateDirectoryCleaned, To: catalog.StateMergeInitialized},
			catalog.TransitionMerge:          {From: catalog.StateMergeInitialized, To: catalog.StateMerged},
			catalog.TransitionRemovePackage:  {From: catalog.StateMerged, To: catalog.StateMerged},
		},
		Processing: map[catalog.Transition]catalog.State{
			catalog.TransitionCopyPackage:    catalog.StateCopying,
			catalog.TransitionDefragmentMp4:  catalog.StateDefragmenting,
			catalog.TransitionGenerateThumb:  catalog.StateGeneratingThumb,
			catalog.TransitionGetMetadata:    catalog.StateRetrievingMetadata,
			catalog.TransitionRemoveOriginal: catalog.StateRemovingOriginal,
			catalog.TransitionUploadMedia:    catalog.StateUploading,
			catalog.TransitionSynchronize:    catalog.StateSynchronizing,
			catalog.TransitionCopyImages:     catalog.StateCopyingImages,
			catalog.TransitionCleanDirectory: catalog.StateCleaning,
			catalog.TransitionInitMerge:      catalog.StateInitializingMerge,
			catalog.TransitionMerge:          catalog.StateMerging,
			catalog.TransitionRemovePackage:  catalog.StateRemoving,
		},
	}
}

// archiveDefinition layers extraction, validation and point-of-interest
// work onto the video pipeline. The original file is removed right after
// the copy (the archive itself is not needed once copied), upload starts
// from metadata retrieval, and image copying waits until points of
// interest decided which slides are referenced.
func archiveDefinition() pipeline.Definition {
	overlay := pipeline.Definition{
		Stack: []catalog.Transition{
			catalog.TransitionInitPackage,
			catalog.TransitionCopyPackage,
			catalog.TransitionRemoveOriginal,
			catalog.TransitionExtract,
			catalog.TransitionValidate,
			catalog.TransitionDefragmentMp4,
			catalog.TransitionGenerateThumb,
			catalog.TransitionGetMetadata,
			catalog.TransitionUploadMedia,
			catalog.TransitionSynchronize,
			catalog.TransitionSavePoints,
			catalog.TransitionCopyImages,
			catalog.TransitionCleanDirectory,
			catalog.TransitionInitMerge,
			catalog.TransitionMerge,
			catalog.TransitionRemovePackage,
		},
		Edges: map[catalog.Transition]pipeline.Edge{
			catalog.TransitionRemoveOriginal: {From: catalog.StateCopied, To: catalog.StateOriginalRemoved},
			catalog.TransitionExtract:        {From: catalog.StateOriginalRemoved, To: catalog.StateExtracted},
			catalog.TransitionValidate:       {From: catalog.StateExtracted, To: catalog.StateValidated},
			catalog.TransitionDefragmentMp4:  {From: catalog.StateValidated, To: catalog.StateDefragmented},
			catalog.TransitionUploadMedia:    {From: catalog.StateMetadataRetrieved, To: catalog.StateUploaded},
			catalog.TransitionSavePoints:     {From: catalog.StateSynchronized, To: catalog.StatePointsSaved},
			catalog.TransitionCopyImages:     {From: catalog.StatePointsSaved, To: catalog.StateImagesCopied},
		},
		Processing: map[catalog.Transition]catalog.State{
			catalog.TransitionExtract:    catalog.StateExtracting,
			catalog.TransitionValidate:   catalog.StateValidating,
			catalog.TransitionSavePoints: catalog.StateSavingPoints,
		},
	}
	return pipeline.Concat(videoDefinition(), overlay)
}

func (w *Worker) videoHandlers() map[catalog.Transition]pipeline.Handler {
	return map[catalog.Transition]pipeline.Handler{
		catalog.TransitionInitPackage:    w.initPackage,
		catalog.TransitionCopyPackage:    w.copyPackage,
		catalog.TransitionDefragmentMp4:  w.defragmentMp4,
		catalog.TransitionGenerateThumb:  w.generateThumb,
		catalog.TransitionGetMetadata:    w.getMetadata,
		catalog.TransitionRemoveOriginal: w.removeOriginalPackage,
		catalog.TransitionUploadMedia:    w.uploadMedia,
		catalog.TransitionSynchronize:    w.synchronizeMedia,
		catalog.TransitionCopyImages:     w.copyImages,
		catalog.TransitionCleanDirectory: w.cleanDirectory,
		catalog.TransitionInitMerge:      w.initMerge,
		catalog.TransitionMerge:          w.merge,
		catalog.TransitionRemovePackage:  w.removePackage,
	}
}

func (w *Worker) archiveHandlers() map[catalog.Transition]pipeline.Handler {
	handlers := w.videoHandlers()
	handlers[catalog.TransitionExtract] = w.extractPackage
	handlers[catalog.TransitionValidate] = w.validatePackage
	handlers[catalog.TransitionSavePoints] = w.savePointsOfInterest
	return handlers
}
