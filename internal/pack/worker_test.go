package pack

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/config"
	"packflow/internal/media/ffprobe"
	"packflow/internal/platform"
	"packflow/internal/services"
	"packflow/internal/testsupport"
)

func stubTools(t testing.TB) MediaTools {
	t.Helper()
	return MediaTools{
		Probe: func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{CodecType: "video", Height: 720, NBFrames: "500"}},
				Format:  ffprobe.Format{Duration: "20.0"},
			}, nil
		},
		Remux: func(ctx context.Context, binary, path string) error {
			return nil
		},
		ExtractFrame: func(ctx context.Context, binary, src, dst string, offsetSeconds float64) error {
			return os.WriteFile(dst, []byte("jpeg"), 0o644)
		},
	}
}

func newTestWorker(t testing.TB, cfg *config.Config, store *catalog.Store, opts ...Option) *Worker {
	t.Helper()
	registry := platform.NewRegistry()
	registry.Register(platform.NewLocalProvider("main", cfg.Paths.PublicDir, "/media"))
	combined := append([]Option{
		WithMediaTools(stubTools(t)),
		WithMergeTiming(5*time.Millisecond, 250*time.Millisecond),
	}, opts...)
	return NewWorker(store, cfg, nil, registry, combined...)
}

func ingestVideo(t testing.TB, cfg *config.Config, name string) *catalog.Package {
	t.Helper()
	original := testsupport.Deposit(t, cfg.Paths.IncomingDir, name, []byte("mp4-bytes"))
	return &catalog.Package{
		OriginalFileName:    name,
		OriginalPackagePath: original,
		PackageType:         "mp4",
		Type:                "main",
	}
}

func TestKindFor(t *testing.T) {
	cases := map[string]string{
		"talk.mp4":    KindVideo,
		"talk.tar":    KindTar,
		"talk.tar.gz": KindTar,
		"talk.TGZ":    KindTar,
		"talk.zip":    KindZip,
	}
	for name, want := range cases {
		kind, err := KindFor(name)
		if err != nil {
			t.Fatalf("KindFor(%s): %v", name, err)
		}
		if kind != want {
			t.Fatalf("KindFor(%s) = %s, want %s", name, kind, want)
		}
	}
	if _, err := KindFor("talk.avi"); err == nil {
		t.Fatal("expected error for unsupported file")
	}
}

func TestDefinitionsAreWellFormed(t *testing.T) {
	if err := videoDefinition().Validate(); err != nil {
		t.Fatalf("video definition: %v", err)
	}
	if err := archiveDefinition().Validate(); err != nil {
		t.Fatalf("archive definition: %v", err)
	}
}

func TestVideoPipelineEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	worker := newTestWorker(t, cfg, store)
	ctx := context.Background()

	pkg := ingestVideo(t, cfg, "talk.mp4")
	runner, err := worker.RunnerFor(KindVideo)
	if err != nil {
		t.Fatalf("RunnerFor: %v", err)
	}
	if err := runner.Run(ctx, pkg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateReady {
		t.Fatalf("final state = %s, want ready", got.State)
	}
	if got.ErrorCode != services.CodeNoError {
		t.Fatalf("error code = %d", got.ErrorCode)
	}
	if len(got.MediaIDs) != 1 || got.Link == "" {
		t.Fatalf("upload not recorded: ids=%v link=%q", got.MediaIDs, got.Link)
	}
	if got.Thumbnail == "" {
		t.Fatal("thumbnail not recorded")
	}
	if got.Metadata == nil || got.Metadata.Duration != 20000 || got.Metadata.ProfileSettings.VideoHeight != 720 {
		t.Fatalf("probe metadata not recorded: %+v", got.Metadata)
	}

	if _, err := os.Stat(pkg.OriginalPackagePath); !os.IsNotExist(err) {
		t.Fatal("original file must be removed")
	}
	workDir := filepath.Join(cfg.Paths.WorkDir, strconv.FormatInt(pkg.ID, 10))
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatal("working directory must be cleaned")
	}
	thumb := filepath.Join(cfg.Paths.PublicDir, strconv.FormatInt(pkg.ID, 10), "thumb.jpg")
	if _, err := os.Stat(thumb); err != nil {
		t.Fatalf("published thumbnail missing: %v", err)
	}
}

func TestVideoPipelineParksWithoutPlatform(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	worker := newTestWorker(t, cfg, store)
	ctx := context.Background()

	pkg := ingestVideo(t, cfg, "manual.mp4")
	pkg.Type = ""

	runner, err := worker.RunnerFor(KindVideo)
	if err != nil {
		t.Fatalf("RunnerFor: %v", err)
	}
	if err := runner.Run(ctx, pkg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateWaitingForUpload {
		t.Fatalf("state = %s, want waiting_for_upload", got.State)
	}
	if got.ErrorCode != services.CodeNoError {
		t.Fatalf("parking is not an error, code = %d", got.ErrorCode)
	}
	if len(got.MediaIDs) != 0 || got.Link != "" {
		t.Fatalf("media id and link must stay unset: ids=%v link=%q", got.MediaIDs, got.Link)
	}
}

func TestGetMetadataFailsWithoutVideoStream(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	worker := newTestWorker(t, cfg, store, WithMediaTools(MediaTools{
		Probe: func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{CodecType: "audio", Channels: 2}},
				Format:  ffprobe.Format{Duration: "20.0"},
			}, nil
		},
	}))
	ctx := context.Background()

	pkg := ingestVideo(t, cfg, "podcast.mp4")
	runner, err := worker.RunnerFor(KindVideo)
	if err != nil {
		t.Fatalf("RunnerFor: %v", err)
	}
	runErr := runner.Run(ctx, pkg)
	if services.CodeOf(runErr) != services.CodeGetMetadata {
		t.Fatalf("expected get-metadata failure, got %v", runErr)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateError || got.ErrorCode != services.CodeGetMetadata {
		t.Fatalf("audio-only container must error: state=%s code=%d", got.State, got.ErrorCode)
	}
	if got.LastTransition != catalog.TransitionGetMetadata {
		t.Fatalf("resume point = %s, want getMetadata", got.LastTransition)
	}
	if len(got.MediaIDs) != 0 || got.Link != "" {
		t.Fatalf("nothing may reach upload: ids=%v link=%q", got.MediaIDs, got.Link)
	}
}

func TestGetMetadataSkipsWhenHeightRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	probed := false
	worker := newTestWorker(t, cfg, store, WithMediaTools(MediaTools{
		Probe: func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
			probed = true
			return ffprobe.Result{}, nil
		},
	}))

	pkg := &catalog.Package{
		OriginalFileName: "resumed.mp4",
		PackageType:      "mp4",
		Metadata: &catalog.Metadata{
			Duration:        9000,
			ProfileSettings: catalog.ProfileSettings{VideoHeight: 480},
		},
	}
	if err := worker.getMetadata(context.Background(), pkg); err != nil {
		t.Fatalf("getMetadata: %v", err)
	}
	if probed {
		t.Fatal("recorded height must skip the probe")
	}
	if pkg.Metadata.ProfileSettings.VideoHeight != 480 {
		t.Fatalf("height overwritten: %d", pkg.Metadata.ProfileSettings.VideoHeight)
	}
}

func TestGenerateThumbPrefersSuppliedSidecar(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	extracted := false
	worker := newTestWorker(t, cfg, store, WithMediaTools(MediaTools{
		ExtractFrame: func(ctx context.Context, binary, src, dst string, offsetSeconds float64) error {
			extracted = true
			return os.WriteFile(dst, []byte("jpeg"), 0o644)
		},
	}))
	ctx := context.Background()

	pkg := ingestVideo(t, cfg, "talk.mp4")
	sidecar := testsupport.Deposit(t, cfg.Paths.IncomingDir, "talk.jpg", []byte("supplied-cover"))

	runner, err := worker.RunnerFor(KindVideo)
	if err != nil {
		t.Fatalf("RunnerFor: %v", err)
	}
	if err := runner.Run(ctx, pkg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if extracted {
		t.Fatal("supplied thumbnail must preempt frame extraction")
	}
	if _, err := os.Stat(sidecar); !os.IsNotExist(err) {
		t.Fatal("supplied thumbnail must be deleted after publishing")
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	want := "/publish/" + strconv.FormatInt(pkg.ID, 10) + "/thumb.jpg"
	if got.Thumbnail != want {
		t.Fatalf("thumbnail = %q, want %q", got.Thumbnail, want)
	}
	published := filepath.Join(cfg.Paths.PublicDir, strconv.FormatInt(pkg.ID, 10), "thumb.jpg")
	content, err := os.ReadFile(published)
	if err != nil {
		t.Fatalf("published thumbnail missing: %v", err)
	}
	if string(content) != "supplied-cover" {
		t.Fatalf("published content = %q", content)
	}
}

func TestFailedCopyKeepsResumePoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	worker := newTestWorker(t, cfg, store)
	ctx := context.Background()

	pkg := &catalog.Package{
		OriginalFileName:    "ghost.mp4",
		OriginalPackagePath: filepath.Join(cfg.Paths.IncomingDir, "ghost.mp4"),
		PackageType:         "mp4",
		Type:                "main",
	}

	runner, err := worker.RunnerFor(KindVideo)
	if err != nil {
		t.Fatalf("RunnerFor: %v", err)
	}
	runErr := runner.Run(ctx, pkg)
	if services.CodeOf(runErr) != services.CodeCopy {
		t.Fatalf("expected copy failure, got %v", runErr)
	}

	got, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != catalog.StateError || got.ErrorCode != services.CodeCopy {
		t.Fatalf("error not recorded: state=%s code=%d", got.State, got.ErrorCode)
	}
	// The resume point still names the failed transition so a retry
	// re-enters exactly there.
	if got.LastState != catalog.StatePending || got.LastTransition != catalog.TransitionCopyPackage {
		t.Fatalf("resume point = (%s, %s)", got.LastState, got.LastTransition)
	}
}

func TestRetryResumesAfterFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	worker := newTestWorker(t, cfg, store)
	ctx := context.Background()

	original := filepath.Join(cfg.Paths.IncomingDir, "retry.mp4")
	pkg := &catalog.Package{
		OriginalFileName:    "retry.mp4",
		OriginalPackagePath: original,
		PackageType:         "mp4",
		Type:                "main",
	}

	runner, err := worker.RunnerFor(KindVideo)
	if err != nil {
		t.Fatalf("RunnerFor: %v", err)
	}
	if runErr := runner.Run(ctx, pkg); services.CodeOf(runErr) != services.CodeCopy {
		t.Fatalf("expected copy failure, got %v", runErr)
	}

	// Operator drops the file back in and retries.
	if err := os.WriteFile(original, []byte("mp4-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RetryErrored(ctx, pkg.ID); err != nil {
		t.Fatalf("RetryErrored: %v", err)
	}

	resumed, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := runner.Run(ctx, resumed); err != nil {
		t.Fatalf("resumed Run: %v", err)
	}

	final, err := store.GetByID(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.State != catalog.StateReady {
		t.Fatalf("state after retry = %s, want ready", final.State)
	}
}
