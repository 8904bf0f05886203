package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"packflow/internal/catalog"
	"packflow/internal/platform"
)

func TestRegistryResolveIsCaseInsensitive(t *testing.T) {
	registry := platform.NewRegistry()
	registry.Register(platform.NewLocalProvider("Main", t.TempDir(), ""))

	if _, err := registry.Resolve("main"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := registry.Resolve("backup"); err == nil {
		t.Fatal("expected error for unregistered type")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := platform.NewRegistry()
	registry.Register(platform.NewLocalProvider("zeta", t.TempDir(), ""))
	registry.Register(platform.NewLocalProvider("alpha", t.TempDir(), ""))

	names := registry.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestLocalProviderUploadAndUpdate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(src, []byte("media-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := platform.NewLocalProvider("main", dir, "/media")
	result, err := provider.Upload(context.Background(), src)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.MediaID == "" {
		t.Fatal("upload must assign a media id")
	}
	if !strings.HasPrefix(result.Link, "/media/") {
		t.Fatalf("unexpected link: %s", result.Link)
	}

	stored := filepath.Join(dir, "media", result.MediaID+".mp4")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	if err := provider.Update(context.Background(), []string{result.MediaID}, platform.Metadata{Title: "Talk"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	sidecar, err := os.ReadFile(filepath.Join(dir, "media", result.MediaID+".meta"))
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if !strings.Contains(string(sidecar), "title=Talk") {
		t.Fatalf("sidecar content: %s", sidecar)
	}
}

func TestMetadataFromPackage(t *testing.T) {
	pkg := &catalog.Package{
		Title:     "Keynote",
		Date:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Thumbnail: "/publish/1/thumb.jpg",
		Metadata:  &catalog.Metadata{Duration: 1234},
	}
	meta := platform.MetadataFromPackage(pkg)
	if meta.Title != "Keynote" || meta.Duration != 1234 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.Date != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected date: %s", meta.Date)
	}

	empty := platform.MetadataFromPackage(&catalog.Package{})
	if empty.Date != "" || empty.Duration != 0 {
		t.Fatalf("zero package must produce zero metadata: %+v", empty)
	}
}
