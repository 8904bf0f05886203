package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckResolvesAbsolutePath(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := Requirement{Name: "FFmpeg", Command: ffmpeg}.Check()
	if !status.Available {
		t.Fatalf("expected stub binary to resolve, got %q", status.Detail)
	}
	if status.Detail != ffmpeg {
		t.Fatalf("detail = %q, want resolved path %q", status.Detail, ffmpeg)
	}
}

func TestCheckMissingBinary(t *testing.T) {
	status := Requirement{Name: "FFprobe", Command: "packflow-no-such-binary"}.Check()
	if status.Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected a failure detail")
	}
}

func TestCheckEmptyCommand(t *testing.T) {
	status := Requirement{Name: "FFmpeg"}.Check()
	if status.Available {
		t.Fatal("an unconfigured command cannot be available")
	}
}

func TestCheckBinariesKeepsOrder(t *testing.T) {
	statuses := CheckBinaries(MediaTools("packflow-missing-ffmpeg", "packflow-missing-ffprobe"))
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "FFmpeg" || statuses[1].Name != "FFprobe" {
		t.Fatalf("unexpected order: %s, %s", statuses[0].Name, statuses[1].Name)
	}
	for _, status := range statuses {
		if status.Available {
			t.Fatalf("%s should not resolve", status.Name)
		}
	}
}
