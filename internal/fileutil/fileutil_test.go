package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talk.mp4")
	if Exists(path) {
		t.Fatal("missing file reported as existing")
	}
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Fatal("existing file reported as missing")
	}
}

func TestScanByExtensions(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"slide_001.jpg",
		"slide_002.JPEG",
		"extracted/slide_003.gif",
		"talk.mp4",
		"noext",
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := ScanByExtensions(dir, []string{"jpg", ".jpeg", "gif"})
	if err != nil {
		t.Fatalf("ScanByExtensions: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 slide images, got %v", matches)
	}
	for _, match := range matches {
		if filepath.Base(match) == "talk.mp4" {
			t.Fatalf("media file must not match: %v", matches)
		}
	}
}

func TestCopyFileOverwritesTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "slide.jpg")
	dst := filepath.Join(dir, "published.jpg")
	if err := os.WriteFile(src, []byte("fresh slide"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale artifact from a previous run"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fresh slide" {
		t.Fatalf("target content = %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope.jpg"), filepath.Join(dir, "dst.jpg")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileVerifiedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "session.tar.gz")
	dst := filepath.Join(dir, "1.tar.gz")

	payload := make([]byte, 64*1024+17)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(payload) {
		t.Fatalf("copied %d bytes, want %d", len(got), len(payload))
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "gone.mp4"), filepath.Join(dir, "dst.mp4"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if Exists(filepath.Join(dir, "dst.mp4")) {
		t.Fatal("failed copy must not leave a target behind")
	}
}
