package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPProviderUpload(t *testing.T) {
	var gotAuth string
	var gotFile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/media" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("media")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file.Close()
		gotFile = header.Filename
		json.NewEncoder(w).Encode(map[string]string{"id": "m-42", "link": "https://cdn/m-42"})
	}))
	defer server.Close()

	source := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(source, []byte("mp4-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider, err := NewHTTPProvider("main", server.URL, "secret")
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	result, err := provider.Upload(context.Background(), source)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.MediaID != "m-42" || result.Link != "https://cdn/m-42" {
		t.Fatalf("result = %+v", result)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotFile != "talk.mp4" {
		t.Fatalf("uploaded filename = %q", gotFile)
	}
}

func TestHTTPProviderUploadRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	source := filepath.Join(t.TempDir(), "talk.mp4")
	if err := os.WriteFile(source, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider, err := NewHTTPProvider("main", server.URL, "")
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	if _, err := provider.Upload(context.Background(), source); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestHTTPProviderUpdate(t *testing.T) {
	var paths []string
	var payload updatePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	provider, err := NewHTTPProvider("main", server.URL, "")
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	meta := Metadata{Title: "Talk", Date: "2026-01-01T00:00:00Z", Duration: 20000}
	if err := provider.Update(context.Background(), []string{"a", "b"}, meta); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/media/a" || paths[1] != "/media/b" {
		t.Fatalf("paths = %v", paths)
	}
	if payload.Title != "Talk" || payload.Duration != 20000 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestNewHTTPProviderRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPProvider("main", "  ", ""); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
