package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPProvider talks to a remote hosting platform over its REST API.
type HTTPProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewHTTPProvider creates a provider for one configured platform type.
func NewHTTPProvider(name, baseURL, apiKey string, opts ...HTTPOption) (*HTTPProvider, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("platform base url required")
	}
	provider := &HTTPProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider, nil
}

// Name returns the platform type identifier.
func (p *HTTPProvider) Name() string {
	return p.name
}

type uploadResponse struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// Upload posts the media file as a multipart form and returns the remote
// identifiers the platform assigned.
func (p *HTTPProvider) Upload(ctx context.Context, filePath string) (UploadResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open media file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(filePath))
	if err != nil {
		return UploadResult{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, fmt.Errorf("buffer media file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/media", &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	p.authorize(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, fmt.Errorf("upload media: platform returned %s", resp.Status)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	if decoded.ID == "" {
		return UploadResult{}, errors.New("upload response carries no media id")
	}
	return UploadResult{MediaID: decoded.ID, Link: decoded.Link}, nil
}

type updatePayload struct {
	Title     string `json:"title"`
	Date      string `json:"date,omitempty"`
	Duration  int64  `json:"duration,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Update pushes the package metadata to every remote media id.
func (p *HTTPProvider) Update(ctx context.Context, mediaIDs []string, meta Metadata) error {
	payload, err := json.Marshal(updatePayload{
		Title:     meta.Title,
		Date:      meta.Date,
		Duration:  meta.Duration,
		Thumbnail: meta.Thumbnail,
	})
	if err != nil {
		return fmt.Errorf("encode metadata payload: %w", err)
	}

	for _, mediaID := range mediaIDs {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut,
			p.baseURL+"/media/"+mediaID, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		p.authorize(req)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("update media %s: %w", mediaID, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("update media %s: platform returned %s", mediaID, resp.Status)
		}
	}
	return nil
}

func (p *HTTPProvider) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}
