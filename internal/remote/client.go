// Package remote is the HTTP client for the depth processing service. It
// covers the three endpoints the client orchestrates against: file upload,
// processing submission, and progress fetch.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/depthview/depthview-client/internal/session"
	"github.com/depthview/depthview-client/internal/stages"
)

// UploadResult is the server's confirmation of a stored artifact.
type UploadResult struct {
	Filename string  `json:"filename"`
	SizeMB   float64 `json:"size_mb"`
}

// Downloads maps output kinds to their download references.
type Downloads struct {
	Src   string `json:"src"`
	Depth string `json:"depth"`
	RGBD  string `json:"rgbd"`
}

type processResponse struct {
	Downloads Downloads `json:"downloads"`
}

// Service is the surface the orchestrator depends on.
type Service interface {
	Upload(ctx context.Context, filename string, file io.Reader) (UploadResult, error)
	Process(ctx context.Context, filename string, params session.Params) (Downloads, error)
	Progress(ctx context.Context) (stages.Snapshot, error)
}

// HTTPClient talks to a depth service over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient builds a client for the service at baseURL. The generous
// timeout covers the long-running process call; progress fetches carry their
// own short deadline.
func NewHTTPClient(baseURL string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 4 * time.Hour,
		},
		logger: logger,
	}
}

// Upload submits the file as multipart form data under the `file` field.
func (c *HTTPClient) Upload(ctx context.Context, filename string, file io.Reader) (UploadResult, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, &UploadError{
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(body, "Upload failed"),
		}
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return UploadResult{}, fmt.Errorf("parse upload response: %w", err)
	}

	c.logger.Info("upload accepted",
		"filename", result.Filename,
		"size_mb", result.SizeMB,
	)
	return result, nil
}

// Process starts depth extraction for an uploaded artifact and blocks until
// the service reports the final download references.
func (c *HTTPClient) Process(ctx context.Context, filename string, params session.Params) (Downloads, error) {
	query := url.Values{
		"filename":   {filename},
		"encoder":    {params.Encoder},
		"input_size": {params.InputSize},
		"max_res":    {params.MaxRes},
		"target_fps": {params.TargetFPS},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process?"+query.Encode(), nil)
	if err != nil {
		return Downloads{}, fmt.Errorf("create process request: %w", err)
	}

	c.logger.Info("submitting processing request",
		"filename", filename,
		"encoder", params.Encoder,
		"input_size", params.InputSize,
		"max_res", params.MaxRes,
		"target_fps", params.TargetFPS,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Downloads{}, fmt.Errorf("process request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Downloads{}, &SubmitError{
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(body, "Processing failed"),
		}
	}

	var result processResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Downloads{}, fmt.Errorf("parse process response: %w", err)
	}
	return result.Downloads, nil
}

// Fetch opens a download reference for reading. Relative references are
// resolved against the service base URL; the caller owns the returned body.
func (c *HTTPClient) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	target := ref
	if strings.HasPrefix(ref, "/") {
		target = c.baseURL + ref
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s returned %d", ref, resp.StatusCode)
	}
	return resp.Body, nil
}

// Progress fetches the latest progress snapshot. Failures here are expected
// to be swallowed by the caller; a single missed tick is not an error
// condition for the job.
func (c *HTTPClient) Progress(ctx context.Context) (stages.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/progress", nil)
	if err != nil {
		return stages.Snapshot{}, fmt.Errorf("create progress request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stages.Snapshot{}, fmt.Errorf("progress request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return stages.Snapshot{}, fmt.Errorf("progress returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return stages.Snapshot{}, fmt.Errorf("read progress response: %w", err)
	}

	var snap stages.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return stages.Snapshot{}, fmt.Errorf("parse progress response: %w", err)
	}
	return snap, nil
}
