package pose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kartoza/ancu-kesehatan/internal/posture"
)

// RemoteDetector posts photos to an external pose-estimation service and
// expects a MediaPipe style landmark list back
type RemoteDetector struct {
	url    string
	client *http.Client
}

// RemoteConfig holds the remote detector settings
type RemoteConfig struct {
	URL     string
	Timeout time.Duration
}

// remoteResponse is the body returned by the pose service
type remoteResponse struct {
	Landmarks []posture.Point `json:"landmarks"`
	Error     string          `json:"error,omitempty"`
}

// NewRemoteDetector creates a detector for the service at cfg.URL
func NewRemoteDetector(cfg RemoteConfig) *RemoteDetector {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteDetector{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend
func (d *RemoteDetector) Name() string {
	return "remote"
}

// Detect sends the encoded image and maps the answer to landmarks
func (d *RemoteDetector) Detect(ctx context.Context, imageData []byte) (*posture.Landmarks, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to build pose request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(imageData))
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", posture.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: service answered %d", posture.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pose service answered %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode pose response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("pose service error: %s", out.Error)
	}

	return posture.FromMediaPipe(out.Landmarks)
}
