//go:build !gocv

package pose

// Stub implementation when OpenCV is not available.
// Build with -tags gocv to enable the local detector.

import (
	"context"

	"github.com/kartoza/ancu-kesehatan/internal/posture"
)

// LocalAvailable reports whether the local detector was compiled in
const LocalAvailable = false

// LocalDetector is a stub when built without the gocv tag
type LocalDetector struct{}

// NewLocalDetector always fails without OpenCV
func NewLocalDetector(_ LocalConfig) (*LocalDetector, error) {
	return nil, posture.ErrUnavailable
}

// Name identifies the backend
func (d *LocalDetector) Name() string {
	return "local"
}

// Detect is unavailable without OpenCV
func (d *LocalDetector) Detect(_ context.Context, _ []byte) (*posture.Landmarks, error) {
	return nil, posture.ErrUnavailable
}

// Close is a no-op
func (d *LocalDetector) Close() error {
	return nil
}
