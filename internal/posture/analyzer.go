package posture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"sync"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
)

// Detector finds body landmarks in an encoded JPEG or PNG image
type Detector interface {
	Detect(ctx context.Context, imageData []byte) (*Landmarks, error)
	Name() string
}

// Estimate is the secondary, photo-based body-type estimate
type Estimate struct {
	Category      bmi.Category `json:"category"`
	Ratio         float64      `json:"ratio"`
	ShoulderWidth float64      `json:"shoulder_width"`
	HipWidth      float64      `json:"hip_width"`
	Landmarks     Landmarks    `json:"landmarks"`
	Format        string       `json:"format"`
	Detector      string       `json:"detector"`

	// Annotated is a PNG of the photo with the measured segments drawn on it
	Annotated []byte `json:"-"`
}

// Analyzer runs a detector on uploaded photos and classifies the result
type Analyzer struct {
	mu            sync.RWMutex
	detector      Detector
	annotateWidth int
}

// NewAnalyzer creates an analyzer. A nil detector behaves as unavailable.
func NewAnalyzer(detector Detector) *Analyzer {
	return &Analyzer{
		detector:      detector,
		annotateWidth: DefaultAnnotateWidth,
	}
}

// SetDetector swaps the backend, e.g. after a model pack is installed
func (a *Analyzer) SetDetector(d Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Current returns the configured backend, or nil
func (a *Analyzer) Current() Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Available reports whether a detector backend is configured
func (a *Analyzer) Available() bool {
	return a.Current() != nil
}

// DetectorName returns the backend name, or "none"
func (a *Analyzer) DetectorName() string {
	d := a.Current()
	if d == nil {
		return "none"
	}
	return d.Name()
}

// Analyze decodes the photo, runs the detector and classifies the
// shoulder/hip ratio
func (a *Analyzer) Analyze(ctx context.Context, imageData []byte) (*Estimate, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}

	detector := a.Current()
	if detector == nil {
		return nil, ErrUnavailable
	}

	landmarks, err := detector.Detect(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if landmarks == nil {
		return nil, ErrNoBody
	}

	ratio, err := Ratio(*landmarks)
	if err != nil {
		return nil, err
	}

	est := &Estimate{
		Category:      ClassifyRatio(ratio),
		Ratio:         ratio,
		ShoulderWidth: landmarks.ShoulderWidth(),
		HipWidth:      landmarks.HipWidth(),
		Landmarks:     *landmarks,
		Format:        format,
		Detector:      detector.Name(),
	}

	annotated, err := Annotate(img, *landmarks, ratio, a.annotateWidth)
	if err != nil {
		// The estimate is still valid without the picture
		log.Printf("Warning: could not annotate photo: %v", err)
	} else {
		est.Annotated = annotated
	}

	return est, nil
}
