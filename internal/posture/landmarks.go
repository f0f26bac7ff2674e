package posture

import (
	"errors"
	"fmt"
	"math"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
)

var (
	// ErrNoBody is returned when the detector finds no body in the photo
	ErrNoBody = errors.New("no body detected")
	// ErrUnavailable is returned when no pose detector backend is present
	ErrUnavailable = errors.New("pose detector unavailable")
	// ErrDegenerateLandmarks is returned when the hip width is zero
	ErrDegenerateLandmarks = errors.New("degenerate landmarks")
	// ErrUnsupportedImage is returned for uploads that are not JPEG or PNG
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Indices of the landmarks used from a 33 point MediaPipe pose list
const (
	IndexLeftShoulder  = 11
	IndexRightShoulder = 12
	IndexLeftHip       = 23
	IndexRightHip      = 24

	// MediaPipeLandmarkCount is the length of a full MediaPipe pose list
	MediaPipeLandmarkCount = 33
)

// Ratio thresholds for the visual estimate
const (
	ThresholdUnderweight = 1.25
	ThresholdNormal      = 1.05
	ThresholdOverweight  = 0.9
)

// Point is a landmark in normalized image coordinates (0..1)
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Landmarks holds the four joints the estimate needs
type Landmarks struct {
	LeftShoulder  Point `json:"left_shoulder"`
	RightShoulder Point `json:"right_shoulder"`
	LeftHip       Point `json:"left_hip"`
	RightHip      Point `json:"right_hip"`
}

// FromMediaPipe picks the shoulders and hips out of a full pose list
func FromMediaPipe(points []Point) (*Landmarks, error) {
	if len(points) == 0 {
		return nil, ErrNoBody
	}
	if len(points) < MediaPipeLandmarkCount {
		return nil, fmt.Errorf("expected %d landmarks, got %d", MediaPipeLandmarkCount, len(points))
	}
	return &Landmarks{
		LeftShoulder:  points[IndexLeftShoulder],
		RightShoulder: points[IndexRightShoulder],
		LeftHip:       points[IndexLeftHip],
		RightHip:      points[IndexRightHip],
	}, nil
}

// ShoulderWidth returns the horizontal shoulder distance
func (l Landmarks) ShoulderWidth() float64 {
	return math.Abs(l.LeftShoulder.X - l.RightShoulder.X)
}

// HipWidth returns the horizontal hip distance
func (l Landmarks) HipWidth() float64 {
	return math.Abs(l.LeftHip.X - l.RightHip.X)
}

// Ratio returns shoulder width over hip width
func Ratio(l Landmarks) (float64, error) {
	hip := l.HipWidth()
	if hip == 0 || math.IsNaN(hip) {
		return 0, ErrDegenerateLandmarks
	}
	return l.ShoulderWidth() / hip, nil
}

// ClassifyRatio maps a shoulder/hip ratio onto the four buckets.
// Broad shoulders relative to hips read as lean.
func ClassifyRatio(r float64) bmi.Category {
	switch {
	case r > ThresholdUnderweight:
		return bmi.Underweight
	case r > ThresholdNormal:
		return bmi.Normal
	case r > ThresholdOverweight:
		return bmi.Overweight
	default:
		return bmi.Obese
	}
}
