package posture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	landmarks *Landmarks
	err       error
	calls     int
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte) (*Landmarks, error) {
	f.calls++
	return f.landmarks, f.err
}

func (f *fakeDetector) Name() string { return "fake" }

// landmarksWithRatio builds a symmetric pose with the given shoulder/hip ratio
func landmarksWithRatio(r float64) *Landmarks {
	hip := 0.2
	shoulder := hip * r
	return &Landmarks{
		LeftShoulder:  Point{X: 0.5 + shoulder/2, Y: 0.3},
		RightShoulder: Point{X: 0.5 - shoulder/2, Y: 0.3},
		LeftHip:       Point{X: 0.5 + hip/2, Y: 0.6},
		RightHip:      Point{X: 0.5 - hip/2, Y: 0.6},
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClassifyRatio(t *testing.T) {
	tests := []struct {
		ratio float64
		want  bmi.Category
	}{
		{2.0, bmi.Underweight},
		{1.26, bmi.Underweight},
		{1.25, bmi.Normal},
		{1.06, bmi.Normal},
		{1.05, bmi.Overweight},
		{0.91, bmi.Overweight},
		{0.9, bmi.Obese},
		{0.1, bmi.Obese},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyRatio(tt.ratio), "ratio %.2f", tt.ratio)
	}
}

func TestRatio(t *testing.T) {
	r, err := Ratio(*landmarksWithRatio(1.1))
	require.NoError(t, err)
	assert.InDelta(t, 1.1, r, 1e-9)

	// mirrored poses give the same ratio
	l := Landmarks{
		LeftShoulder:  Point{X: 0.3},
		RightShoulder: Point{X: 0.7},
		LeftHip:       Point{X: 0.4},
		RightHip:      Point{X: 0.6},
	}
	r, err = Ratio(l)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, r, 1e-9)
}

func TestRatioZeroHipWidth(t *testing.T) {
	l := Landmarks{
		LeftShoulder:  Point{X: 0.3},
		RightShoulder: Point{X: 0.7},
		LeftHip:       Point{X: 0.5},
		RightHip:      Point{X: 0.5},
	}
	_, err := Ratio(l)
	assert.ErrorIs(t, err, ErrDegenerateLandmarks)
}

func TestFromMediaPipe(t *testing.T) {
	_, err := FromMediaPipe(nil)
	assert.ErrorIs(t, err, ErrNoBody)

	_, err = FromMediaPipe(make([]Point, 10))
	assert.Error(t, err)

	points := make([]Point, MediaPipeLandmarkCount)
	points[IndexLeftShoulder] = Point{X: 0.7}
	points[IndexRightShoulder] = Point{X: 0.3}
	points[IndexLeftHip] = Point{X: 0.6}
	points[IndexRightHip] = Point{X: 0.4}

	l, err := FromMediaPipe(points)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, l.ShoulderWidth(), 1e-9)
	assert.InDelta(t, 0.2, l.HipWidth(), 1e-9)
}

func TestAnalyze(t *testing.T) {
	det := &fakeDetector{landmarks: landmarksWithRatio(1.0)}
	a := NewAnalyzer(det)
	require.True(t, a.Available())
	assert.Equal(t, "fake", a.DetectorName())

	est, err := a.Analyze(context.Background(), encodePNG(t, testImage(64, 96)))
	require.NoError(t, err)

	assert.Equal(t, bmi.Overweight, est.Category)
	assert.InDelta(t, 1.0, est.Ratio, 1e-9)
	assert.Equal(t, "png", est.Format)
	assert.Equal(t, "fake", est.Detector)
	require.NotEmpty(t, est.Annotated)

	out, err := png.Decode(bytes.NewReader(est.Annotated))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 96), out.Bounds())
}

func TestAnalyzeJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(32, 32), nil))

	a := NewAnalyzer(&fakeDetector{landmarksWithRatio(1.5), nil, 0})
	est, err := a.Analyze(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", est.Format)
	assert.Equal(t, bmi.Underweight, est.Category)
}

func TestAnalyzeErrors(t *testing.T) {
	photo := encodePNG(t, testImage(16, 16))

	t.Run("no detector", func(t *testing.T) {
		_, err := NewAnalyzer(nil).Analyze(context.Background(), photo)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, "none", NewAnalyzer(nil).DetectorName())
	})

	t.Run("no body", func(t *testing.T) {
		_, err := NewAnalyzer(&fakeDetector{err: ErrNoBody}).Analyze(context.Background(), photo)
		assert.ErrorIs(t, err, ErrNoBody)
	})

	t.Run("nil landmarks", func(t *testing.T) {
		_, err := NewAnalyzer(&fakeDetector{}).Analyze(context.Background(), photo)
		assert.ErrorIs(t, err, ErrNoBody)
	})

	t.Run("detector failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewAnalyzer(&fakeDetector{err: boom}).Analyze(context.Background(), photo)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("degenerate", func(t *testing.T) {
		l := landmarksWithRatio(1)
		l.RightHip = l.LeftHip
		_, err := NewAnalyzer(&fakeDetector{landmarks: l}).Analyze(context.Background(), photo)
		assert.ErrorIs(t, err, ErrDegenerateLandmarks)
	})

	t.Run("not an image", func(t *testing.T) {
		det := &fakeDetector{landmarks: landmarksWithRatio(1)}
		_, err := NewAnalyzer(det).Analyze(context.Background(), []byte("hello"))
		assert.ErrorIs(t, err, ErrUnsupportedImage)
		assert.Zero(t, det.calls, "detector must not run on rejected uploads")
	})

	t.Run("gif", func(t *testing.T) {
		var buf bytes.Buffer
		pal := image.NewPaletted(image.Rect(0, 0, 4, 4), []color.Color{color.Black, color.White})
		require.NoError(t, gif.Encode(&buf, pal, nil))

		_, err := NewAnalyzer(&fakeDetector{landmarks: landmarksWithRatio(1)}).Analyze(context.Background(), buf.Bytes())
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})
}

func TestAnnotateScalesDown(t *testing.T) {
	out, err := Annotate(testImage(1280, 640), *landmarksWithRatio(1.2), 1.2, 640)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 320, cfg.Height)
}

func TestSetDetector(t *testing.T) {
	a := NewAnalyzer(nil)
	assert.False(t, a.Available())
	assert.Equal(t, "none", a.DetectorName())

	a.SetDetector(&fakeDetector{landmarks: landmarksWithRatio(1)})
	assert.True(t, a.Available())
	assert.Equal(t, "fake", a.DetectorName())

	est, err := a.Analyze(context.Background(), encodePNG(t, testImage(32, 32)))
	require.NoError(t, err)
	assert.Equal(t, bmi.Overweight, est.Category)
}
