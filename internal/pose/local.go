//go:build gocv

package pose

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kartoza/ancu-kesehatan/internal/posture"
	"gocv.io/x/gocv"
)

// LocalAvailable reports whether the local detector was compiled in
const LocalAvailable = true

// COCO body part indices of the OpenPose output
const (
	cocoRightShoulder = 2
	cocoLeftShoulder  = 5
	cocoRightHip      = 8
	cocoLeftHip       = 11
)

// LocalDetector runs an OpenPose COCO model through OpenCV's DNN module
type LocalDetector struct {
	net       gocv.Net
	inputSize int
	threshold float64
	mu        sync.Mutex
}

// NewLocalDetector loads the model pack from cfg.ModelDir
func NewLocalDetector(cfg LocalConfig) (*LocalDetector, error) {
	cfgPath, weightsPath := ModelFiles(cfg.ModelDir)

	net := gocv.ReadNet(weightsPath, cfgPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: could not read network from %s", posture.ErrUnavailable, cfg.ModelDir)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set DNN backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set DNN target: %w", err)
	}

	size := cfg.InputSize
	if size <= 0 {
		size = 368
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.1
	}

	return &LocalDetector{net: net, inputSize: size, threshold: threshold}, nil
}

// Name identifies the backend
func (d *LocalDetector) Name() string {
	return "local"
}

// Detect runs one forward pass and takes the peak of each heatmap
func (d *LocalDetector) Detect(ctx context.Context, imageData []byte) (*posture.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, posture.ErrUnsupportedImage
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	// gocv.Net is not safe for concurrent use
	d.mu.Lock()
	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	d.mu.Unlock()
	defer prob.Close()

	// Output shape is 1 x parts x H x W
	dims := prob.Size()
	if len(dims) != 4 {
		return nil, fmt.Errorf("unexpected network output shape %v", dims)
	}
	h, w := dims[2], dims[3]

	part := func(idx int) (posture.Point, bool) {
		heatmap, err := prob.FromPtr(h, w, gocv.MatTypeCV32F, 0, idx)
		if err != nil {
			return posture.Point{}, false
		}
		defer heatmap.Close()

		_, maxVal, _, maxLoc := gocv.MinMaxLoc(heatmap)
		if float64(maxVal) < d.threshold {
			return posture.Point{}, false
		}
		return posture.Point{
			X:          float64(maxLoc.X) / float64(w),
			Y:          float64(maxLoc.Y) / float64(h),
			Visibility: float64(maxVal),
		}, true
	}

	ls, ok1 := part(cocoLeftShoulder)
	rs, ok2 := part(cocoRightShoulder)
	lh, ok3 := part(cocoLeftHip)
	rh, ok4 := part(cocoRightHip)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, posture.ErrNoBody
	}

	return &posture.Landmarks{
		LeftShoulder:  ls,
		RightShoulder: rs,
		LeftHip:       lh,
		RightHip:      rh,
	}, nil
}

// Close releases the network
func (d *LocalDetector) Close() error {
	return d.net.Close()
}
