package pose

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kartoza/ancu-kesehatan/internal/posture"
)

// Files expected in a model pack for the local detector (OpenPose COCO)
const (
	ModelConfigFile  = "pose_deploy_linevec.prototxt"
	ModelWeightsFile = "pose_iter_440000.caffemodel"
)

// LocalConfig holds the local detector settings
type LocalConfig struct {
	ModelDir  string
	InputSize int
	Threshold float64
}

// DefaultLocalConfig returns sensible defaults for the COCO model
func DefaultLocalConfig(modelDir string) LocalConfig {
	return LocalConfig{
		ModelDir:  modelDir,
		InputSize: 368,
		Threshold: 0.1,
	}
}

// ModelFiles returns the config and weight paths inside dir
func ModelFiles(dir string) (string, string) {
	return filepath.Join(dir, ModelConfigFile), filepath.Join(dir, ModelWeightsFile)
}

// HasModel reports whether dir holds a complete model pack
func HasModel(dir string) bool {
	if dir == "" {
		return false
	}
	cfgPath, weightsPath := ModelFiles(dir)
	for _, p := range []string{cfgPath, weightsPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Config selects a detector backend
type Config struct {
	RemoteURL     string
	RemoteTimeout time.Duration
	ModelDir      string
}

// New picks the first usable backend: the remote service when a URL is set,
// otherwise the local model when it is compiled in and present. It returns
// posture.ErrUnavailable when neither can be used.
func New(cfg Config) (posture.Detector, error) {
	if cfg.RemoteURL != "" {
		log.Printf("Pose detector: remote service at %s", cfg.RemoteURL)
		return NewRemoteDetector(RemoteConfig{URL: cfg.RemoteURL, Timeout: cfg.RemoteTimeout}), nil
	}

	if !LocalAvailable {
		return nil, fmt.Errorf("%w: built without gocv tag and no remote URL configured", posture.ErrUnavailable)
	}
	if !HasModel(cfg.ModelDir) {
		return nil, fmt.Errorf("%w: no pose model found in %q", posture.ErrUnavailable, cfg.ModelDir)
	}

	det, err := NewLocalDetector(DefaultLocalConfig(cfg.ModelDir))
	if err != nil {
		return nil, err
	}
	log.Printf("Pose detector: local model from %s", cfg.ModelDir)
	return det, nil
}
