package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const appDirName = "ancu-kesehatan"

// Settings are user choices persisted between runs
type Settings struct {
	// ModelPackPath is the directory of an installed pose model pack
	ModelPackPath string `yaml:"model_pack_path,omitempty"`
	// PoseURL is the external pose-estimation service
	PoseURL string `yaml:"pose_url,omitempty"`
	// Lang is the preferred interface language
	Lang string `yaml:"lang,omitempty"`
}

// settingsDirOverride lets tests point the settings file at a temp dir
var settingsDirOverride string

// SettingsDir returns the directory holding settings.yaml
func SettingsDir() (string, error) {
	if settingsDirOverride != "" {
		return settingsDirOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// DataStoreDir returns the directory for downloaded and extracted data
func DataStoreDir() (string, error) {
	if settingsDirOverride != "" {
		return filepath.Join(settingsDirOverride, "store"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("could not determine data directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func settingsPath() (string, error) {
	dir, err := SettingsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// LoadSettings reads the settings file. A missing file yields empty settings.
func LoadSettings() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return &Settings{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return &Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return &Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &s, nil
}

// SaveSettings writes the settings file, creating its directory
func SaveSettings(s *Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// SetSettingsDir overrides the settings location. Intended for tests.
func SetSettingsDir(dir string) {
	settingsDirOverride = dir
}
