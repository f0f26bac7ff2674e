package server

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kartoza/ancu-kesehatan/internal/config"
	"github.com/kartoza/ancu-kesehatan/internal/httputil"
	"github.com/kartoza/ancu-kesehatan/internal/models"
	"github.com/kartoza/ancu-kesehatan/internal/pose"
)

// modelPackManifest describes the contents of a model pack zip
type modelPackManifest struct {
	Model       string `json:"model"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// handleModelPackStatus returns the installed model pack, if any
func (s *Server) handleModelPackStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"detector":        s.analyzer.DetectorName(),
		"pose_available":  s.analyzer.Available(),
		"local_supported": pose.LocalAvailable,
	}

	settings, err := config.LoadSettings()
	if err != nil {
		status["installed"] = false
		status["error"] = err.Error()
		httputil.RespondJSON(w, http.StatusOK, status)
		return
	}

	if settings.ModelPackPath == "" {
		status["installed"] = false
		httputil.RespondJSON(w, http.StatusOK, status)
		return
	}

	if !pose.HasModel(settings.ModelPackPath) {
		status["installed"] = false
		status["error"] = "model pack path no longer holds the pose model"
		httputil.RespondJSON(w, http.StatusOK, status)
		return
	}

	// Manifest is optional
	var manifest modelPackManifest
	if data, err := os.ReadFile(filepath.Join(settings.ModelPackPath, "manifest.json")); err == nil {
		json.Unmarshal(data, &manifest)
	}

	status["installed"] = true
	status["path"] = settings.ModelPackPath
	status["model"] = manifest.Model
	status["version"] = manifest.Version
	status["description"] = manifest.Description
	httputil.RespondJSON(w, http.StatusOK, status)
}

// handleModelPackInstall extracts a model pack zip, registers it and
// reloads the pose detector
func (s *Server) handleModelPackInstall(w http.ResponseWriter, r *http.Request) {
	var req models.ModelPackInstallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Path == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if _, err := os.Stat(req.Path); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("file not found: %s", req.Path))
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.Path), ".zip") {
		httputil.RespondError(w, http.StatusBadRequest, "file must be a .zip archive")
		return
	}

	storeDir, err := config.DataStoreDir()
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not determine data directory: %v", err))
		return
	}
	extractDir := filepath.Join(storeDir, "modelpacks")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not create directory: %v", err))
		return
	}

	packDir, err := extractModelPack(req.Path, extractDir)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	if !pose.HasModel(packDir) {
		os.RemoveAll(packDir)
		httputil.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid model pack: expected %s and %s", pose.ModelConfigFile, pose.ModelWeightsFile))
		return
	}

	settings, _ := config.LoadSettings()
	settings.ModelPackPath = packDir
	if err := config.SaveSettings(settings); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not save settings: %v", err))
		return
	}

	s.cfg.ModelDir = packDir
	s.loadDetector(packDir)

	log.Printf("Model pack installed: %s", packDir)
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"installed":      true,
		"path":           packDir,
		"detector":       s.analyzer.DetectorName(),
		"pose_available": s.analyzer.Available(),
	})
}

// extractModelPack unzips a model pack into targetDir and returns the pack
// root. Archives with a single top-level directory use it as the root;
// flat archives are extracted into a directory named after the zip.
func extractModelPack(zipPath, targetDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("could not open zip: %w", err)
	}
	defer r.Close()

	if len(r.File) == 0 {
		return "", fmt.Errorf("empty zip archive")
	}

	rootDir := commonRoot(r.File)
	base := targetDir
	if rootDir == "" {
		rootDir = strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
		base = filepath.Join(targetDir, rootDir)
	}
	packDir := filepath.Join(targetDir, rootDir)
	if !strings.HasPrefix(packDir, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal root directory in zip: %s", rootDir)
	}

	// Remove existing extraction if present
	os.RemoveAll(packDir)

	for _, f := range r.File {
		// Sanitize path to prevent zip slip
		destPath := filepath.Join(base, f.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(targetDir)+string(os.PathSeparator)) {
			return "", fmt.Errorf("illegal file path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(destPath, 0o755)
			continue
		}
		if err := extractFile(f, destPath); err != nil {
			return "", err
		}
	}

	return packDir, nil
}

// commonRoot returns the single top-level directory shared by every entry, or ""
func commonRoot(files []*zip.File) string {
	var root string
	for _, f := range files {
		parts := strings.SplitN(f.Name, "/", 2)
		if len(parts) < 2 {
			return ""
		}
		if root == "" {
			root = parts[0]
		} else if parts[0] != root {
			return ""
		}
	}
	return root
}

func extractFile(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("could not create directory: %w", err)
	}

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer outFile.Close()

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("could not open zip entry: %w", err)
	}
	defer rc.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("could not extract file: %w", err)
	}
	return nil
}
