package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/config"
	"github.com/kartoza/ancu-kesehatan/internal/pose"
	"github.com/kartoza/ancu-kesehatan/internal/posture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	landmarks *posture.Landmarks
}

func (s *stubDetector) Detect(_ context.Context, _ []byte) (*posture.Landmarks, error) {
	return s.landmarks, nil
}

func (s *stubDetector) Name() string { return "stub" }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	config.SetSettingsDir(t.TempDir())
	t.Cleanup(func() { config.SetSettingsDir("") })

	s, err := New(config.Config{Port: 0, DataDir: t.TempDir(), Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 3), B: 0x60, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// analyzeRequest builds the multipart form the page submits
func analyzeRequest(t *testing.T, fields map[string]string, photo []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "front.png")
		require.NoError(t, err)
		fw.Write(photo)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndexDefaults(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Ancu Kesehatan")
	assert.Contains(t, body, `lang="id"`)
	assert.Contains(t, body, `value="55"`)
	assert.Contains(t, body, `value="160"`)
	assert.Contains(t, body, "/chart.png?bmi=21.48")
	assert.Contains(t, body, "Pendampingan medis")
}

func TestIndexQueryValues(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest("GET", "/?w=150&h=100&lang=en", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `lang="en"`)
	assert.Contains(t, body, "Obese")
	assert.Contains(t, body, "150.0")
}

func TestIndexClampsValues(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest("GET", "/?w=500&h=20", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `value="150"`)
	assert.Contains(t, body, `value="100"`)
}

func TestAnalyzeWithoutPhoto(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, analyzeRequest(t, map[string]string{"weight": "40", "height": "160", "lang": "id"}, nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Kurus")
	assert.NotContains(t, body, "Hasil Estimasi AI")
	assert.NotContains(t, body, `class="notice`)
}

func TestAnalyzePhotoWithoutDetector(t *testing.T) {
	s := newTestServer(t)
	s.analyzer.SetDetector(nil)

	w := serve(s, analyzeRequest(t, map[string]string{"weight": "55", "height": "160"}, testPNG(t)))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Body.String(), "Modul estimasi postur tidak tersedia")
}

func TestAnalyzePhoto(t *testing.T) {
	s := newTestServer(t)
	s.analyzer.SetDetector(&stubDetector{landmarks: &posture.Landmarks{
		LeftShoulder:  posture.Point{X: 0.6, Y: 0.3},
		RightShoulder: posture.Point{X: 0.4, Y: 0.3},
		LeftHip:       posture.Point{X: 0.6, Y: 0.6},
		RightHip:      posture.Point{X: 0.4, Y: 0.6},
	}})

	w := serve(s, analyzeRequest(t, map[string]string{"weight": "55", "height": "160"}, testPNG(t)))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Hasil Estimasi AI")
	assert.Contains(t, body, "Gemuk (Estimasi Visual)")
	assert.Contains(t, body, "data:image/png;base64,")
}

func TestAnalyzeNoBody(t *testing.T) {
	s := newTestServer(t)
	s.analyzer.SetDetector(&stubDetector{})

	w := serve(s, analyzeRequest(t, map[string]string{"weight": "55", "height": "160"}, testPNG(t)))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Tubuh tidak terdeteksi")
	// The BMI result is still shown
	assert.Contains(t, body, "/chart.png?bmi=21.48")
}

func TestAnalyzeSave(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s.history)

	fields := map[string]string{"weight": "70", "height": "170", "save": "1", "notes": "<i>pagi</i>"}
	w := serve(s, analyzeRequest(t, fields, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hasil disimpan.")

	records, err := s.history.List(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "normal", records[0].Category)
	assert.Equal(t, "pagi", records[0].Notes)
	assert.Equal(t, bmi.Compute(70, 170), records[0].BMI)
	assert.Nil(t, records[0].Photo)
}

func TestAnalyzeSaveKeepsPhotoWithoutDetector(t *testing.T) {
	s := newTestServer(t)
	s.analyzer.SetDetector(nil)

	fields := map[string]string{"weight": "70", "height": "170", "save": "1"}
	w := serve(s, analyzeRequest(t, fields, testPNG(t)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hasil disimpan.")

	records, err := s.history.List(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Photo)
	assert.True(t, strings.HasSuffix(*records[0].Photo, ".png"))
	assert.Nil(t, records[0].PostureCategory)

	w = serve(s, httptest.NewRequest("GET", *records[0].Photo, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeOversizePhotoKeepsMeasurement(t *testing.T) {
	s := newTestServer(t)
	s.cfg.MaxUploadBytes = 2048

	fields := map[string]string{"weight": "100", "height": "170", "lang": "en"}
	w := serve(s, analyzeRequest(t, fields, bytes.Repeat([]byte("x"), 8<<10)))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "/chart.png?bmi=34.60")
	assert.NotContains(t, body, "/chart.png?bmi=21.48")
	assert.Contains(t, body, "Obese")
	assert.Contains(t, body, "The photo is too large")
}

func TestAnalyzeTruncatedFormRejected(t *testing.T) {
	s := newTestServer(t)
	s.cfg.MaxUploadBytes = 1024

	// Only the photo arrives; the measurement would otherwise fall back to defaults
	w := serve(s, analyzeRequest(t, nil, bytes.Repeat([]byte("x"), 8<<10)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.NotContains(t, w.Body.String(), "/chart.png?bmi=21.48")
}

func TestChart(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest("GET", "/chart.png?bmi=21.48&lang=en", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	cfg, err := png.DecodeConfig(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 200, cfg.Height)

	for _, q := range []string{"", "?bmi=abc", "?bmi=-1", "?bmi=NaN"} {
		w := serve(s, httptest.NewRequest("GET", "/chart.png"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestStaticAndAPI(t *testing.T) {
	s := newTestServer(t)

	w := serve(s, httptest.NewRequest("GET", "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/css"))

	w = serve(s, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, httptest.NewRequest("GET", "/api/bmi?weight=55&height=160", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// writeZip creates a zip with the given entries
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		w.Write([]byte(content))
	}
	require.NoError(t, zw.Close())
}

func installRequest(path string) *http.Request {
	body, _ := json.Marshal(map[string]string{"path": path})
	return httptest.NewRequest("POST", "/api/modelpack/install", bytes.NewReader(body))
}

func TestModelPackInstall(t *testing.T) {
	s := newTestServer(t)

	zipPath := filepath.Join(t.TempDir(), "openpose-coco.zip")
	writeZip(t, zipPath, map[string]string{
		"openpose-coco/" + pose.ModelConfigFile:  "name: \"OpenPose\"",
		"openpose-coco/" + pose.ModelWeightsFile: "weights",
		"openpose-coco/manifest.json":            `{"model": "coco", "version": "1.0"}`,
	})

	w := serve(s, installRequest(zipPath))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, true, resp["installed"])

	packDir := resp["path"].(string)
	assert.True(t, pose.HasModel(packDir))

	settings, err := config.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, packDir, settings.ModelPackPath)

	w = serve(s, httptest.NewRequest("GET", "/api/modelpack/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, true, status["installed"])
	assert.Equal(t, "1.0", status["version"])
}

func TestModelPackInstallFlatArchive(t *testing.T) {
	s := newTestServer(t)

	zipPath := filepath.Join(t.TempDir(), "flat.zip")
	writeZip(t, zipPath, map[string]string{
		pose.ModelConfigFile:  "cfg",
		pose.ModelWeightsFile: "weights",
	})

	w := serve(s, installRequest(zipPath))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "flat", filepath.Base(resp["path"].(string)))
}

func TestModelPackInstallRejects(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()

	incomplete := filepath.Join(dir, "incomplete.zip")
	writeZip(t, incomplete, map[string]string{"pack/readme.txt": "hello"})

	notZip := filepath.Join(dir, "model.tar")
	require.NoError(t, os.WriteFile(notZip, []byte("x"), 0o644))

	for name, path := range map[string]string{
		"empty path": "",
		"missing":    filepath.Join(dir, "nope.zip"),
		"not a zip":  notZip,
		"incomplete": incomplete,
	} {
		w := serve(s, installRequest(path))
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w := serve(s, httptest.NewRequest("GET", "/api/modelpack/status", nil))
	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, false, status["installed"])
}

func TestExtractModelPackZipSlip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../evil.txt": "boom"})

	target := filepath.Join(dir, "target")
	require.NoError(t, os.MkdirAll(target, 0o755))

	_, err := extractModelPack(zipPath, target)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(zipPath)
	assert.NoError(t, statErr)
}
