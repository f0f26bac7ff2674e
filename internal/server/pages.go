package server

import (
	"bytes"
	"errors"
	"html/template"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/chart"
	"github.com/kartoza/ancu-kesehatan/internal/history"
	"github.com/kartoza/ancu-kesehatan/internal/httputil"
	"github.com/kartoza/ancu-kesehatan/internal/locale"
	"github.com/kartoza/ancu-kesehatan/internal/models"
	"github.com/kartoza/ancu-kesehatan/internal/monitoring"
	"github.com/kartoza/ancu-kesehatan/internal/report"
)

// pageData feeds templates/index.html
type pageData struct {
	Tr        *locale.Translator
	Languages []string
	Limits    limits
	Result    models.AssessmentResponse
	Posture   *models.PostureResponse
	Notice    *models.NoticeResponse
	Education []models.EducationRow
	// History is true when saving is possible
	History bool
	Saved   *history.Record
	SaveErr string

	assessment bmi.Assessment
}

type limits struct {
	WeightMin, WeightMax int
	HeightMin, HeightMax int
}

var pageFuncs = template.FuncMap{
	// safeURL allows the annotated photo data URL in an img src
	"safeURL": func(s string) template.URL { return template.URL(s) },
}

// translator picks the language from ?lang= or the form, then Accept-Language
func (s *Server) translator(r *http.Request) *locale.Translator {
	return s.catalog.For(r.FormValue("lang"), r.Header.Get("Accept-Language"), s.cfg.DefaultLang)
}

// measurement reads w/h (or weight/height) from the request. Missing or
// unparseable values take the slider defaults; the rest are clamped.
func measurement(r *http.Request) bmi.Measurement {
	m := bmi.DefaultMeasurement()
	if v, ok := formFloat(r, "weight", "w"); ok {
		m.WeightKg = v
	}
	if v, ok := formFloat(r, "height", "h"); ok {
		m.HeightCm = v
	}
	return m.Clamp()
}

func formFloat(r *http.Request, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw := r.FormValue(k)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// newPage builds the page for a measurement
func (s *Server) newPage(tr *locale.Translator, m bmi.Measurement) (*pageData, error) {
	a, err := bmi.Assess(m)
	if err != nil {
		return nil, err
	}
	langs := []string{}
	for _, tag := range s.catalog.Languages() {
		langs = append(langs, tag.String())
	}
	return &pageData{
		Tr:        tr,
		Languages: langs,
		Limits: limits{
			WeightMin: bmi.MinWeightKg, WeightMax: bmi.MaxWeightKg,
			HeightMin: bmi.MinHeightCm, HeightMax: bmi.MaxHeightCm,
		},
		Result:     report.Assessment(tr, a),
		Education:  report.Education(tr),
		History:    s.history != nil,
		assessment: a,
	}, nil
}

// handleIndex renders the form with the assessment for the current values
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tr := s.translator(r)
	page, err := s.newPage(tr, measurement(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.render(w, page)
}

// handleAnalyze renders the page for a submitted form, running the photo
// step when a photo is attached and saving when asked to
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, uploadErr := []byte(nil), httputil.ErrNoUpload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, uploadErr = httputil.ReadUpload(w, r, "photo", s.cfg.MaxUploadBytes)
	}

	tr := s.translator(r)
	failed := uploadErr != nil && !errors.Is(uploadErr, httputil.ErrNoUpload)
	if failed {
		log.Printf("Warning: could not read uploaded photo: %v", uploadErr)
		if !hasMeasurement(r) {
			// The body was cut off before the measurement fields
			status, notice := uploadNotice(tr, uploadErr)
			http.Error(w, notice.Notice, status)
			return
		}
	}

	page, err := s.newPage(tr, measurement(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var photo *history.Photo
	switch {
	case uploadErr == nil:
		photo = s.analyzePhoto(r, tr, page, data)
	case failed:
		_, notice := uploadNotice(tr, uploadErr)
		page.Notice = &notice
	}

	if r.FormValue("save") != "" && s.history != nil {
		s.saveAssessment(r, page, photo)
	}

	s.render(w, page)
}

// analyzePhoto fills the posture section and returns the photo to keep
func (s *Server) analyzePhoto(r *http.Request, tr *locale.Translator, page *pageData, data []byte) *history.Photo {
	est, err := s.analyzer.Analyze(r.Context(), data)
	if err != nil {
		notice, unexpected := report.Notice(tr, err)
		if unexpected {
			log.Printf("Photo analysis failed: %v", err)
			monitoring.CaptureException(err, map[string]string{"component": "posture", "detector": s.analyzer.DetectorName()})
		}
		page.Notice = &notice
		return originalPhoto(data)
	}

	resp := report.Posture(tr, est)
	page.Posture = &resp
	if len(est.Annotated) == 0 {
		return originalPhoto(data)
	}
	return &history.Photo{Data: est.Annotated, Ext: ".png"}
}

// originalPhoto keeps the uploaded bytes when they are a PNG or JPEG
func originalPhoto(data []byte) *history.Photo {
	photo, err := history.NewPhoto(data)
	if err != nil {
		return nil
	}
	return photo
}

// hasMeasurement reports whether the form carries both measurements
func hasMeasurement(r *http.Request) bool {
	return (r.FormValue("weight") != "" || r.FormValue("w") != "") &&
		(r.FormValue("height") != "" || r.FormValue("h") != "")
}

// uploadNotice maps an unreadable upload to a status and notice
func uploadNotice(tr *locale.Translator, err error) (int, models.NoticeResponse) {
	var maxBytes *http.MaxBytesError
	if errors.Is(err, httputil.ErrTooLarge) || errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge, models.NoticeResponse{Notice: tr.T("posture.too_large"), Reason: "too_large"}
	}
	return http.StatusBadRequest, models.NoticeResponse{Notice: tr.T("posture.failed"), Reason: "failed"}
}

// saveAssessment stores the page's result in the history
func (s *Server) saveAssessment(r *http.Request, page *pageData, photo *history.Photo) {
	rec := &history.Record{
		WeightKg: page.assessment.WeightKg,
		HeightCm: page.assessment.HeightCm,
		BMI:      page.assessment.BMI,
		Category: string(page.assessment.Category),
		Notes:    r.FormValue("notes"),
		Lang:     page.Tr.Lang(),
	}
	if page.Posture != nil {
		category := page.Posture.Category
		ratio := page.Posture.Ratio
		rec.PostureCategory = &category
		rec.PostureRatio = &ratio
	}

	saved, err := s.history.Create(rec, photo)
	if err != nil {
		log.Printf("Warning: could not save assessment: %v", err)
		page.SaveErr = page.Tr.T("history.save_failed")
		return
	}
	page.Saved = saved
}

// handleChart renders the zone chart for ?bmi=
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.ParseFloat(r.URL.Query().Get("bmi"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		http.Error(w, "bmi must be a non-negative number", http.StatusBadRequest)
		return
	}

	tr := s.translator(r)
	labels := map[bmi.Category]string{}
	for _, c := range bmi.Categories {
		labels[c] = tr.Category(c)
	}

	var buf bytes.Buffer
	err = chart.RenderPNG(&buf, value, chart.Options{AxisName: tr.T("result.axis"), Labels: labels})
	if err != nil {
		log.Printf("Chart render failed: %v", err)
		http.Error(w, "could not render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(buf.Bytes())
}

// render executes the page template into a buffer so errors never leave a
// half-written page
func (s *Server) render(w http.ResponseWriter, page *pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "index.html", page); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
