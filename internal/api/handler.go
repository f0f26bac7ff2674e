package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/config"
	"github.com/kartoza/ancu-kesehatan/internal/history"
	"github.com/kartoza/ancu-kesehatan/internal/httputil"
	"github.com/kartoza/ancu-kesehatan/internal/locale"
	"github.com/kartoza/ancu-kesehatan/internal/monitoring"
	"github.com/kartoza/ancu-kesehatan/internal/posture"
	"github.com/kartoza/ancu-kesehatan/internal/report"
)

// Handler provides HTTP API endpoints
type Handler struct {
	catalog  *locale.Catalog
	analyzer *posture.Analyzer
	history  *history.Store
	cfg      config.Config
}

// NewHandler creates a new API handler. history may be nil.
func NewHandler(
	catalog *locale.Catalog,
	analyzer *posture.Analyzer,
	historyStore *history.Store,
	cfg config.Config,
) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	return &Handler{
		catalog:  catalog,
		analyzer: analyzer,
		history:  historyStore,
		cfg:      cfg,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Assessment
	r.HandleFunc("/bmi", h.handleBMI).Methods("GET")
	r.HandleFunc("/posture", h.handlePosture).Methods("POST")
	r.HandleFunc("/education", h.handleEducation).Methods("GET")

	// Saved assessments
	r.HandleFunc("/assessments", h.handleListAssessments).Methods("GET")
	r.HandleFunc("/assessments", h.handleCreateAssessment).Methods("POST")
	r.HandleFunc("/assessments/{id}", h.handleGetAssessment).Methods("GET")
	r.HandleFunc("/assessments/{id}", h.handleDeleteAssessment).Methods("DELETE")
}

// translator picks the language from ?lang=, then Accept-Language
func (h *Handler) translator(r *http.Request) *locale.Translator {
	return h.catalog.For(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), h.cfg.DefaultLang)
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	langs := []string{}
	for _, tag := range h.catalog.Languages() {
		langs = append(langs, tag.String())
	}
	info := map[string]interface{}{
		"version":        h.cfg.Version,
		"pose_available": h.analyzer.Available(),
		"pose_detector":  h.analyzer.DetectorName(),
		"history_loaded": h.history != nil,
		"languages":      langs,
		"limits": map[string]int{
			"weight_min": bmi.MinWeightKg,
			"weight_max": bmi.MaxWeightKg,
			"height_min": bmi.MinHeightCm,
			"height_max": bmi.MaxHeightCm,
		},
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleBMI computes and classifies the BMI for ?weight=&height=
func (h *Handler) handleBMI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("weight") == "" || q.Get("height") == "" {
		httputil.RespondError(w, http.StatusBadRequest, "weight and height query parameters are required")
		return
	}

	weight, err := strconv.ParseFloat(q.Get("weight"), 64)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "weight must be a number")
		return
	}
	height, err := strconv.ParseFloat(q.Get("height"), 64)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "height must be a number")
		return
	}

	a, err := bmi.Assess(bmi.Measurement{WeightKg: weight, HeightCm: height})
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report.Assessment(h.translator(r), a))
}

// handlePosture runs the pose detector on an uploaded photo
func (h *Handler) handlePosture(w http.ResponseWriter, r *http.Request) {
	tr := h.translator(r)

	data, err := httputil.ReadUpload(w, r, "photo", h.cfg.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, httputil.ErrNoUpload) {
			httputil.RespondError(w, http.StatusBadRequest, "photo is required")
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.Is(err, httputil.ErrTooLarge) || errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	est, err := h.analyzer.Analyze(r.Context(), data)
	if err != nil {
		notice, unexpected := report.Notice(tr, err)
		if unexpected {
			monitoring.CaptureException(err, map[string]string{"component": "posture", "detector": h.analyzer.DetectorName()})
		}
		httputil.RespondJSON(w, noticeStatus(notice.Reason), notice)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report.Posture(tr, est))
}

// noticeStatus maps a notice reason to an HTTP status
func noticeStatus(reason string) int {
	switch reason {
	case "no_body":
		return http.StatusUnprocessableEntity
	case "unavailable":
		return http.StatusServiceUnavailable
	case "unsupported":
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadGateway
	}
}

// handleEducation returns the localized education table
func (h *Handler) handleEducation(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, report.Education(h.translator(r)))
}
