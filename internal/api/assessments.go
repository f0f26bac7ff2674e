package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/history"
	"github.com/kartoza/ancu-kesehatan/internal/httputil"
	"github.com/kartoza/ancu-kesehatan/internal/models"
	"github.com/kartoza/ancu-kesehatan/internal/posture"
)

// handleListAssessments returns saved assessments, newest first
func (h *Handler) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "history store not available")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.history.List(limit)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusOK, records)
}

// handleGetAssessment returns one saved assessment
func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "history store not available")
		return
	}

	rec, err := h.history.Get(mux.Vars(r)["id"])
	if err != nil {
		respondHistoryError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}

// handleDeleteAssessment removes a saved assessment and its photo
func (h *Handler) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "history store not available")
		return
	}

	if err := h.history.Delete(mux.Vars(r)["id"]); err != nil {
		respondHistoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateAssessment recomputes the BMI from the submitted measurement,
// analyses the optional photo and stores the result
func (h *Handler) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "history store not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes*2)
	var req models.SaveAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := bmi.Assess(bmi.Measurement{WeightKg: req.WeightKg, HeightCm: req.HeightCm})
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lang := req.Lang
	if lang == "" {
		lang = h.translator(r).Lang()
	}
	rec := &history.Record{
		WeightKg: a.WeightKg,
		HeightCm: a.HeightCm,
		BMI:      a.BMI,
		Category: string(a.Category),
		Notes:    req.Notes,
		Lang:     lang,
	}

	var photo *history.Photo
	if req.Photo != "" {
		photo, err = history.DecodeDataURL(req.Photo)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		photo = h.attachEstimate(r, rec, photo)
	}

	saved, err := h.history.Create(rec, photo)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, saved)
}

// attachEstimate analyses the photo and, on success, fills the posture
// fields and swaps the photo for its annotated version. Failures keep the
// original photo and leave the posture fields empty.
func (h *Handler) attachEstimate(r *http.Request, rec *history.Record, photo *history.Photo) *history.Photo {
	est, err := h.analyzer.Analyze(r.Context(), photo.Data)
	if err != nil {
		if !errors.Is(err, posture.ErrUnavailable) {
			log.Printf("Photo analysis skipped for saved assessment: %v", err)
		}
		return photo
	}

	category := string(est.Category)
	ratio := est.Ratio
	rec.PostureCategory = &category
	rec.PostureRatio = &ratio
	if len(est.Annotated) > 0 {
		return &history.Photo{Data: est.Annotated, Ext: ".png"}
	}
	return photo
}

func respondHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		httputil.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	httputil.RespondError(w, http.StatusInternalServerError, err.Error())
}
