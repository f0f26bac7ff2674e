package report

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/locale"
	"github.com/kartoza/ancu-kesehatan/internal/models"
	"github.com/kartoza/ancu-kesehatan/internal/posture"
)

// ChartURL returns the chart endpoint for a BMI value
func ChartURL(value float64, lang string) string {
	q := url.Values{}
	q.Set("bmi", fmt.Sprintf("%.2f", value))
	if lang != "" {
		q.Set("lang", lang)
	}
	return "/chart.png?" + q.Encode()
}

// Assessment localizes a BMI assessment
func Assessment(tr *locale.Translator, a bmi.Assessment) models.AssessmentResponse {
	return models.AssessmentResponse{
		WeightKg: a.WeightKg,
		HeightCm: a.HeightCm,
		BMI:      a.Rounded(2),
		Display:  tr.Number(a.BMI),
		Category: string(a.Category),
		Label:    tr.Category(a.Category),
		Risk:     tr.T(a.Category.RiskID()),
		Advice:   tr.T(a.Category.AdviceID()),
		ChartURL: ChartURL(a.BMI, tr.Lang()),
		Lang:     tr.Lang(),
	}
}

// Posture localizes a photo estimate
func Posture(tr *locale.Translator, est *posture.Estimate) models.PostureResponse {
	resp := models.PostureResponse{
		Category:  string(est.Category),
		Label:     tr.VisualCategory(est.Category),
		Ratio:     est.Ratio,
		Landmarks: est.Landmarks,
		Detector:  est.Detector,
		Note:      tr.T("posture.note"),
	}
	if len(est.Annotated) > 0 {
		resp.Annotated = "data:image/png;base64," + base64.StdEncoding.EncodeToString(est.Annotated)
	}
	return resp
}

// Notice maps a photo analysis error to a user-facing notice. Expected
// outcomes (no body, no detector, bad format) are not worth reporting;
// anything else is.
func Notice(tr *locale.Translator, err error) (notice models.NoticeResponse, unexpected bool) {
	var id, reason string
	switch {
	case errors.Is(err, posture.ErrNoBody), errors.Is(err, posture.ErrDegenerateLandmarks):
		id, reason = "posture.no_body", "no_body"
	case errors.Is(err, posture.ErrUnavailable):
		id, reason = "posture.unavailable", "unavailable"
	case errors.Is(err, posture.ErrUnsupportedImage):
		id, reason = "posture.unsupported", "unsupported"
	default:
		id, reason, unexpected = "posture.failed", "failed", true
	}
	return models.NoticeResponse{Notice: tr.T(id), Reason: reason}, unexpected
}

// Education localizes the education table
func Education(tr *locale.Translator) []models.EducationRow {
	rows := bmi.EducationTable()
	out := make([]models.EducationRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.EducationRow{
			Category: string(r.Category),
			Label:    tr.Category(r.Category),
			Range:    r.Range,
			Risk:     tr.T(r.RiskID),
			Advice:   tr.T(r.AdviceID),
		})
	}
	return out
}
