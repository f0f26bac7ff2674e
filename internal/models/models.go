package models

import "github.com/kartoza/ancu-kesehatan/internal/posture"

// AssessmentResponse is the JSON form of a BMI assessment
type AssessmentResponse struct {
	WeightKg float64 `json:"weight_kg"`
	HeightCm float64 `json:"height_cm"`
	BMI      float64 `json:"bmi"`
	Display  string  `json:"display"`
	Category string  `json:"category"`
	Label    string  `json:"label"`
	Risk     string  `json:"risk"`
	Advice   string  `json:"advice"`
	ChartURL string  `json:"chart_url"`
	Lang     string  `json:"lang"`
}

// PostureResponse is the JSON form of a photo estimate
type PostureResponse struct {
	Category  string            `json:"category"`
	Label     string            `json:"label"`
	Ratio     float64           `json:"ratio"`
	Landmarks posture.Landmarks `json:"landmarks"`
	Detector  string            `json:"detector"`
	Note      string            `json:"note"`
	// Annotated is a PNG data URL of the analysed photo
	Annotated string `json:"annotated,omitempty"`
}

// NoticeResponse tells the user why the photo step was skipped
type NoticeResponse struct {
	Notice string `json:"notice"`
	Reason string `json:"reason"`
}

// EducationRow is one localized row of the education table
type EducationRow struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Range    string `json:"range"`
	Risk     string `json:"risk"`
	Advice   string `json:"advice"`
}

// SaveAssessmentRequest asks the server to store an assessment
type SaveAssessmentRequest struct {
	WeightKg float64 `json:"weight_kg"`
	HeightCm float64 `json:"height_cm"`
	Notes    string  `json:"notes,omitempty"`
	Lang     string  `json:"lang,omitempty"`
	// Photo is an optional base64 image data URL, analysed before saving
	Photo string `json:"photo,omitempty"`
}

// ModelPackInstallRequest points at a model pack zip on disk
type ModelPackInstallRequest struct {
	Path string `json:"path"`
}
