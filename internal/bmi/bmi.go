package bmi

import (
	"errors"
	"fmt"
	"math"
)

// Slider bounds and defaults for the measurement form
const (
	MinWeightKg     = 30
	MaxWeightKg     = 150
	DefaultWeightKg = 55

	MinHeightCm     = 100
	MaxHeightCm     = 200
	DefaultHeightCm = 160
)

// ErrOutOfRange is returned when a measurement falls outside the slider bounds
var ErrOutOfRange = errors.New("measurement out of range")

// Category is one of the four risk buckets
type Category string

const (
	Underweight Category = "underweight"
	Normal      Category = "normal"
	Overweight  Category = "overweight"
	Obese       Category = "obese"
)

// Categories lists every category from lowest to highest BMI
var Categories = []Category{Underweight, Normal, Overweight, Obese}

// LabelID returns the message ID of the category's display label
func (c Category) LabelID() string { return "category." + string(c) }

// RiskID returns the message ID of the category's risk statement
func (c Category) RiskID() string { return "risk." + string(c) }

// AdviceID returns the message ID of the category's advice
func (c Category) AdviceID() string { return "advice." + string(c) }

// Measurement holds the two form inputs
type Measurement struct {
	WeightKg float64 `json:"weight_kg"`
	HeightCm float64 `json:"height_cm"`
}

// DefaultMeasurement returns the slider defaults
func DefaultMeasurement() Measurement {
	return Measurement{WeightKg: DefaultWeightKg, HeightCm: DefaultHeightCm}
}

// Validate checks the measurement against the slider bounds
func (m Measurement) Validate() error {
	if math.IsNaN(m.WeightKg) || m.WeightKg < MinWeightKg || m.WeightKg > MaxWeightKg {
		return fmt.Errorf("%w: weight %.1f kg not in [%d, %d]", ErrOutOfRange, m.WeightKg, MinWeightKg, MaxWeightKg)
	}
	if math.IsNaN(m.HeightCm) || m.HeightCm < MinHeightCm || m.HeightCm > MaxHeightCm {
		return fmt.Errorf("%w: height %.1f cm not in [%d, %d]", ErrOutOfRange, m.HeightCm, MinHeightCm, MaxHeightCm)
	}
	return nil
}

// Clamp pulls both values into the slider bounds, the way the form sliders do
func (m Measurement) Clamp() Measurement {
	return Measurement{
		WeightKg: clamp(m.WeightKg, MinWeightKg, MaxWeightKg, DefaultWeightKg),
		HeightCm: clamp(m.HeightCm, MinHeightCm, MaxHeightCm, DefaultHeightCm),
	}
}

func clamp(v, lo, hi, def float64) float64 {
	switch {
	case math.IsNaN(v):
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Compute returns weight divided by height in meters squared.
// heightCm must be positive.
func Compute(weightKg, heightCm float64) float64 {
	heightM := heightCm / 100
	return weightKg / (heightM * heightM)
}

// Classify maps a BMI value onto its category
func Classify(value float64) Category {
	switch {
	case value < 18.5:
		return Underweight
	case value < 25:
		return Normal
	case value < 30:
		return Overweight
	default:
		return Obese
	}
}

// Assessment is the outcome of one form submission
type Assessment struct {
	Measurement
	BMI      float64  `json:"bmi"`
	Category Category `json:"category"`
}

// Assess validates, computes and classifies a measurement
func Assess(m Measurement) (Assessment, error) {
	if err := m.Validate(); err != nil {
		return Assessment{}, err
	}
	value := Compute(m.WeightKg, m.HeightCm)
	return Assessment{
		Measurement: m,
		BMI:         value,
		Category:    Classify(value),
	}, nil
}

// Rounded returns the BMI rounded to the given number of decimals
func (a Assessment) Rounded(decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(a.BMI*p) / p
}
