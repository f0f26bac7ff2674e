package bmi

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		height float64
		want   float64
	}{
		{"slider defaults", 55, 160, 21.484375},
		{"heaviest and shortest", 150, 100, 150},
		{"lightest and tallest", 30, 200, 7.5},
		{"one meter eighty", 81, 180, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Compute(tt.weight, tt.height), 1e-9)
		})
	}
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		value float64
		want  Category
	}{
		{0, Underweight},
		{18.49, Underweight},
		{18.5, Normal},
		{24.9, Normal},
		{24.99, Normal},
		{25, Overweight},
		{29.99, Overweight},
		{30, Obese},
		{150, Obese},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.value), "bmi %.2f", tt.value)
	}
}

func TestAssessKnownValues(t *testing.T) {
	a, err := Assess(Measurement{WeightKg: 55, HeightCm: 160})
	require.NoError(t, err)
	assert.Equal(t, 21.48, a.Rounded(2))
	assert.Equal(t, 21.5, a.Rounded(1))
	assert.Equal(t, Normal, a.Category)

	a, err = Assess(Measurement{WeightKg: 150, HeightCm: 100})
	require.NoError(t, err)
	assert.Equal(t, 150.0, a.Rounded(1))
	assert.Equal(t, Obese, a.Category)
}

func TestAssessFullSliderRange(t *testing.T) {
	for w := MinWeightKg; w <= MaxWeightKg; w++ {
		for h := MinHeightCm; h <= MaxHeightCm; h++ {
			m := Measurement{WeightKg: float64(w), HeightCm: float64(h)}
			a, err := Assess(m)
			require.NoError(t, err)

			want := float64(w) / math.Pow(float64(h)/100, 2)
			if math.Abs(a.BMI-want) > 1e-9 {
				t.Fatalf("w=%d h=%d: bmi %.6f, want %.6f", w, h, a.BMI, want)
			}
			if a.Category != Classify(want) {
				t.Fatalf("w=%d h=%d: category %s, want %s", w, h, a.Category, Classify(want))
			}
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		m    Measurement
		ok   bool
	}{
		{"defaults", DefaultMeasurement(), true},
		{"lower bounds", Measurement{MinWeightKg, MinHeightCm}, true},
		{"upper bounds", Measurement{MaxWeightKg, MaxHeightCm}, true},
		{"too light", Measurement{29, 160}, false},
		{"too heavy", Measurement{151, 160}, false},
		{"too short", Measurement{55, 99}, false},
		{"too tall", Measurement{55, 201}, false},
		{"zero height", Measurement{55, 0}, false},
		{"nan weight", Measurement{math.NaN(), 160}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)

			_, err = Assess(tt.m)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestClamp(t *testing.T) {
	got := Measurement{WeightKg: 10, HeightCm: 250}.Clamp()
	assert.Equal(t, Measurement{WeightKg: MinWeightKg, HeightCm: MaxHeightCm}, got)

	got = Measurement{WeightKg: math.NaN(), HeightCm: math.NaN()}.Clamp()
	assert.Equal(t, DefaultMeasurement(), got)

	got = Measurement{WeightKg: 70, HeightCm: 175}.Clamp()
	assert.Equal(t, Measurement{WeightKg: 70, HeightCm: 175}, got)
}

func TestCategoryMessageIDs(t *testing.T) {
	assert.Equal(t, "category.obese", Obese.LabelID())
	assert.Equal(t, "risk.normal", Normal.RiskID())
	assert.Equal(t, "advice.underweight", Underweight.AdviceID())
}

func TestZonesCoverCategoriesInOrder(t *testing.T) {
	zones := Zones()
	require.Len(t, zones, len(Categories))
	for i, z := range zones {
		assert.Equal(t, Categories[i], z.Category)
		assert.Less(t, z.Min, z.Max)
		assert.Equal(t, z.Category, Classify(z.Min), "zone %s starts in its own bucket", z.Category)
	}
	assert.Equal(t, ChartMax, zones[len(zones)-1].Max)
}

func TestEducationTable(t *testing.T) {
	var got []string
	for _, row := range EducationTable() {
		got = append(got, string(row.Category)+" "+row.Range)
	}
	want := []string{
		"underweight < 18.5",
		"normal 18.5 – 24.9",
		"overweight 25 – 29.9",
		"obese ≥ 30",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("education table mismatch (-want +got):\n%s", diff)
	}
}
