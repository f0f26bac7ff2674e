package bmi

// Zone is one coloured band of the BMI chart
type Zone struct {
	Category Category
	Min      float64
	Max      float64
	Color    string
}

// ChartMax is the right edge of the chart when the marker fits inside it
const ChartMax = 40.0

// Zones returns the chart bands. The upper edges of the middle bands stop at
// 24.9 and 29.9 so the bands read like the education table.
func Zones() []Zone {
	return []Zone{
		{Category: Underweight, Min: 0, Max: 18.5, Color: "#5DADE2"},
		{Category: Normal, Min: 18.5, Max: 24.9, Color: "#27AE60"},
		{Category: Overweight, Min: 25, Max: 29.9, Color: "#F4D03F"},
		{Category: Obese, Min: 30, Max: ChartMax, Color: "#E74C3C"},
	}
}

// EducationRow is one row of the general education table
type EducationRow struct {
	Category Category `json:"category"`
	Range    string   `json:"range"`
	RiskID   string   `json:"-"`
	AdviceID string   `json:"-"`
}

// EducationTable returns the four rows shown under the form
func EducationTable() []EducationRow {
	ranges := map[Category]string{
		Underweight: "< 18.5",
		Normal:      "18.5 – 24.9",
		Overweight:  "25 – 29.9",
		Obese:       "≥ 30",
	}
	rows := make([]EducationRow, 0, len(Categories))
	for _, c := range Categories {
		rows = append(rows, EducationRow{
			Category: c,
			Range:    ranges[c],
			RiskID:   "education.risk." + string(c),
			AdviceID: "education.advice." + string(c),
		})
	}
	return rows
}
