package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/chart"
	"github.com/kartoza/ancu-kesehatan/internal/locale"
	"github.com/kartoza/ancu-kesehatan/internal/models"
	"github.com/kartoza/ancu-kesehatan/internal/report"
)

// runInteractive prompts for one measurement and prints the assessment
func runInteractive(tr *locale.Translator, chartPath string) error {
	fmt.Println(tr.T("app.title"))
	fmt.Println(tr.T("app.subtitle"))
	fmt.Println()
	fmt.Println(tr.T("app.disclaimer"))
	fmt.Println()

	weight, err := askNumber(tr.T("form.weight"), bmi.MinWeightKg, bmi.MaxWeightKg, bmi.DefaultWeightKg)
	if err != nil {
		return err
	}
	height, err := askNumber(tr.T("form.height"), bmi.MinHeightCm, bmi.MaxHeightCm, bmi.DefaultHeightCm)
	if err != nil {
		return err
	}

	a, err := bmi.Assess(bmi.Measurement{WeightKg: weight, HeightCm: height})
	if err != nil {
		return err
	}
	printAssessment(os.Stdout, tr, report.Assessment(tr, a))

	if chartPath == "" {
		return nil
	}
	if err := writeChart(chartPath, tr, a.BMI); err != nil {
		return err
	}
	fmt.Printf("\n%s: %s\n", tr.T("result.chart"), chartPath)
	return nil
}

// askNumber prompts until the answer is a number within [min, max]
func askNumber(label string, min, max, def int) (float64, error) {
	prompt := &survey.Input{
		Message: fmt.Sprintf("%s [%d-%d]", label, min, max),
		Default: strconv.Itoa(def),
	}

	var out string
	if err := survey.AskOne(prompt, &out, survey.WithValidator(rangeValidator(min, max))); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return 0, fmt.Errorf("cancelled")
		}
		return 0, err
	}
	return parseNumber(out)
}

// parseNumber accepts both "55.5" and "55,5"
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}

// rangeValidator rejects answers that are not numbers within [min, max]
func rangeValidator(min, max int) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("expected text input")
		}
		v, err := parseNumber(s)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		if v < float64(min) || v > float64(max) {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	}
}

// printAssessment writes the result block the form page shows
func printAssessment(w io.Writer, tr *locale.Translator, resp models.AssessmentResponse) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", tr.T("result.bmi"), resp.Display)
	fmt.Fprintf(w, "%s: %s\n", tr.T("result.category"), resp.Label)
	fmt.Fprintf(w, "\n%s:\n  %s\n", tr.T("result.risk"), resp.Risk)
	fmt.Fprintf(w, "\n%s:\n  %s\n", tr.T("result.advice"), resp.Advice)
}

// writeChart renders the zone chart for value into path
func writeChart(path string, tr *locale.Translator, value float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	labels := map[bmi.Category]string{}
	for _, c := range bmi.Categories {
		labels[c] = tr.Category(c)
	}
	return chart.RenderPNG(f, value, chart.Options{AxisName: tr.T("result.axis"), Labels: labels})
}
