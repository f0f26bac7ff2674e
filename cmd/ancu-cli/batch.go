package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/kartoza/ancu-kesehatan/internal/bmi"
	"github.com/kartoza/ancu-kesehatan/internal/locale"
)

// Header names accepted for the two measurement columns
var (
	weightHeaders = []string{"weight_kg", "weight", "berat", "berat_kg"}
	heightHeaders = []string{"height_cm", "height", "tinggi", "tinggi_cm"}
)

// Columns appended to every output row
var resultHeaders = []string{"bmi", "category", "label", "error"}

// batchSummary counts the rows of a batch run
type batchSummary struct {
	Rows    int
	Invalid int
	Counts  map[bmi.Category]int
}

func runBatchCommand(catalog *locale.Catalog, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	in := fs.String("in", "", "Input CSV with weight_kg and height_cm columns")
	out := fs.String("out", "", "Output CSV (default: stdout)")
	lang := fs.String("lang", envLang(), "Label language (id or en)")
	fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	inFile, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer inFile.Close()

	var w io.Writer = os.Stdout
	if *out != "" {
		outFile, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer outFile.Close()
		w = outFile
	}

	tr := catalog.For(*lang)
	summary, err := runBatch(inFile, w, tr, os.Stderr)
	if err != nil {
		return err
	}

	log.Printf("Assessed %d rows (%d invalid)", summary.Rows, summary.Invalid)
	for _, c := range bmi.Categories {
		log.Printf("  %-10s %d", tr.Category(c), summary.Counts[c])
	}
	return nil
}

// runBatch assesses every row of in and writes the rows with the result
// columns appended to out. Rows with bad or out-of-range values are kept
// with the error column filled. progress receives the progress bar.
func runBatch(in io.Reader, out io.Writer, tr *locale.Translator, progress io.Writer) (batchSummary, error) {
	summary := batchSummary{Counts: map[bmi.Category]int{}}

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return summary, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return summary, fmt.Errorf("input CSV is empty")
	}

	header := records[0]
	wi := findColumn(header, weightHeaders)
	hi := findColumn(header, heightHeaders)
	if wi < 0 || hi < 0 {
		return summary, fmt.Errorf("input CSV needs %s and %s columns", weightHeaders[0], heightHeaders[0])
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(append(append([]string{}, header...), resultHeaders...)); err != nil {
		return summary, fmt.Errorf("failed to write CSV: %w", err)
	}

	rows := records[1:]
	bar := pb.New(len(rows)).SetWriter(progress)
	bar.Start()
	defer bar.Finish()

	for _, row := range rows {
		summary.Rows++
		result, err := assessRow(row, wi, hi)
		var cols []string
		if err != nil {
			summary.Invalid++
			cols = []string{"", "", "", err.Error()}
		} else {
			summary.Counts[result.Category]++
			cols = []string{
				strconv.FormatFloat(result.Rounded(2), 'f', 2, 64),
				string(result.Category),
				tr.Category(result.Category),
				"",
			}
		}
		if err := cw.Write(append(append([]string{}, row...), cols...)); err != nil {
			return summary, fmt.Errorf("failed to write CSV: %w", err)
		}
		bar.Increment()
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return summary, fmt.Errorf("failed to write CSV: %w", err)
	}
	return summary, nil
}

// findColumn returns the index of the first header matching one of names
func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// assessRow parses and assesses one CSV row
func assessRow(row []string, wi, hi int) (bmi.Assessment, error) {
	if wi >= len(row) || hi >= len(row) {
		return bmi.Assessment{}, errors.New("missing columns")
	}
	weight, err := parseNumber(row[wi])
	if err != nil {
		return bmi.Assessment{}, fmt.Errorf("invalid weight %q", row[wi])
	}
	height, err := parseNumber(row[hi])
	if err != nil {
		return bmi.Assessment{}, fmt.Errorf("invalid height %q", row[hi])
	}
	return bmi.Assess(bmi.Measurement{WeightKg: weight, HeightCm: height})
}
