// Command validate checks the artifacts of a pipeline run: the exported CSV
// table and, optionally, summary.json. It verifies the schema, period
// coverage, ordering, unit plausibility, and agreement with the summary.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv out/Monthly_Mean_Temperature_2000_2022_Celsius.csv \
//	  -summary out/summary.json \
//	  -start 2000 -end 2022
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
	"github.com/couchcryptid/era5-temperature-etl/internal/report"
)

// Plausible surface air temperatures in °C. Values near 250-320 mean the
// Kelvin conversion was skipped; values near -550 mean it ran twice.
const (
	minCelsius = -90.0
	maxCelsius = 60.0
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the exported monthly CSV")
	summaryPath := flag.String("summary", "", "optional path to summary.json")
	start := flag.Int("start", domain.DefaultStartYear, "first study year")
	end := flag.Int("end", domain.DefaultEndYear, "last study year")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *summaryPath, *start, *end); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, summaryPath string, start, end int) int {
	fmt.Println("=== ERA5 Monthly Table Validation ===")
	fmt.Println()

	rows, err := loadRows(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}
	records, err := loadRecords(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(rows),
		validateCoverage(records, start, end),
		validateUnits(records),
	}
	if summaryPath != "" {
		summary, err := loadSummary(summaryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
			return 1
		}
		phases = append(phases, validateSummary(summary, records))
	}

	return printReport(phases, records)
}

func printReport(phases []*phase, records []domain.MonthlyRecord) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d, missing: %d\n", len(records), len(domain.MissingPeriods(records)))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadRows reads the raw CSV without a fixed field count so schema
// violations are reported per row instead of aborting the read.
func loadRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func loadRecords(path string) ([]domain.MonthlyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadCSV(f)
}

func loadSummary(path string) (domain.RunSummary, error) {
	var s domain.RunSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// ── Validation phases ──

func validateSchema(rows [][]string) *phase {
	p := &phase{name: "Schema (year,month,temperature)"}
	if len(rows) == 0 {
		p.errorf("empty file")
		return p
	}
	if !slices.Equal(rows[0], report.Header) {
		p.errorf("header = %v, want %v", rows[0], report.Header)
	}
	for i, row := range rows[1:] {
		if len(row) != len(report.Header) {
			p.errorf("line %d: %d fields, want %d", i+2, len(row), len(report.Header))
		}
	}
	return p
}

func validateCoverage(records []domain.MonthlyRecord, start, end int) *phase {
	p := &phase{name: "Coverage (one row per year-month)"}
	want := domain.Periods(start, end)
	if len(records) != len(want) {
		p.errorf("row count = %d, want %d", len(records), len(want))
	}

	seen := make(map[domain.Period]int, len(records))
	for i, r := range records {
		seen[r.Period()]++
		if i > 0 && !records[i-1].Period().Before(r.Period()) {
			p.errorf("row %d (%s) is not after %s", i+2, r.Period(), records[i-1].Period())
		}
	}
	for _, period := range want {
		switch n := seen[period]; {
		case n == 0:
			p.errorf("%s: no row", period)
		case n > 1:
			p.errorf("%s: %d rows", period, n)
		}
		delete(seen, period)
	}
	for period := range seen {
		p.errorf("%s: outside %d-%d", period, start, end)
	}
	return p
}

func validateUnits(records []domain.MonthlyRecord) *phase {
	p := &phase{name: "Units (Celsius, converted once)"}
	for _, r := range records {
		if r.Missing() {
			continue
		}
		if t := *r.Temperature; t < minCelsius || t > maxCelsius {
			p.errorf("%s: %.2f °C is implausible", r.Period(), t)
		}
	}
	return p
}

func validateSummary(s domain.RunSummary, records []domain.MonthlyRecord) *phase {
	p := &phase{name: "Summary agreement"}
	if s.Records != len(records) {
		p.errorf("summary records = %d, csv rows = %d", s.Records, len(records))
	}

	var missing []string
	for _, mp := range domain.MissingPeriods(records) {
		missing = append(missing, mp.Key())
	}
	if !slices.Equal(missing, s.MissingPeriods) {
		p.errorf("summary missing = %v, csv empty cells = %v", s.MissingPeriods, missing)
	}

	if mean, ok := domain.RecordMean(records); ok && s.RecordMean != nil {
		if d := mean - *s.RecordMean; d > 1e-6 || d < -1e-6 {
			p.errorf("summary mean = %.6f, csv mean = %.6f", *s.RecordMean, mean)
		}
	}
	return p
}
