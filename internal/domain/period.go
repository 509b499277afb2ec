package domain

import (
	"fmt"
	"math"
	"time"
)

// Period identifies one calendar month of the study.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Window returns the month's half-open window in UTC. Month is not range
// checked; time.Date normalizes out-of-range values.
func (p Period) Window() Window {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// Key returns the period as "YYYY-MM".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string { return p.Key() }

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Periods returns every (year, month) pair for years in [startYear, endYear]
// and months 1–12, in chronological order. An inverted range yields nil.
func Periods(startYear, endYear int) []Period {
	if endYear < startYear {
		return nil
	}
	out := make([]Period, 0, (endYear-startYear+1)*12)
	for y := startYear; y <= endYear; y++ {
		for m := 1; m <= 12; m++ {
			out = append(out, Period{Year: y, Month: m})
		}
	}
	return out
}

// SeriesDate synthesizes the chart date for a period: the first day of the month.
func SeriesDate(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// GroupByYears splits chronologically ordered periods into batches covering
// at most yearsPerBatch distinct years each.
func GroupByYears(periods []Period, yearsPerBatch int) [][]Period {
	if yearsPerBatch < 1 {
		yearsPerBatch = 1
	}
	var (
		batches [][]Period
		current []Period
		years   int
		last    = math.MinInt
	)
	for _, p := range periods {
		if p.Year != last {
			if years == yearsPerBatch {
				batches = append(batches, current)
				current, years = nil, 0
			}
			years++
			last = p.Year
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
