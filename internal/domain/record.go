package domain

import (
	"sort"
	"time"
)

// MonthlyRecord is the regional mean temperature of one period. A nil
// Temperature marks a month whose reduction produced no value.
type MonthlyRecord struct {
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Temperature *float64 `json:"temperature"` // °C
}

// Period returns the record's key.
func (r MonthlyRecord) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// Missing reports whether the month has no temperature.
func (r MonthlyRecord) Missing() bool {
	return r.Temperature == nil
}

// MissingRecord builds the explicit marker for a month with no value.
func MissingRecord(p Period) MonthlyRecord {
	return MonthlyRecord{Year: p.Year, Month: p.Month}
}

// NewRecord builds a record with a known temperature.
func NewRecord(p Period, celsius float64) MonthlyRecord {
	return MonthlyRecord{Year: p.Year, Month: p.Month, Temperature: &celsius}
}

// SortRecords orders records chronologically in place.
func SortRecords(records []MonthlyRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Period().Before(records[j].Period())
	})
}

// MissingPeriods lists the periods of records without a temperature.
func MissingPeriods(records []MonthlyRecord) []Period {
	var out []Period
	for _, r := range records {
		if r.Missing() {
			out = append(out, r.Period())
		}
	}
	return out
}

// SeriesPoint is one chart entry keyed by date.
type SeriesPoint struct {
	Date        time.Time `json:"date"`
	Temperature float64   `json:"temperature"`
}

// ChartSeries re-keys records by their synthesized date. Missing months are
// left out so the rendered line shows a gap.
func ChartSeries(records []MonthlyRecord) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(records))
	for _, r := range records {
		if r.Missing() {
			continue
		}
		out = append(out, SeriesPoint{
			Date:        SeriesDate(r.Year, r.Month),
			Temperature: *r.Temperature,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// UnweightedMean averages values with equal weight, ignoring month length.
// It returns false for an empty input.
func UnweightedMean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// RecordMean is the unweighted mean over the non-missing records.
func RecordMean(records []MonthlyRecord) (float64, bool) {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if !r.Missing() {
			values = append(values, *r.Temperature)
		}
	}
	return UnweightedMean(values)
}
