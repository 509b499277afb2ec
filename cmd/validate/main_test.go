package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

func fullYear(year int, temp float64) []domain.MonthlyRecord {
	var out []domain.MonthlyRecord
	for _, p := range domain.Periods(year, year) {
		out = append(out, domain.NewRecord(p, temp))
	}
	return out
}

func TestValidateSchema(t *testing.T) {
	ok := validateSchema([][]string{{"year", "month", "temperature"}, {"2000", "1", "25"}})
	assert.True(t, ok.passed())

	bad := validateSchema([][]string{{"year", "month"}, {"2000", "1", "25", "x"}})
	assert.Len(t, bad.errors, 2)
}

func TestValidateCoverage(t *testing.T) {
	assert.True(t, validateCoverage(fullYear(2000, 25), 2000, 2000).passed())

	recs := fullYear(2000, 25)
	recs[5] = recs[4] // duplicate May, drop June
	p := validateCoverage(recs, 2000, 2000)
	assert.False(t, p.passed())
	assert.Contains(t, p.errors, "2000-06: no row")
	assert.Contains(t, p.errors, "2000-05: 2 rows")
}

func TestValidateCoverage_OutOfRange(t *testing.T) {
	recs := append(fullYear(2000, 25), domain.NewRecord(domain.Period{Year: 2001, Month: 1}, 25))
	p := validateCoverage(recs, 2000, 2000)
	assert.Contains(t, p.errors, "2001-01: outside 2000-2000")
}

func TestValidateUnits(t *testing.T) {
	assert.True(t, validateUnits(fullYear(2000, 26.5)).passed())

	kelvin := validateUnits(fullYear(2000, 299.65))
	assert.Len(t, kelvin.errors, 12)

	twice := validateUnits(fullYear(2000, 26.5-273.15))
	assert.Len(t, twice.errors, 12)
}

func TestValidateSummary(t *testing.T) {
	recs := fullYear(2000, 20)
	recs[1] = domain.MissingRecord(domain.Period{Year: 2000, Month: 2})
	mean := 20.0

	good := domain.RunSummary{Records: 12, MissingPeriods: []string{"2000-02"}, RecordMean: &mean}
	assert.True(t, validateSummary(good, recs).passed())

	wrongMean := 21.0
	bad := domain.RunSummary{Records: 11, MissingPeriods: nil, RecordMean: &wrongMean}
	assert.Len(t, validateSummary(bad, recs).errors, 3)
}
