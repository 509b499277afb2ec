package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriods_FullStudyCrossProduct(t *testing.T) {
	periods := Periods(2000, 2022)
	require.Len(t, periods, 276)

	seen := make(map[Period]bool, len(periods))
	for _, p := range periods {
		assert.False(t, seen[p], "duplicate period %s", p)
		seen[p] = true
	}
	for y := 2000; y <= 2022; y++ {
		for m := 1; m <= 12; m++ {
			assert.True(t, seen[Period{Year: y, Month: m}], "missing period %04d-%02d", y, m)
		}
	}

	assert.Equal(t, Period{Year: 2000, Month: 1}, periods[0])
	assert.Equal(t, Period{Year: 2022, Month: 12}, periods[len(periods)-1])
	for i := 1; i < len(periods); i++ {
		assert.True(t, periods[i-1].Before(periods[i]), "not chronological at %d", i)
	}
}

func TestPeriods_SingleYearAndInverted(t *testing.T) {
	assert.Len(t, Periods(2015, 2015), 12)
	assert.Nil(t, Periods(2022, 2000))
}

func TestPeriod_Window(t *testing.T) {
	tests := []struct {
		name  string
		p     Period
		start time.Time
		end   time.Time
	}{
		{"december rolls into next year", Period{2000, 12}, date(2000, 12, 1), date(2001, 1, 1)},
		{"january", Period{2010, 1}, date(2010, 1, 1), date(2010, 2, 1)},
		{"leap february", Period{2020, 2}, date(2020, 2, 1), date(2020, 3, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := tc.p.Window()
			assert.Equal(t, tc.start, w.Start)
			assert.Equal(t, tc.end, w.End)
		})
	}
}

func TestWindow_HalfOpen(t *testing.T) {
	w := Period{2000, 12}.Window()

	assert.True(t, w.Contains(date(2000, 12, 1)))
	assert.True(t, w.Contains(date(2000, 12, 31)))
	assert.False(t, w.Contains(date(2001, 1, 1)), "end is exclusive")
	assert.False(t, w.Contains(date(2000, 11, 30)))
}

func TestPeriod_Key(t *testing.T) {
	assert.Equal(t, "2015-06", Period{2015, 6}.Key())
	assert.Equal(t, "2000-12", Period{2000, 12}.String())
}

func TestSeriesDate(t *testing.T) {
	assert.Equal(t, date(2015, 6, 1), SeriesDate(2015, 6))
	assert.Equal(t, date(2000, 1, 1), SeriesDate(2000, 1))
}

func TestGroupByYears(t *testing.T) {
	periods := Periods(2000, 2004)

	t.Run("one year per batch", func(t *testing.T) {
		batches := GroupByYears(periods, 1)
		require.Len(t, batches, 5)
		for i, b := range batches {
			require.Len(t, b, 12)
			assert.Equal(t, 2000+i, b[0].Year)
			assert.Equal(t, 2000+i, b[11].Year)
		}
	})

	t.Run("uneven tail", func(t *testing.T) {
		batches := GroupByYears(periods, 2)
		require.Len(t, batches, 3)
		assert.Len(t, batches[0], 24)
		assert.Len(t, batches[1], 24)
		assert.Len(t, batches[2], 12)
		assert.Equal(t, 2004, batches[2][0].Year)
	})

	t.Run("non-positive size falls back to one", func(t *testing.T) {
		assert.Len(t, GroupByYears(periods, 0), 5)
	})

	t.Run("batches preserve every period", func(t *testing.T) {
		var flat []Period
		for _, b := range GroupByYears(periods, 3) {
			flat = append(flat, b...)
		}
		if diff := cmp.Diff(periods, flat); diff != "" {
			t.Fatalf("batches lost periods (-want +got):\n%s", diff)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, GroupByYears(nil, 1))
	})
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
