// Package report serializes pipeline output: the monthly CSV table, the
// chart image, the map layer descriptor, and the run summary.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

// Artifact file names inside the output directory. The CSV is named after
// the export description.
const (
	ChartFileName   = "monthly_mean_temperature.png"
	LayerFileName   = "overall_mean_layer.json"
	SummaryFileName = "summary.json"
)

// Header is the exported table schema.
var Header = []string{"year", "month", "temperature"}

// Artifacts is everything one run writes to disk or serves over HTTP.
type Artifacts struct {
	CSVName  string
	CSV      []byte
	ChartPNG []byte // empty when no month has a value
	Layer    *domain.MapLayer
	Summary  domain.RunSummary
}

// CSVFileName returns the table file name for an export description.
func CSVFileName(description string) string {
	return description + ".csv"
}

// WriteCSV writes records with the year,month,temperature header. A missing
// temperature is an empty cell.
func WriteCSV(w io.Writer, records []domain.MonthlyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		temp := ""
		if !r.Missing() {
			temp = strconv.FormatFloat(*r.Temperature, 'f', -1, 64)
		}
		if err := cw.Write([]string{strconv.Itoa(r.Year), strconv.Itoa(r.Month), temp}); err != nil {
			return fmt.Errorf("write %s: %w", r.Period(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV renders records to CSV bytes.
func EncodeCSV(records []domain.MonthlyRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses a table written by WriteCSV. Every row must have exactly
// three fields.
func ReadCSV(r io.Reader) ([]domain.MonthlyRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range Header {
		if strings.TrimSpace(header[i]) != h {
			return nil, fmt.Errorf("unexpected header %v (want %v)", header, Header)
		}
	}

	var records []domain.MonthlyRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

func parseRow(row []string) (domain.MonthlyRecord, error) {
	year, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return domain.MonthlyRecord{}, fmt.Errorf("invalid year %q", row[0])
	}
	month, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil || month < 1 || month > 12 {
		return domain.MonthlyRecord{}, fmt.Errorf("invalid month %q", row[1])
	}
	p := domain.Period{Year: year, Month: month}
	cell := strings.TrimSpace(row[2])
	if cell == "" {
		return domain.MissingRecord(p), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return domain.MonthlyRecord{}, fmt.Errorf("invalid temperature %q", row[2])
	}
	return domain.NewRecord(p, v), nil
}

// WriteDir writes the artifacts into dir, creating it if needed, and returns
// the written paths.
func WriteDir(dir string, a Artifacts) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(a.CSVName, a.CSV); err != nil {
		return nil, err
	}
	if len(a.ChartPNG) > 0 {
		if err := write(ChartFileName, a.ChartPNG); err != nil {
			return nil, err
		}
	}
	if a.Layer != nil {
		b, err := json.MarshalIndent(a.Layer, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode layer: %w", err)
		}
		if err := write(LayerFileName, b); err != nil {
			return nil, err
		}
	}
	b, err := json.MarshalIndent(a.Summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	if err := write(SummaryFileName, b); err != nil {
		return nil, err
	}
	return written, nil
}
