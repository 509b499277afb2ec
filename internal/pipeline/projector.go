package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	ee "github.com/couchcryptid/era5-temperature-etl/internal/adapter/earthengine"
	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
	"github.com/couchcryptid/era5-temperature-etl/internal/observability"
)

// Evaluator computes an expression on the platform.
type Evaluator interface {
	Compute(ctx context.Context, e ee.Expr) (json.RawMessage, error)
}

// Projector evaluates the monthly table in batches of years.
type Projector struct {
	eval            Evaluator
	study           domain.Study
	region          ee.Expr
	concurrency     int
	yearsPerRequest int
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewProjector creates a Projector. At most concurrency batches are in flight.
func NewProjector(eval Evaluator, study domain.Study, concurrency, yearsPerRequest int, logger *slog.Logger, metrics *observability.Metrics) *Projector {
	return &Projector{
		eval:            eval,
		study:           study,
		region:          Region(study.AssetID),
		concurrency:     max(concurrency, 1),
		yearsPerRequest: max(yearsPerRequest, 1),
		logger:          logger,
		metrics:         metrics,
	}
}

// Project returns exactly one record per period, in chronological order.
// The first failing batch cancels the others.
func (p *Projector) Project(ctx context.Context, periods []domain.Period) ([]domain.MonthlyRecord, error) {
	batches := domain.GroupByYears(periods, p.yearsPerRequest)
	results := make([][]domain.MonthlyRecord, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			recs, err := p.projectBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("project %s..%s: %w", batch[0], batch[len(batch)-1], err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.MonthlyRecord, 0, len(periods))
	for _, recs := range results {
		out = append(out, recs...)
	}
	domain.SortRecords(out)
	return out, nil
}

func (p *Projector) projectBatch(ctx context.Context, batch []domain.Period) ([]domain.MonthlyRecord, error) {
	raw, err := p.eval.Compute(ctx, Table(p.study, p.region, batch))
	if err != nil {
		return nil, err
	}
	rows, err := decodeTable(raw)
	if err != nil {
		return nil, err
	}
	recs, err := reconcile(batch, rows)
	if err != nil {
		return nil, err
	}

	p.metrics.RecordsProjected.Add(float64(len(recs)))
	for _, r := range recs {
		if r.Missing() {
			p.metrics.MissingMonths.Inc()
			p.logger.Warn("month has no temperature", "period", r.Period().Key())
		}
	}
	p.logger.Debug("batch projected", "from", batch[0].Key(), "to", batch[len(batch)-1].Key(), "records", len(recs))
	return recs, nil
}

type featureCollection struct {
	Features []struct {
		Properties featureProperties `json:"properties"`
	} `json:"features"`
}

type featureProperties struct {
	Year        *float64 `json:"year"`
	Month       *float64 `json:"month"`
	Temperature *float64 `json:"temperature"`
}

func decodeTable(raw json.RawMessage) ([]domain.MonthlyRecord, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	out := make([]domain.MonthlyRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		year, err := wholeNumber(f.Properties.Year, propYear)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		month, err := wholeNumber(f.Properties.Month, propMonth)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out = append(out, domain.MonthlyRecord{Year: year, Month: month, Temperature: f.Properties.Temperature})
	}
	return out, nil
}

func wholeNumber(v *float64, name string) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("missing %s", name)
	}
	if *v != math.Trunc(*v) {
		return 0, fmt.Errorf("%s %v is not a whole number", name, *v)
	}
	return int(*v), nil
}

// reconcile aligns decoded rows with the requested periods. Absent rows
// become missing records; duplicate or unrequested periods are errors.
func reconcile(requested []domain.Period, rows []domain.MonthlyRecord) ([]domain.MonthlyRecord, error) {
	want := make(map[domain.Period]bool, len(requested))
	for _, p := range requested {
		want[p] = true
	}
	got := make(map[domain.Period]domain.MonthlyRecord, len(rows))
	for _, r := range rows {
		p := r.Period()
		if !want[p] {
			return nil, fmt.Errorf("unexpected period %s in response", p)
		}
		if _, dup := got[p]; dup {
			return nil, fmt.Errorf("duplicate period %s in response", p)
		}
		got[p] = r
	}

	out := make([]domain.MonthlyRecord, len(requested))
	for i, p := range requested {
		if r, ok := got[p]; ok {
			out[i] = r
		} else {
			out[i] = domain.MissingRecord(p)
		}
	}
	return out, nil
}
