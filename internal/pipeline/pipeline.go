package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	ee "github.com/couchcryptid/era5-temperature-etl/internal/adapter/earthengine"
	"github.com/couchcryptid/era5-temperature-etl/internal/chart"
	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
	"github.com/couchcryptid/era5-temperature-etl/internal/observability"
	"github.com/couchcryptid/era5-temperature-etl/internal/report"
)

// TableExporter enqueues a table export.
type TableExporter interface {
	ExportTable(ctx context.Context, e ee.Expr, opts ee.TableExport) (ee.Operation, error)
}

// MapCreator requests a tile source for a visualised image.
type MapCreator interface {
	CreateMap(ctx context.Context, e ee.Expr) (ee.MapID, error)
}

// EarthEngine is the platform surface the pipeline needs.
type EarthEngine interface {
	Evaluator
	TableExporter
	MapCreator
}

// RecordPublisher streams finished records to a downstream sink.
type RecordPublisher interface {
	PublishRecords(ctx context.Context, runID string, records []domain.MonthlyRecord) error
}

// Options configures one pipeline.
type Options struct {
	Study           domain.Study
	Concurrency     int
	YearsPerRequest int
	ExportEnabled   bool
	DriveFolder     string
}

// Result is the outcome of one run. Nothing is drawn or displayed; callers
// decide where the artifacts go.
type Result struct {
	Records []domain.MonthlyRecord
	Series  []domain.SeriesPoint
	report.Artifacts
}

// Pipeline runs the region -> monthly -> table -> export/chart/map stages.
type Pipeline struct {
	ee        EarthEngine
	publisher RecordPublisher
	projector *Projector
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	latest    atomic.Pointer[Result]
}

// New creates a Pipeline. publisher may be nil.
func New(platform EarthEngine, publisher RecordPublisher, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		ee:        platform,
		publisher: publisher,
		projector: NewProjector(platform, opts.Study, opts.Concurrency, opts.YearsPerRequest, logger, metrics),
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.latest.Load() == nil {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Latest returns the most recent successful result, or nil.
func (p *Pipeline) Latest() *Result {
	return p.latest.Load()
}

// Artifacts returns the outputs of the most recent successful run.
func (p *Pipeline) Artifacts() (report.Artifacts, bool) {
	res := p.latest.Load()
	if res == nil {
		return report.Artifacts{}, false
	}
	return res.Artifacts, true
}

// Run executes every stage once.
func (p *Pipeline) Run(ctx context.Context, runID string) (*Result, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	res, err := p.run(ctx, runID)
	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	p.metrics.PipelineRuns.WithLabelValues("success").Inc()
	p.latest.Store(res)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) (*Result, error) {
	study := p.opts.Study
	periods := study.Periods()
	if len(periods) == 0 {
		return nil, fmt.Errorf("empty year range %d-%d", study.StartYear, study.EndYear)
	}
	p.logger.Info("pipeline started",
		"asset", study.AssetID,
		"start_year", study.StartYear,
		"end_year", study.EndYear,
		"periods", len(periods),
	)

	records, err := p.projector.Project(ctx, periods)
	if err != nil {
		return nil, fmt.Errorf("project table: %w", err)
	}
	for _, r := range records {
		p.logger.Debug("monthly record", "period", r.Period().Key(), "temperature", r.Temperature)
	}

	var job *domain.ExportJob
	if p.opts.ExportEnabled {
		j, err := p.submitExport(ctx, periods)
		if err != nil {
			return nil, err
		}
		job = &j
	}

	layer, err := p.renderLayer(ctx, periods)
	if err != nil {
		return nil, err
	}

	csvBytes, err := report.EncodeCSV(records)
	if err != nil {
		return nil, fmt.Errorf("encode table: %w", err)
	}

	series := domain.ChartSeries(records)
	var png bytes.Buffer
	if err := chart.RenderPNG(&png, series, study.Chart); err != nil {
		if !errors.Is(err, chart.ErrNoData) {
			return nil, fmt.Errorf("render chart: %w", err)
		}
		p.logger.Warn("no month has a temperature, chart skipped")
	}

	if p.publisher != nil {
		if err := p.publisher.PublishRecords(ctx, runID, records); err != nil {
			return nil, fmt.Errorf("publish records: %w", err)
		}
		p.metrics.RecordsPublished.Add(float64(len(records)))
	}

	summary := p.summarize(runID, records, job, &layer)
	p.logger.Info("pipeline finished",
		"records", summary.Records,
		"missing", len(summary.MissingPeriods),
	)

	return &Result{
		Records: records,
		Series:  series,
		Artifacts: report.Artifacts{
			CSVName:  report.CSVFileName(study.ExportDescription),
			CSV:      csvBytes,
			ChartPNG: png.Bytes(),
			Layer:    &layer,
			Summary:  summary,
		},
	}, nil
}

// submitExport enqueues the Drive export without waiting for it.
func (p *Pipeline) submitExport(ctx context.Context, periods []domain.Period) (domain.ExportJob, error) {
	study := p.opts.Study
	op, err := p.ee.ExportTable(ctx, Table(study, p.projector.region, periods), ee.TableExport{
		Description:    study.ExportDescription,
		DriveFolder:    p.opts.DriveFolder,
		FilenamePrefix: study.ExportDescription,
		Selectors:      Selectors,
	})
	if err != nil {
		p.metrics.ExportJobs.WithLabelValues("error").Inc()
		return domain.ExportJob{}, fmt.Errorf("submit export: %w", err)
	}
	p.metrics.ExportJobs.WithLabelValues("submitted").Inc()
	p.logger.Info("export submitted", "operation", op.Name, "state", op.Metadata.State)
	return domain.ExportJob{
		Name:        op.Name,
		Description: study.ExportDescription,
		State:       op.Metadata.State,
		Done:        op.Done,
	}, nil
}

func (p *Pipeline) renderLayer(ctx context.Context, periods []domain.Period) (domain.MapLayer, error) {
	study := p.opts.Study
	region := p.projector.region
	id, err := p.ee.CreateMap(ctx, Layer(study, region, MonthlyImages(study, region, periods)))
	if err != nil {
		return domain.MapLayer{}, fmt.Errorf("create map: %w", err)
	}
	p.logger.Info("map layer ready", "map", id.Name)
	return domain.MapLayer{
		Name:          study.LayerName,
		MapID:         id.Name,
		TileURL:       id.TileURL,
		View:          study.View,
		Visualization: study.Visualization,
	}, nil
}

func (p *Pipeline) summarize(runID string, records []domain.MonthlyRecord, job *domain.ExportJob, layer *domain.MapLayer) domain.RunSummary {
	study := p.opts.Study
	missing := make([]string, 0)
	for _, mp := range domain.MissingPeriods(records) {
		missing = append(missing, mp.Key())
	}
	s := domain.RunSummary{
		RunID:          runID,
		GeneratedAt:    domain.Now(),
		AssetID:        study.AssetID,
		StartYear:      study.StartYear,
		EndYear:        study.EndYear,
		Records:        len(records),
		MissingPeriods: missing,
		Export:         job,
		Layer:          layer,
	}
	if mean, ok := domain.RecordMean(records); ok {
		s.RecordMean = &mean
	}
	return s
}
