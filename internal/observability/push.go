package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJob = "era5_temperature_etl"

// Push sends the metrics of a finished one-shot run to a Prometheus
// Pushgateway, grouped by run id.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("register go collector: %w", err)
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}
	if err := push.New(url, pushJob).
		Gatherer(reg).
		Grouping("run_id", runID).
		PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
