package domain

import "time"

// ExportJob is the handle of an enqueued platform export. State is whatever
// the platform reported at submission time; completion is never awaited.
type ExportJob struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state,omitempty"`
	Done        bool   `json:"done"`
}

// MapLayer describes a colour-mapped overlay ready to be drawn by a tile map client.
type MapLayer struct {
	Name          string        `json:"name"`
	MapID         string        `json:"map_id"`
	TileURL       string        `json:"tile_url"` // template with {z}, {x}, {y}
	View          MapView       `json:"view"`
	Visualization Visualization `json:"visualization"`
}

// RunSummary is the machine-readable outcome of one pipeline run.
type RunSummary struct {
	RunID          string     `json:"run_id"`
	GeneratedAt    time.Time  `json:"generated_at"`
	AssetID        string     `json:"asset_id"`
	StartYear      int        `json:"start_year"`
	EndYear        int        `json:"end_year"`
	Records        int        `json:"records"`
	MissingPeriods []string   `json:"missing_periods"`
	RecordMean     *float64   `json:"record_mean_celsius,omitempty"`
	Export         *ExportJob `json:"export,omitempty"`
	Layer          *MapLayer  `json:"layer,omitempty"`
}
