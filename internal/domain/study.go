package domain

// KelvinOffset converts Kelvin to Celsius: °C = K − KelvinOffset.
const KelvinOffset = 273.15

// Study defaults reproduce the Floresta Nacional do Jamanxim run.
const (
	DefaultAssetID           = "projects/ee-lucasraiolsk8/assets/flona_jamanxim"
	DefaultDataset           = "ECMWF/ERA5_LAND/MONTHLY_AGGR"
	DefaultBand              = "temperature_2m"
	DefaultStartYear         = 2000
	DefaultEndYear           = 2022
	DefaultScaleMeters       = 10000
	DefaultExportDescription = "Monthly_Mean_Temperature_2000_2022_Celsius"
	DefaultLayerName         = "Overall Mean Temperature (2000-2022) in °C"
)

// DefaultPalette is the 18-stop diverging ramp for the overall mean layer.
var DefaultPalette = []string{
	"000080", "0000d9", "4000ff", "8000ff", "0080ff", "00ffff",
	"00ff80", "80ff00", "daff00", "ffff00", "fff500", "ffda00",
	"ffb000", "ffa400", "ff4f00", "ff2500", "ff0a00", "ff00ff",
}

// Visualization maps raster values onto a colour ramp. Values outside
// [Min, Max] are clamped by the ramp.
type Visualization struct {
	Min     float64  `json:"min" yaml:"min"`
	Max     float64  `json:"max" yaml:"max"`
	Palette []string `json:"palette" yaml:"palette"`
}

// MapView is the initial viewport of the overlay.
type MapView struct {
	Lon  float64 `json:"lon" yaml:"lon"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Zoom int     `json:"zoom" yaml:"zoom"`
}

// ChartOptions controls the time-series rendering.
type ChartOptions struct {
	Title       string  `yaml:"title"`
	XAxisTitle  string  `yaml:"x_axis_title"`
	YAxisTitle  string  `yaml:"y_axis_title"`
	SeriesLabel string  `yaml:"series_label"`
	LineWidth   float64 `yaml:"line_width"`
	PointSize   float64 `yaml:"point_size"`
	Color       string  `yaml:"color"` // named colour or RRGGBB
}

// Study is the complete, immutable description of one run.
type Study struct {
	AssetID           string        `yaml:"asset_id"`
	Dataset           string        `yaml:"dataset"`
	Band              string        `yaml:"band"`
	StartYear         int           `yaml:"start_year"`
	EndYear           int           `yaml:"end_year"`
	ScaleMeters       float64       `yaml:"scale_meters"`
	ExportDescription string        `yaml:"export_description"`
	LayerName         string        `yaml:"layer_name"`
	Visualization     Visualization `yaml:"visualization"`
	View              MapView       `yaml:"view"`
	Chart             ChartOptions  `yaml:"chart"`
}

// DefaultStudy returns the study constants of the original analysis.
func DefaultStudy() Study {
	return Study{
		AssetID:           DefaultAssetID,
		Dataset:           DefaultDataset,
		Band:              DefaultBand,
		StartYear:         DefaultStartYear,
		EndYear:           DefaultEndYear,
		ScaleMeters:       DefaultScaleMeters,
		ExportDescription: DefaultExportDescription,
		LayerName:         DefaultLayerName,
		Visualization: Visualization{
			Min:     250 - KelvinOffset,
			Max:     320 - KelvinOffset,
			Palette: append([]string(nil), DefaultPalette...),
		},
		View: MapView{Lon: -55.0, Lat: -6.0, Zoom: 6},
		Chart: ChartOptions{
			Title:       "Monthly Mean Temperature (2000-2022)",
			XAxisTitle:  "Date",
			YAxisTitle:  "Temperature (°C)",
			SeriesLabel: "temperature",
			LineWidth:   1,
			PointSize:   3,
			Color:       "blue",
		},
	}
}

// Periods returns the study's (year, month) tasks.
func (s Study) Periods() []Period {
	return Periods(s.StartYear, s.EndYear)
}

// KelvinToCelsius converts a temperature from Kelvin to degrees Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - KelvinOffset
}
