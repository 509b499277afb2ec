package pipeline

import (
	ee "github.com/couchcryptid/era5-temperature-etl/internal/adapter/earthengine"
	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

// Feature property names of the projected table.
const (
	propYear        = "year"
	propMonth       = "month"
	propTemperature = "temperature"
)

// Selectors are the exported table columns, in order.
var Selectors = []string{propYear, propMonth, propTemperature}

// Region dissolves the study boundary asset into one geometry. The asset is
// not checked; a bad id fails at the first evaluation.
func Region(assetID string) ee.Expr {
	return ee.Geometry(ee.LoadTable(assetID))
}

// MonthlyMean builds the Celsius mean image of one month over region. Each
// source image is reduced to the band and shifted by the Kelvin offset before
// the temporal mean, so an empty window yields a band-less mean and a null
// temperature downstream. Nothing downstream converts again.
func MonthlyMean(study domain.Study, region ee.Expr, p domain.Period) ee.Expr {
	w := p.Window()
	col := ee.LoadImageCollection(study.Dataset)
	col = ee.FilterDate(col, w.Start, w.End)
	col = ee.FilterBounds(col, region)
	col = ee.Map(col, func(img ee.Expr) ee.Expr {
		return ee.SubtractConstant(ee.Select(img, study.Band), domain.KelvinOffset)
	})

	img := ee.Mean(col)
	img = ee.Set(img, propYear, ee.Constant(p.Year))
	return ee.Set(img, propMonth, ee.Constant(p.Month))
}

// MonthlyImages builds one monthly image per period.
func MonthlyImages(study domain.Study, region ee.Expr, periods []domain.Period) []ee.Expr {
	out := make([]ee.Expr, len(periods))
	for i, p := range periods {
		out[i] = MonthlyMean(study, region, p)
	}
	return out
}

// MonthlyFeature reduces a monthly image to a geometry-less row. The
// temperature is null when the reduction yields no value.
func MonthlyFeature(study domain.Study, region, image ee.Expr) ee.Expr {
	stats := ee.ReduceRegionMean(image, region, study.ScaleMeters)
	return ee.Feature(map[string]ee.Expr{
		propYear:        ee.Get(image, propYear),
		propMonth:       ee.Get(image, propMonth),
		propTemperature: ee.DictionaryGet(stats, study.Band),
	})
}

// Table builds the monthly feature collection for periods.
func Table(study domain.Study, region ee.Expr, periods []domain.Period) ee.Expr {
	images := MonthlyImages(study, region, periods)
	features := make([]ee.Expr, len(images))
	for i, img := range images {
		features[i] = MonthlyFeature(study, region, img)
	}
	return ee.FeatureCollection(features)
}

// OverallMean averages the monthly images with equal weight per month.
func OverallMean(images []ee.Expr) ee.Expr {
	return ee.Mean(ee.FromImages(images))
}

// Layer clips the overall mean to region and applies the colour ramp.
func Layer(study domain.Study, region ee.Expr, images []ee.Expr) ee.Expr {
	v := study.Visualization
	return ee.Visualize(ee.Clip(OverallMean(images), region), v.Min, v.Max, v.Palette)
}
