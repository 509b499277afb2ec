// Package domain models the monthly regional temperature study computed from
// the ERA5-Land reanalysis.
//
// # Data Source
//
// ERA5-Land monthly aggregates are published by ECMWF and hosted on Google
// Earth Engine as the image collection "ECMWF/ERA5_LAND/MONTHLY_AGGR". Each
// image covers one calendar month on a ~11 km grid. The band used here is
// "temperature_2m": air temperature 2 m above the surface, in Kelvin. The
// land-only grid is masked over open water, so a region with no land cells
// reduces to no value at all.
//
// # Study Layout
//
// A study is the cross product of a year range and the twelve calendar
// months. The default range 2000–2022 yields 23 × 12 = 276 periods. Every
// period is evaluated over the half-open window
//
//	[YYYY-MM-01, first day of the next month)
//
// so December 2000 is [2000-12-01, 2001-01-01). Periods are independent; the
// platform may evaluate them in any order.
//
// # Units
//
// Kelvin is converted to Celsius exactly once, server-side, by subtracting
// 273.15 from the monthly mean image. Everything downstream (records, CSV,
// chart, map ramp) is Celsius. The map colour ramp spans [-23.15, 46.85] °C,
// which is 250–320 K.
//
// # Missing Months
//
// When the spatial reduction yields no value (no valid pixels inside the
// region), the record carries a nil temperature. [MonthlyRecord.Missing]
// reports it, the CSV leaves the cell empty and the chart leaves a gap.
// Missing months are never filled or interpolated.
package domain
