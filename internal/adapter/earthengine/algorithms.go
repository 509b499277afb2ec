package earthengine

import "time"

// Typed helpers over the platform algorithms used by the pipeline. Argument
// names follow the algorithm signatures published by the REST API
// (GET v1/projects/earthengine-public/algorithms).

// LoadTable references a FeatureCollection asset.
func LoadTable(assetID string) Expr {
	return Invoke("Collection.loadTable", map[string]Expr{"tableId": Constant(assetID)})
}

// Geometry dissolves a collection into a single geometry.
func Geometry(collection Expr) Expr {
	return Invoke("Collection.geometry", map[string]Expr{"collection": collection})
}

// LoadImageCollection references an ImageCollection asset.
func LoadImageCollection(id string) Expr {
	return Invoke("ImageCollection.load", map[string]Expr{"id": Constant(id)})
}

// Date builds a date from a UTC instant.
func Date(t time.Time) Expr {
	return Invoke("Date", map[string]Expr{"value": Constant(t.UTC().UnixMilli())})
}

// FilterDate keeps images whose system:time_start lies in [start, end).
func FilterDate(collection Expr, start, end time.Time) Expr {
	dateRange := Invoke("DateRange", map[string]Expr{"start": Date(start), "end": Date(end)})
	return filter(collection, Invoke("Filter.dateRangeContains", map[string]Expr{
		"leftValue":  dateRange,
		"rightField": Constant("system:time_start"),
	}))
}

// FilterBounds keeps elements whose footprint intersects geometry.
func FilterBounds(collection, geometry Expr) Expr {
	return filter(collection, Invoke("Filter.intersects", map[string]Expr{
		"leftField":  Constant(".all"),
		"rightValue": geometry,
	}))
}

func filter(collection, f Expr) Expr {
	return Invoke("Collection.filter", map[string]Expr{"collection": collection, "filter": f})
}

// mapVar names the element parameter of a mapped function. Nested maps
// would shadow it.
const mapVar = "_MAPPING_VAR_0_0"

// Map applies fn to every element of a collection on the platform. fn is
// called once, locally, with a reference to the element.
func Map(collection Expr, fn func(element Expr) Expr) Expr {
	return Invoke("Collection.map", map[string]Expr{
		"collection":    collection,
		"baseAlgorithm": FunctionDef([]string{mapVar}, fn(ArgumentRef(mapVar))),
	})
}

// Mean reduces an image collection to its per-pixel, unweighted mean image.
func Mean(collection Expr) Expr {
	return Invoke("reduce.mean", map[string]Expr{"collection": collection})
}

// Select keeps the named bands of an image.
func Select(image Expr, bands ...string) Expr {
	return Invoke("Image.select", map[string]Expr{
		"input":         image,
		"bandSelectors": Constant(bands),
	})
}

// SubtractConstant subtracts a scalar from every pixel.
func SubtractConstant(image Expr, v float64) Expr {
	return Invoke("Image.subtract", map[string]Expr{
		"image1": image,
		"image2": Invoke("Image.constant", map[string]Expr{"value": Constant(v)}),
	})
}

// Set attaches a property to an element.
func Set(element Expr, key string, value Expr) Expr {
	return Invoke("Element.set", map[string]Expr{
		"object": element,
		"key":    Constant(key),
		"value":  value,
	})
}

// Get reads a property of an element.
func Get(element Expr, property string) Expr {
	return Invoke("Element.get", map[string]Expr{
		"object":   element,
		"property": Constant(property),
	})
}

// FromImages builds an image collection from a list of images.
func FromImages(images []Expr) Expr {
	return Invoke("ImageCollection.fromImages", map[string]Expr{"images": Array(images...)})
}

// ReduceRegionMean spatially averages an image over geometry at scale metres.
// The result is a dictionary keyed by band name.
func ReduceRegionMean(image, geometry Expr, scale float64) Expr {
	return Invoke("Image.reduceRegion", map[string]Expr{
		"image":    image,
		"reducer":  Invoke("Reducer.mean", nil),
		"geometry": geometry,
		"scale":    Constant(scale),
	})
}

// DictionaryGet reads key from a dictionary, yielding null when absent.
func DictionaryGet(dict Expr, key string) Expr {
	return Invoke("Dictionary.get", map[string]Expr{
		"dictionary":   dict,
		"key":          Constant(key),
		"defaultValue": Constant(nil),
	})
}

// Feature builds a geometry-less feature with the given properties.
func Feature(properties map[string]Expr) Expr {
	return Invoke("Feature", map[string]Expr{
		"geometry": Constant(nil),
		"metadata": Dictionary(properties),
	})
}

// FeatureCollection builds a collection from features.
func FeatureCollection(features []Expr) Expr {
	return Invoke("Collection", map[string]Expr{"features": Array(features...)})
}

// Clip masks an image outside geometry.
func Clip(image, geometry Expr) Expr {
	return Invoke("Image.clip", map[string]Expr{"input": image, "geometry": geometry})
}

// Visualize renders an image to RGB with a colour ramp over [min, max].
func Visualize(image Expr, min, max float64, palette []string) Expr {
	return Invoke("Image.visualize", map[string]Expr{
		"image":   image,
		"min":     Constant(min),
		"max":     Constant(max),
		"palette": Constant(palette),
	})
}
