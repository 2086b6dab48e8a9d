package layer

import (
	"math"

	"github.com/rotisserie/eris"
)

// webMercatorRadius is the sphere radius used by EPSG:3857.
const webMercatorRadius = 6378137.0

const (
	// EPSG codes of the supported coordinate reference systems.
	CRSWGS84       = 4326
	CRSWebMercator = 3857
)

// projector converts a coordinate pair between two CRSs.
type projector func(x, y float64) (float64, float64)

// Project returns the coordinate conversion between two EPSG codes, for
// callers outside the package that need to move points across CRSs.
func Project(from, to int) (func(x, y float64) (float64, float64), error) {
	p, err := projectorFor(from, to)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// projectorFor returns the conversion from one EPSG code to another.
// Identity conversions are always available; otherwise only the WGS84 and
// Web Mercator pair is supported, which covers the global accessibility
// datasets the pipeline ingests. Any other pair is a fatal configuration
// error per the grid reconciliation contract.
func projectorFor(from, to int) (projector, error) {
	if from == to {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	switch {
	case from == CRSWGS84 && to == CRSWebMercator:
		return lonLatToMercator, nil
	case from == CRSWebMercator && to == CRSWGS84:
		return mercatorToLonLat, nil
	}
	return nil, eris.Wrapf(ErrCRSUnsupported, "layer: EPSG:%d -> EPSG:%d", from, to)
}

func lonLatToMercator(lon, lat float64) (float64, float64) {
	x := webMercatorRadius * lon * math.Pi / 180
	y := webMercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func mercatorToLonLat(x, y float64) (float64, float64) {
	lon := x / webMercatorRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/webMercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}
