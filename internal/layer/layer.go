package layer

import (
	"github.com/rotisserie/eris"
)

// Normalization selects how a layer's derived values are rescaled into a
// comparable index.
type Normalization string

const (
	NormalizationNone   Normalization = ""
	NormalizationMinMax Normalization = "minmax"
)

// DistanceKind selects the derived distance surface computed for a layer.
type DistanceKind string

const (
	DistanceNone       DistanceKind = ""
	DistanceTravelTime DistanceKind = "travel_time"
	DistanceProximity  DistanceKind = "proximity"
)

// Resampling selects how raster values are interpolated during alignment
// and reprojection.
type Resampling string

const (
	ResampleNearest  Resampling = "nearest"
	ResampleBilinear Resampling = "bilinear"
)

// Spec holds the attributes shared by raster and vector layers. Category and
// Name form the unique key inside the pipeline registry; Friction, when set,
// is owned by the layer and follows it through mask/align/reproject.
type Spec struct {
	Category      string
	Name          string
	Path          string
	Normalization Normalization
	Inverse       bool
	Distance      DistanceKind
	DistanceLimit float64 // 0 means unbounded
	Resample      Resampling
	Friction      *RasterLayer
}

// Layer is the closed capability set shared by the two layer variants,
// *RasterLayer and *VectorLayer.
type Layer interface {
	LayerSpec() *Spec

	// Mask clips the layer to the boundary polygon.
	Mask(boundary *VectorLayer) error
	// Reproject converts the layer to the target CRS without conforming it
	// to any particular grid.
	Reproject(crs int) error
	// Align conforms the layer to the base grid's exact transform and shape.
	// Vector layers are not grid-aligned; only their friction raster is.
	Align(base Grid) error
	// DistanceRaster derives the travel-time or proximity surface for the
	// layer, referenced against the base grid.
	DistanceRaster(base Grid) (*RasterLayer, error)
	// Normalize rescales the layer's derived values into a [0,1] index.
	Normalize() error
	// Save writes the layer's current artifacts under dir.
	Save(dir string) error
}

// ErrCRSUnsupported is returned when no projection between two coordinate
// reference systems is available. The condition is a configuration error and
// is never retried.
var ErrCRSUnsupported = eris.New("layer: unsupported CRS conversion")
