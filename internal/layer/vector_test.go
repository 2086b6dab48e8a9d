package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// boxBoundary returns a polygon boundary layer covering [minX,maxX]x[minY,maxY].
func boxBoundary(crs int, minX, minY, maxX, maxY float64) *VectorLayer {
	poly := geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	}, []int{10})
	return &VectorLayer{
		Spec:     Spec{Category: "admin", Name: "boundary"},
		CRS:      crs,
		Features: []Feature{{Geom: poly, Attrs: map[string]any{}}},
	}
}

func TestVectorContains(t *testing.T) {
	b := boxBoundary(CRSWebMercator, 0, 0, 1000, 1000)
	assert.True(t, b.Contains(500, 500))
	assert.False(t, b.Contains(1500, 500))
	assert.False(t, b.Contains(-1, -1))
}

func TestRasterMaskOutsideBoundary(t *testing.T) {
	r := newTestRaster(t, 3, 3, 1000, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	// Boundary covers only the center cell.
	b := boxBoundary(CRSWebMercator, 1000, 1000, 2000, 2000)

	require.NoError(t, r.Mask(b))
	assert.Equal(t, 5.0, r.At(1, 1))
	assert.Equal(t, 1, r.ValidCount())
}

func TestVectorMaskDropsOutsideFeatures(t *testing.T) {
	v := &VectorLayer{
		Spec: Spec{Category: "infra", Name: "markets"},
		CRS:  CRSWebMercator,
		Features: []Feature{
			{Geom: geom.NewPointFlat(geom.XY, []float64{500, 500}), Attrs: map[string]any{}},
			{Geom: geom.NewPointFlat(geom.XY, []float64{5000, 5000}), Attrs: map[string]any{}},
		},
	}
	b := boxBoundary(CRSWebMercator, 0, 0, 1000, 1000)

	require.NoError(t, v.Mask(b))
	assert.Len(t, v.Features, 1)
}

func TestApplyQuery(t *testing.T) {
	mk := func() *VectorLayer {
		return &VectorLayer{
			Spec: Spec{Category: "infra", Name: "roads"},
			CRS:  CRSWebMercator,
			Features: []Feature{
				{Geom: geom.NewPointFlat(geom.XY, []float64{0, 0}), Attrs: map[string]any{"class": "primary", "lanes": "4"}},
				{Geom: geom.NewPointFlat(geom.XY, []float64{1, 1}), Attrs: map[string]any{"class": "track", "lanes": "1"}},
				{Geom: geom.NewPointFlat(geom.XY, []float64{2, 2}), Attrs: map[string]any{"class": "secondary", "lanes": "2"}},
			},
		}
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"string equality", "class = primary", 1},
		{"string inequality", "class != track", 2},
		{"numeric greater", "lanes > 1", 2},
		{"numeric less-equal", "lanes <= 2", 2},
		{"no matches", "class = motorway", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mk()
			v.Query = tt.query
			require.NoError(t, v.ApplyQuery())
			assert.Len(t, v.Features, tt.want)
		})
	}
}

func TestApplyQueryMalformed(t *testing.T) {
	v := &VectorLayer{Spec: Spec{Name: "roads"}, Query: "class ~ primary"}
	v.Features = []Feature{{Geom: geom.NewPointFlat(geom.XY, []float64{0, 0})}}
	assert.Error(t, v.ApplyQuery())
}

func TestRasterizePoints(t *testing.T) {
	v := &VectorLayer{
		Spec: Spec{Category: "infra", Name: "markets"},
		CRS:  CRSWebMercator,
		Features: []Feature{
			{Geom: geom.NewPointFlat(geom.XY, []float64{500, 2500})},  // cell (0,0)
			{Geom: geom.NewPointFlat(geom.XY, []float64{2500, 500})},  // cell (2,2)
		},
	}
	grid := testGrid(3, 3, 1000)

	r, err := v.Rasterize(grid)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.At(0, 0))
	assert.Equal(t, 1.0, r.At(2, 2))
	assert.Equal(t, 2, r.ValidCount())
}

func TestRasterizeLineTouchesTraversedCells(t *testing.T) {
	v := &VectorLayer{
		Spec: Spec{Category: "infra", Name: "roads"},
		CRS:  CRSWebMercator,
		Features: []Feature{
			{Geom: geom.NewLineStringFlat(geom.XY, []float64{500, 2500, 2500, 2500})},
		},
	}
	grid := testGrid(3, 3, 1000)

	r, err := v.Rasterize(grid)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.At(0, 0))
	assert.Equal(t, 1.0, r.At(0, 1))
	assert.Equal(t, 1.0, r.At(0, 2))
}

func TestRasterizeCRSMismatch(t *testing.T) {
	v := &VectorLayer{Spec: Spec{Name: "roads"}, CRS: CRSWGS84}
	_, err := v.Rasterize(testGrid(3, 3, 1000))
	assert.Error(t, err)
}

func TestVectorDistanceProximity(t *testing.T) {
	v := &VectorLayer{
		Spec: Spec{Category: "infra", Name: "markets", Distance: DistanceProximity},
		CRS:  CRSWebMercator,
		Features: []Feature{
			{Geom: geom.NewPointFlat(geom.XY, []float64{500, 2500})}, // cell (0,0)
		},
	}
	base := testGrid(3, 3, 1000)

	d, err := v.DistanceRaster(base)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 0.0, d.At(0, 0))
	assert.InDelta(t, 2000.0, d.At(0, 2), 1e-9)
	assert.Same(t, d, v.Derived)
}

func TestVectorReproject(t *testing.T) {
	v := &VectorLayer{
		Spec: Spec{Category: "infra", Name: "markets"},
		CRS:  CRSWGS84,
		Features: []Feature{
			{Geom: geom.NewPointFlat(geom.XY, []float64{36.8, -1.3})},
		},
	}
	require.NoError(t, v.Reproject(CRSWebMercator))
	assert.Equal(t, CRSWebMercator, v.CRS)
	x := v.Features[0].Geom.FlatCoords()[0]
	assert.InDelta(t, 36.8*111319.490793, x, 1)
}
