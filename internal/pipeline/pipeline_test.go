package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/layer"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testGrid() layer.Grid {
	return layer.Grid{
		CRS: 3857, OriginX: 0, OriginY: 4000,
		CellWidth: 1000, CellHeight: -1000, NX: 4, NY: 4,
	}
}

func newRaster(t *testing.T, spec layer.Spec, fill float64) *layer.RasterLayer {
	t.Helper()
	r, err := layer.NewRaster(spec, testGrid(), -9999)
	require.NoError(t, err)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r.SetCell(row, col, fill)
		}
	}
	return r
}

func newBoundary() *layer.VectorLayer {
	// Covers the left half of the grid.
	ring := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2000, 0, 2000, 4000, 0, 4000, 0, 0}, []int{10})
	return &layer.VectorLayer{
		Spec:     layer.Spec{Category: "admin", Name: "boundary"},
		CRS:      3857,
		Features: []layer.Feature{{Geom: ring}},
	}
}

func TestRegisterEstablishesGrid(t *testing.T) {
	p := New(t.TempDir())

	_, err := p.Grid()
	assert.ErrorIs(t, err, ErrNoBase)

	base := newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10)
	require.NoError(t, p.Register(base, true))

	grid, err := p.Grid()
	require.NoError(t, err)
	assert.True(t, grid.Equal(base.Grid))
	assert.Equal(t, base, p.Base())
}

func TestRegisterSecondBaseSameResolution(t *testing.T) {
	p := New(t.TempDir())
	first := newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10)
	require.NoError(t, p.Register(first, true))

	// Same CRS, cell size within tolerance: adopted as-is, no resampling.
	// The established grid does not move either.
	shifted := testGrid()
	shifted.OriginX = 500
	second, err := layer.NewRaster(layer.Spec{Category: "demographics", Name: "density"}, shifted, -9999)
	require.NoError(t, err)
	require.NoError(t, p.Register(second, true))

	grid, err := p.Grid()
	require.NoError(t, err)
	assert.True(t, grid.Equal(first.Grid))
	assert.True(t, second.Grid.Equal(shifted))
}

func TestRegisterSecondBaseDifferentResolution(t *testing.T) {
	p := New(t.TempDir())
	require.NoError(t, p.Register(newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10), true))

	coarse := testGrid()
	coarse.CellWidth = 2000
	coarse.CellHeight = -2000
	coarse.NX = 2
	coarse.NY = 2
	other, err := layer.NewRaster(layer.Spec{Category: "demographics", Name: "coarse"}, coarse, -9999)
	require.NoError(t, err)
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			other.SetCell(row, col, 5)
		}
	}
	require.NoError(t, p.Register(other, true))

	// The coarse base is conformed onto the established grid, which itself
	// stays put.
	grid, err := p.Grid()
	require.NoError(t, err)
	assert.True(t, grid.Equal(testGrid()))
	assert.True(t, other.Grid.Equal(grid))
	assert.Equal(t, 5.0, other.At(0, 0))
}

func TestRegisterValidation(t *testing.T) {
	p := New(t.TempDir())
	r := newRaster(t, layer.Spec{Category: "", Name: "population"}, 1)
	assert.Error(t, p.Register(r, false))

	v := newBoundary()
	assert.Error(t, p.Register(v, true), "vector layers cannot establish the grid")
}

func TestMaskAllWithoutBoundary(t *testing.T) {
	p := New(t.TempDir())
	require.NoError(t, p.Register(newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10), true))
	assert.ErrorIs(t, p.MaskAll(SelectAll()), ErrNoMask)
}

func TestMaskAllClipsAndSaves(t *testing.T) {
	out := t.TempDir()
	p := New(out)
	pop := newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10)
	require.NoError(t, p.Register(pop, true))
	p.SetMask(newBoundary())

	require.NoError(t, p.MaskAll(SelectAll()))

	// Right half of the raster is outside the boundary.
	assert.Equal(t, 8, pop.ValidCount())
	_, err := os.Stat(filepath.Join(out, "demographics", "population", "population.asc"))
	assert.NoError(t, err)
}

func TestSelectionUnknownLayer(t *testing.T) {
	p := New(t.TempDir())
	require.NoError(t, p.Register(newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10), true))

	err := p.NormalizeAll(Select(map[string][]string{"demographics": {"missing"}}))
	assert.Error(t, err)
}

func TestPrepareEndToEnd(t *testing.T) {
	out := t.TempDir()
	p := New(out)

	pop := newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10)
	require.NoError(t, p.Register(pop, true))

	// A proximity layer: a single target cell, normalized inverse so that
	// near the target ranks high.
	towns := newRaster(t, layer.Spec{
		Category:      "demand",
		Name:          "towns",
		Distance:      layer.DistanceProximity,
		Normalization: layer.NormalizationMinMax,
		Inverse:       true,
	}, 0)
	towns.SetCell(0, 0, 1)
	require.NoError(t, p.Register(towns, false))

	require.NoError(t, p.Prepare(SelectAll()))

	require.NotNil(t, towns.Derived)
	// Zero distance at the target normalizes to 1 under inverse min-max.
	assert.InDelta(t, 1.0, towns.Derived.At(0, 0), 1e-9)

	lo, hi, ok := towns.Derived.MinMax()
	require.True(t, ok)
	assert.GreaterOrEqual(t, lo, 0.0)
	assert.LessOrEqual(t, hi, 1.0)

	_, err := os.Stat(filepath.Join(out, "demand", "towns", "towns-proximity.asc"))
	assert.NoError(t, err)
}

func TestLayerLookup(t *testing.T) {
	p := New(t.TempDir())
	pop := newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10)
	require.NoError(t, p.Register(pop, false))

	got, err := p.Layer("demographics", "population")
	require.NoError(t, err)
	assert.Equal(t, layer.Layer(pop), got)

	_, err = p.Layer("demographics", "absent")
	assert.Error(t, err)
}
