package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/stoveplan/internal/layer"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "layers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
layers:
  - category: demographics
    name: population
    type: raster
    path: population.asc
    base: true
  - category: demand
    name: towns
    type: raster
    path: towns.asc
    distance: proximity
    normalization: minmax
    inverse: true
`)
	m, err := ReadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Layers, 2)
	assert.True(t, m.Layers[0].Base)
	assert.Equal(t, "proximity", m.Layers[1].Distance)
	assert.True(t, m.Layers[1].Inverse)
}

func TestReadManifestEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "layers: []\n")
	_, err := ReadManifest(path)
	assert.Error(t, err)
}

func TestManifestLoad(t *testing.T) {
	dataDir := t.TempDir()

	pop := newRaster(t, layer.Spec{Category: "demographics", Name: "population"}, 10)
	require.NoError(t, pop.Save(dataDir))
	towns := newRaster(t, layer.Spec{Category: "demand", Name: "towns"}, 0)
	towns.SetCell(0, 0, 1)
	require.NoError(t, towns.Save(dataDir))

	path := writeManifest(t, dataDir, `
layers:
  - category: demographics
    name: population
    type: raster
    path: population.asc
    base: true
  - category: demand
    name: towns
    type: raster
    path: towns.asc
    distance: proximity
`)
	m, err := ReadManifest(path)
	require.NoError(t, err)

	p := New(t.TempDir())
	require.NoError(t, m.Load(p, dataDir))

	grid, err := p.Grid()
	require.NoError(t, err)
	assert.Equal(t, 4, grid.NX)

	got, err := p.Layer("demand", "towns")
	require.NoError(t, err)
	assert.Equal(t, layer.DistanceProximity, got.LayerSpec().Distance)
}

func TestManifestLoadUnknownType(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
layers:
  - category: demand
    name: towns
    type: geotiff
    path: towns.tif
`)
	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Error(t, m.Load(New(t.TempDir()), dir))
}
