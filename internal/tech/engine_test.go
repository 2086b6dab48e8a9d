package tech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/stoveplan/internal/layer"
	"github.com/sells-group/stoveplan/internal/points"
)

func newTestTable(t *testing.T) *points.Table {
	t.Helper()
	grid := layer.Grid{
		CRS: 3857, OriginX: 0, OriginY: 2000,
		CellWidth: 1000, CellHeight: -1000, NX: 2, NY: 2,
	}
	pop, err := layer.NewRaster(layer.Spec{Category: "demographics", Name: "population"}, grid, -9999)
	require.NoError(t, err)
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			pop.SetCell(row, col, float64(10*(row*2+col+1)))
		}
	}
	tbl := points.NewTable()
	require.NoError(t, tbl.Extract(pop))
	require.NoError(t, tbl.SetColumn(points.ColIsUrban, []float64{0, 0, 1, 2}))
	return tbl
}

func TestEngineApply(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.SetColumn("road_travel_time", []float64{0, 1, 2, 4}))

	tech := testTech(NameLPG)
	tech.PM25 = 10

	eng := &Engine{
		Scenario:           testInputs(),
		RoadTravelColumn:   "road_travel_time",
		TransportSurcharge: 0.25,
	}
	require.NoError(t, eng.Apply(tbl, tech))

	col, err := tbl.Column(NameLPG)
	require.NoError(t, err)
	require.Len(t, col, 4)

	// Net cost grows with road travel time for an LPG stove.
	assert.Less(t, col[0], col[1])
	assert.Less(t, col[1], col[3])
}

func TestEngineIgnoresNoDataTravelValues(t *testing.T) {
	tbl := newTestTable(t)
	require.NoError(t, tbl.SetColumn("road_travel_time", []float64{-9999, 0, 0, 0}))
	require.NoError(t, tbl.SetColumn("collection_time", []float64{-9999, 0, 0, 0}))

	tech := testTech(NameLPG)
	tech.PM25 = 10

	eng := &Engine{
		Scenario:           testInputs(),
		RoadTravelColumn:   "road_travel_time",
		WalkTravelColumn:   "collection_time",
		TransportSurcharge: 0.25,
	}
	require.NoError(t, eng.Apply(tbl, tech))

	col, err := tbl.Column(NameLPG)
	require.NoError(t, err)
	require.Len(t, col, 4)

	// A cell the travel surfaces never reached costs the same as one with
	// zero travel, not a hugely negative transport term.
	assert.InDelta(t, col[1], col[0], 1e-9)
}

func TestEngineUrbanSelection(t *testing.T) {
	tbl := newTestTable(t)

	tech := testTech(NameTraditionalBiomass)
	tech.PM25 = 500

	eng := &Engine{Scenario: testInputs()}
	require.NoError(t, eng.Apply(tbl, tech))

	col, err := tbl.Column(NameTraditionalBiomass)
	require.NoError(t, err)

	// Points 0 and 1 are rural, 2 and 3 urban. Rural households are larger
	// in the test params, so the health benefit is bigger and the net cost
	// lower.
	assert.Less(t, col[0], col[2])
	assert.InDelta(t, col[0], col[1], 1e-9)
	assert.InDelta(t, col[2], col[3], 1e-9)
}

func TestEngineApplyAllAndBest(t *testing.T) {
	tbl := newTestTable(t)

	lpg := testTech(NameLPG)
	lpg.PM25 = 10
	dirty := testTech(NameTraditionalBiomass)
	dirty.PM25 = 500
	dirty.FuelCost = 0

	techs := []*Technology{lpg, dirty}
	eng := &Engine{Scenario: testInputs()}
	require.NoError(t, eng.ApplyAll(tbl, techs))

	assert.True(t, tbl.HasColumn(NameLPG))
	assert.True(t, tbl.HasColumn(NameTraditionalBiomass))

	best, err := Best(tbl, techs)
	require.NoError(t, err)
	require.Len(t, best, 4)
	lpgCol, err := tbl.Column(NameLPG)
	require.NoError(t, err)
	dirtyCol, err := tbl.Column(NameTraditionalBiomass)
	require.NoError(t, err)
	for p, idx := range best {
		want := 0
		if dirtyCol[p] < lpgCol[p] {
			want = 1
		}
		assert.Equal(t, want, idx, "point %d", p)
	}
}

func TestEngineApplyInvalidTechnology(t *testing.T) {
	tbl := newTestTable(t)
	tech := testTech(NameLPG)
	tech.Efficiency = 0

	eng := &Engine{Scenario: testInputs()}
	assert.Error(t, eng.Apply(tbl, tech))
	assert.False(t, tbl.HasColumn(NameLPG))
}

func TestBestWithoutColumns(t *testing.T) {
	tbl := newTestTable(t)
	_, err := Best(tbl, []*Technology{testTech(NameLPG)})
	assert.Error(t, err)
}
