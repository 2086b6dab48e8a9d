package points

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Extract(newPopRaster(t)))
	require.NoError(t, tbl.SetColumn(ColIsUrban, []float64{0, 1, 0, 2}))

	var sb strings.Builder
	require.NoError(t, tbl.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "X;Y;Pop;IsUrban", lines[0])
	assert.Equal(t, "500;2500;10;0", lines[1])
	assert.Equal(t, "2500;500;40;2", lines[4])
}

func TestWriteCSVBeforeExtract(t *testing.T) {
	var sb strings.Builder
	assert.ErrorIs(t, NewTable().WriteCSV(&sb), ErrNotExtracted)
}
