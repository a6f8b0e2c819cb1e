package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "violations.xlsx")
	require.NoError(t, WriteXLSX(path, sampleResult()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	sheet, ok := f.Sheet["violations"]
	require.True(t, ok)
	// Header plus three data rows.
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "footprint_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "1", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Town Hall", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "Height", sheet.Rows[1].Cells[6].String())

	height, err := sheet.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 14.2, height, 1e-9)

	summary, ok := f.Sheet["summary"]
	require.True(t, ok)
	assert.Equal(t, "run_id", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "run-42", summary.Rows[0].Cells[1].String())
}
