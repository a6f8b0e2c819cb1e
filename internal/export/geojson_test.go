package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "violations.geojson")
	require.NoError(t, WriteGeoJSON(path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "1", fc.Features[0].ID)
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Height", fc.Features[0].Properties["category"])
	assert.Equal(t, "Town Hall", fc.Features[0].Properties["name"])
	assert.InDelta(t, 14.2, fc.Features[0].Properties["height"].(float64), 1e-9)
	assert.Equal(t, "tags", fc.Features[1].Properties["height_source"])
}

func TestWriteGeoJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.geojson")
	res := sampleResult()
	res.Violations = nil
	require.NoError(t, WriteGeoJSON(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")
}
