package zoning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zoning-audit/internal/model"
)

func TestLoadPolicyFile(t *testing.T) {
	yaml := `
defaults:
  max_height: 10.5
  setback: 5.0
zones:
  R1:
    max_height: 12
    setback: 3
  CBD:
    max_height: 45
`
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	pf, err := LoadPolicyFile(path)
	require.NoError(t, err)

	require.NotNil(t, pf.Defaults.MaxHeight)
	assert.InDelta(t, 10.5, *pf.Defaults.MaxHeight, 1e-9)
	require.Contains(t, pf.Zones, "R1")
	assert.InDelta(t, 3.0, *pf.Zones["R1"].Setback, 1e-9)
	assert.Nil(t, pf.Zones["CBD"].Setback)
}

func TestLoadPolicyFileMissing(t *testing.T) {
	_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func f64(v float64) *float64 { return &v }

func TestResolvePolicies(t *testing.T) {
	file := &PolicyFile{
		Defaults: PolicyOverride{MaxHeight: f64(10.5), Setback: f64(5)},
		Zones: map[string]PolicyOverride{
			"R1":   {MaxHeight: f64(12), Setback: f64(3)},
			"FREE": {Setback: f64(0)},
		},
	}
	fallback := model.Policy{MaxHeight: 9, Setback: 4}

	zones := []model.Zone{
		{ID: "ATTR", SourceMaxHeight: f64(30), SourceSetback: f64(6)}, // attributes win
		{ID: "R1"},   // zone override
		{ID: "MISC"}, // file defaults
		{ID: "FREE"}, // explicit zero setback override
	}

	require.NoError(t, ResolvePolicies(zones, file, fallback))

	assert.Equal(t, model.Policy{MaxHeight: 30, Setback: 6}, zones[0].Policy)
	assert.Equal(t, model.Policy{MaxHeight: 12, Setback: 3}, zones[1].Policy)
	assert.Equal(t, model.Policy{MaxHeight: 10.5, Setback: 5}, zones[2].Policy)
	assert.Equal(t, model.Policy{MaxHeight: 10.5, Setback: 0}, zones[3].Policy)
}

func TestResolvePoliciesExplicitZeroAttribute(t *testing.T) {
	// A zero setback declared by the input's own attribute must survive
	// resolution instead of being replaced by the fallback.
	zones := []model.Zone{
		{ID: "Z", SourceSetback: f64(0)},
	}
	require.NoError(t, ResolvePolicies(zones, nil, model.Policy{MaxHeight: 10.5, Setback: 5}))
	assert.Equal(t, model.Policy{MaxHeight: 10.5, Setback: 0}, zones[0].Policy)
}

func TestResolvePoliciesPartialAttributes(t *testing.T) {
	// Max height from the attribute, setback from the YAML override.
	file := &PolicyFile{Zones: map[string]PolicyOverride{"Z": {Setback: f64(2)}}}
	zones := []model.Zone{
		{ID: "Z", SourceMaxHeight: f64(20)},
	}
	require.NoError(t, ResolvePolicies(zones, file, model.Policy{MaxHeight: 10.5, Setback: 5}))
	assert.Equal(t, model.Policy{MaxHeight: 20, Setback: 2}, zones[0].Policy)
}

func TestResolvePoliciesFallbackOnly(t *testing.T) {
	zones := []model.Zone{{ID: "Z"}}
	require.NoError(t, ResolvePolicies(zones, nil, model.Policy{MaxHeight: 10.5, Setback: 5}))
	assert.Equal(t, model.Policy{MaxHeight: 10.5, Setback: 5}, zones[0].Policy)
}

func TestResolvePoliciesUnresolvable(t *testing.T) {
	zones := []model.Zone{{ID: "Z"}}
	err := ResolvePolicies(zones, nil, model.Policy{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max height")
}
