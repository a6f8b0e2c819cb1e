package zoning

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/zoning-audit/internal/model"
)

// PolicyOverride is one zone's entry in the policy YAML file. Pointer fields
// distinguish "not set" from an explicit zero (a zero setback is legal).
type PolicyOverride struct {
	MaxHeight *float64 `yaml:"max_height"`
	Setback   *float64 `yaml:"setback"`
}

// PolicyFile holds per-zone policy overrides plus file-level defaults.
type PolicyFile struct {
	Defaults PolicyOverride            `yaml:"defaults"`
	Zones    map[string]PolicyOverride `yaml:"zones"`
}

// LoadPolicyFile parses a policy YAML file.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: read policy file %s", path)
	}
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrapf(err, "zoning: parse policy file %s", path)
	}
	return &pf, nil
}

// ResolvePolicies fills in each zone's policy. Precedence per field:
// shapefile/GeoJSON attribute (SourceMaxHeight/SourceSetback), then the
// zone's YAML override, then the YAML defaults, then the global fallback.
// An explicit zero setback at any level is honored. An unresolvable max
// height is a configuration error and therefore fatal.
func ResolvePolicies(zones []model.Zone, file *PolicyFile, fallback model.Policy) error {
	for i := range zones {
		z := &zones[i]

		var override, defaults PolicyOverride
		if file != nil {
			defaults = file.Defaults
			if o, ok := file.Zones[z.ID]; ok {
				override = o
			}
		}

		switch {
		case z.SourceMaxHeight != nil:
			z.Policy.MaxHeight = *z.SourceMaxHeight
		case override.MaxHeight != nil:
			z.Policy.MaxHeight = *override.MaxHeight
		case defaults.MaxHeight != nil:
			z.Policy.MaxHeight = *defaults.MaxHeight
		default:
			z.Policy.MaxHeight = fallback.MaxHeight
		}

		switch {
		case z.SourceSetback != nil:
			z.Policy.Setback = *z.SourceSetback
		case override.Setback != nil:
			z.Policy.Setback = *override.Setback
		case defaults.Setback != nil:
			z.Policy.Setback = *defaults.Setback
		default:
			z.Policy.Setback = fallback.Setback
		}

		if z.Policy.MaxHeight <= 0 {
			return eris.Errorf("zoning: zone %s has no resolvable max height", z.ID)
		}
		if z.Policy.Setback < 0 {
			return eris.Errorf("zoning: zone %s has negative setback", z.ID)
		}
	}
	return nil
}
