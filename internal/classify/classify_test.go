package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/zoning-audit/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		height   float64
		distance float64
		policy   model.Policy
		expected model.Category
	}{
		{
			name:     "compliant: under limit, outside setback",
			height:   8.0,
			distance: 6.0,
			policy:   model.Policy{MaxHeight: 10.5, Setback: 5.0},
			expected: model.CategoryNone,
		},
		{
			name:     "height violation only",
			height:   15.0,
			distance: 5.0,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryHeight,
		},
		{
			name:     "boundary violation only",
			height:   10.0,
			distance: 1.0,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryBoundary,
		},
		{
			name:     "both violations",
			height:   15.0,
			distance: 1.0,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryBoth,
		},
		{
			name:     "exactly at height limit is compliant",
			height:   12.0,
			distance: 5.0,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryNone,
		},
		{
			name:     "exactly at setback distance is compliant",
			height:   10.0,
			distance: 3.0,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryNone,
		},
		{
			name:     "barely over height limit",
			height:   12.001,
			distance: 5.0,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryHeight,
		},
		{
			name:     "barely inside setback",
			height:   10.0,
			distance: 2.999,
			policy:   model.Policy{MaxHeight: 12.0, Setback: 3.0},
			expected: model.CategoryBoundary,
		},
		{
			name:     "zero height, zero distance, zero setback",
			height:   0.0,
			distance: 0.0,
			policy:   model.Policy{MaxHeight: 10.0, Setback: 0.0},
			expected: model.CategoryNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.height, tt.distance, tt.policy)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	policy := model.Policy{MaxHeight: 12.0, Setback: 3.0}
	first := Classify(15.0, 2.0, policy)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(15.0, 2.0, policy))
	}
}
