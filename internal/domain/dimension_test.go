package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCascadeOrder(t *testing.T) {
	tests := []struct {
		name    string
		order   []Dimension
		wantErr bool
	}{
		{"valid permutation", []Dimension{DimensionColor, DimensionGender, DimensionSize}, false},
		{"identity", []Dimension{DimensionGender, DimensionSize, DimensionColor}, false},
		{"too short", []Dimension{DimensionGender, DimensionSize}, true},
		{"duplicate", []Dimension{DimensionGender, DimensionGender, DimensionColor}, true},
		{"unknown dimension", []Dimension{DimensionGender, DimensionSize, Dimension("material")}, true},
		{"empty", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultOptionConfig("SKU-1")
			err := cfg.SetCascadeOrder(tc.order)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCascadeOrder)
				assert.Equal(t, AllDimensions, cfg.CascadeOrder, "rejected order leaves config untouched")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.order, cfg.CascadeOrder)
			}
		})
	}
}

func TestSetEnabledDimensions(t *testing.T) {
	cfg := DefaultOptionConfig("SKU-1")

	disabled, err := cfg.SetEnabledDimensions([]Dimension{DimensionSize, DimensionColor})
	require.NoError(t, err)
	assert.Equal(t, []Dimension{DimensionGender}, disabled, "caller is told what to collapse")
	assert.Equal(t, []Dimension{DimensionSize, DimensionColor}, cfg.EnabledDimensions)

	disabled, err = cfg.SetEnabledDimensions([]Dimension{DimensionSize})
	require.NoError(t, err)
	assert.Equal(t, []Dimension{DimensionColor}, disabled)

	_, err = cfg.SetEnabledDimensions(nil)
	assert.ErrorIs(t, err, ErrEmptyDimensionSet)
	assert.Equal(t, []Dimension{DimensionSize}, cfg.EnabledDimensions, "rejected set leaves config untouched")

	_, err = cfg.SetEnabledDimensions([]Dimension{Dimension("material")})
	assert.ErrorIs(t, err, ErrEmptyDimensionSet)
}

func TestEnabledCascadeFollowsCascadeOrder(t *testing.T) {
	cfg := DefaultOptionConfig("SKU-1")
	require.NoError(t, cfg.SetCascadeOrder([]Dimension{DimensionColor, DimensionSize, DimensionGender}))
	_, err := cfg.SetEnabledDimensions([]Dimension{DimensionGender, DimensionColor})
	require.NoError(t, err)
	assert.Equal(t, []Dimension{DimensionColor, DimensionGender}, cfg.EnabledCascade())
}
