package domain

import (
	"time"

	"github.com/google/uuid"
)

type Dimension string

const (
	DimensionGender Dimension = "gender"
	DimensionSize   Dimension = "size"
	DimensionColor  Dimension = "color"
)

// AllDimensions is the default cascade order when an item has no saved config.
var AllDimensions = []Dimension{DimensionGender, DimensionSize, DimensionColor}

func (d Dimension) Valid() bool {
	return d == DimensionGender || d == DimensionSize || d == DimensionColor
}

// OptionConfig holds the per-item dimension configuration: which axes are
// enabled, in what order they nest, and the raw grouping rules JSON. Version
// is the optimistic lock for every mutating inventory operation on the SKU.
type OptionConfig struct {
	ID                uuid.UUID   `gorm:"type:uuid;primaryKey"`
	ItemSKU           string      `gorm:"size:100;uniqueIndex"`
	CascadeOrder      []Dimension `gorm:"type:jsonb;serializer:json"`
	EnabledDimensions []Dimension `gorm:"type:jsonb;serializer:json"`
	GroupingRules     string      `gorm:"type:text"`
	Version           int64       `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func DefaultOptionConfig(sku string) *OptionConfig {
	return &OptionConfig{
		ID:                uuid.New(),
		ItemSKU:           sku,
		CascadeOrder:      append([]Dimension(nil), AllDimensions...),
		EnabledDimensions: append([]Dimension(nil), AllDimensions...),
	}
}

// SetCascadeOrder replaces the nesting order. The order must be a permutation
// of exactly the three dimensions; reordering never touches stock data.
func (c *OptionConfig) SetCascadeOrder(order []Dimension) error {
	if len(order) != len(AllDimensions) {
		return ErrInvalidCascadeOrder
	}
	seen := map[Dimension]bool{}
	for _, d := range order {
		if !d.Valid() || seen[d] {
			return ErrInvalidCascadeOrder
		}
		seen[d] = true
	}
	c.CascadeOrder = append([]Dimension(nil), order...)
	return nil
}

// SetEnabledDimensions replaces the enabled set. At least one dimension must
// stay enabled. Returns the dimensions that were switched off so the caller
// can collapse the corresponding tree levels (the collapse is never silent).
func (c *OptionConfig) SetEnabledDimensions(set []Dimension) ([]Dimension, error) {
	if len(set) == 0 {
		return nil, ErrEmptyDimensionSet
	}
	enabled := map[Dimension]bool{}
	for _, d := range set {
		if !d.Valid() {
			return nil, ErrEmptyDimensionSet
		}
		enabled[d] = true
	}
	var disabled []Dimension
	for _, d := range c.EnabledDimensions {
		if !enabled[d] {
			disabled = append(disabled, d)
		}
	}
	c.EnabledDimensions = nil
	for _, d := range c.CascadeOrder {
		if enabled[d] {
			c.EnabledDimensions = append(c.EnabledDimensions, d)
		}
	}
	return disabled, nil
}

// EnabledCascade returns the cascade order filtered down to enabled
// dimensions; this is the shape of the variant tree.
func (c *OptionConfig) EnabledCascade() []Dimension {
	enabled := map[Dimension]bool{}
	for _, d := range c.EnabledDimensions {
		enabled[d] = true
	}
	out := make([]Dimension, 0, len(c.EnabledDimensions))
	for _, d := range c.CascadeOrder {
		if enabled[d] {
			out = append(out, d)
		}
	}
	return out
}
