package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a sellable product. SKU is the key the whole variant engine hangs
// off; TotalStock is a denormalized copy of the root rollup, written only by
// the Sync Stock operation.
type Item struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SKU         string          `gorm:"size:100;uniqueIndex"`
	Slug        string          `gorm:"uniqueIndex;size:140"`
	Name        string          `gorm:"size:180"`
	Category    string          `gorm:"size:100"`
	Description string          `gorm:"type:text"`
	RetailPrice decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	Active      bool            `gorm:"default:true;index"`
	TotalStock  int             `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FeaturedItem pins an item onto the storefront landing page. The set is
// small and replaced wholesale from the admin UI.
type FeaturedItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ItemSKU      string    `gorm:"size:100;uniqueIndex"`
	DisplayOrder int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

type ItemFilter struct {
	Query    string
	Category string
	Active   *bool
	Sort     string
	Page     int
	PageSize int
}
