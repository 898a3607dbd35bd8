package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/whimsicalfrog/shop/internal/domain"
)

type FeaturedItemRepo struct{ db *gorm.DB }

func NewFeaturedItemRepo(db *gorm.DB) *FeaturedItemRepo {
	return &FeaturedItemRepo{db: db}
}

// ListWithItems returns the active items pinned to the landing page, in
// display order.
func (r *FeaturedItemRepo) ListWithItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := r.db.WithContext(ctx).
		Table("items").
		Select("items.*").
		Joins("INNER JOIN featured_items ON items.sku = featured_items.item_sku").
		Where("items.active = ?", true).
		Order("featured_items.display_order asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Replace swaps the whole featured set for the given SKUs, display order
// following slice order. Unknown SKUs fail the transaction.
func (r *FeaturedItemRepo) Replace(ctx context.Context, skus []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sku := range skus {
			var count int64
			if err := tx.Model(&domain.Item{}).Where("sku = ?", sku).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrNotFound
			}
		}
		if err := tx.Where("1 = 1").Delete(&domain.FeaturedItem{}).Error; err != nil {
			return err
		}
		for i, sku := range skus {
			fp := domain.FeaturedItem{
				ID:           uuid.New(),
				ItemSKU:      sku,
				DisplayOrder: i,
				CreatedAt:    time.Now(),
			}
			if err := tx.Create(&fp).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
