package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/whimsicalfrog/shop/internal/domain"
)

type ItemRepo struct{ db *gorm.DB }

func NewItemRepo(db *gorm.DB) *ItemRepo { return &ItemRepo{db: db} }

func (r *ItemRepo) Save(ctx context.Context, it *domain.Item) error {
	return r.db.WithContext(ctx).Save(it).Error
}

func (r *ItemRepo) FindBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	var it domain.Item
	if err := r.db.WithContext(ctx).First(&it, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (r *ItemRepo) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int64, error) {
	var list []domain.Item
	q := r.db.WithContext(ctx).Model(&domain.Item{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Query != "" {
		like := "%" + strings.TrimSpace(f.Query) + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?) OR LOWER(sku) LIKE LOWER(?)", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	switch f.Sort {
	case "price_desc":
		q = q.Order("retail_price desc")
	case "price_asc":
		q = q.Order("retail_price asc")
	case "stock":
		q = q.Order("total_stock desc")
	case "newest":
		q = q.Order("created_at desc")
	default:
		q = q.Order("name asc")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Offset(offset).Limit(f.PageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ItemRepo) DeleteBySKU(ctx context.Context, sku string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_sku = ?", sku).Delete(&domain.VariantNode{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_sku = ?", sku).Delete(&domain.OptionConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_sku = ?", sku).Delete(&domain.FeaturedItem{}).Error; err != nil {
			return err
		}
		return tx.Where("sku = ?", sku).Delete(&domain.Item{}).Error
	})
}

func (r *ItemRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	cats := []string{}
	if err := r.db.WithContext(ctx).Model(&domain.Item{}).
		Distinct("category").Where("category <> ''").Order("category asc").Pluck("category", &cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *ItemRepo) SetTotalStock(ctx context.Context, sku string, total int) error {
	res := r.db.WithContext(ctx).Model(&domain.Item{}).Where("sku = ?", sku).UpdateColumn("total_stock", total)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
