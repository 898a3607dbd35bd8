package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/whimsicalfrog/shop/internal/domain"
)

// VariantRepo is the persistence gateway for variant trees: rows keyed by
// (item_sku, path) plus one option-config row per SKU whose Version column is
// the optimistic lock for the whole tree.
type VariantRepo struct{ db *gorm.DB }

func NewVariantRepo(db *gorm.DB) *VariantRepo { return &VariantRepo{db: db} }

func (r *VariantRepo) GetConfig(ctx context.Context, sku string) (*domain.OptionConfig, error) {
	var cfg domain.OptionConfig
	if err := r.db.WithContext(ctx).First(&cfg, "item_sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *VariantRepo) GetNodes(ctx context.Context, sku string) ([]domain.VariantNode, error) {
	var nodes []domain.VariantNode
	if err := r.db.WithContext(ctx).
		Where("item_sku = ?", sku).
		Order("depth asc, display_order asc, seq asc").
		Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// Update runs one read-modify-write cycle for a SKU's tree in a single
// transaction. The config row is created on first touch. The version bump is
// guarded by WHERE version = <read value>; losing that race rolls everything
// back and surfaces ErrConcurrentModification for the caller to retry.
func (r *VariantRepo) Update(ctx context.Context, sku string, fn func(cfg *domain.OptionConfig, nodes []domain.VariantNode) (*domain.TreeUpdate, error)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cfg domain.OptionConfig
		err := tx.First(&cfg, "item_sku = ?", sku).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cfg = *domain.DefaultOptionConfig(sku)
			if err := tx.Create(&cfg).Error; err != nil {
				return fmt.Errorf("create option config: %w", err)
			}
		case err != nil:
			return err
		}
		readVersion := cfg.Version

		var nodes []domain.VariantNode
		if err := tx.Where("item_sku = ?", sku).
			Order("depth asc, display_order asc, seq asc").
			Find(&nodes).Error; err != nil {
			return err
		}

		upd, err := fn(&cfg, nodes)
		if err != nil {
			return err
		}

		if err := tx.Where("item_sku = ?", sku).Delete(&domain.VariantNode{}).Error; err != nil {
			return err
		}
		if len(upd.Nodes) > 0 {
			if err := tx.Create(&upd.Nodes).Error; err != nil {
				return fmt.Errorf("persist variant nodes: %w", err)
			}
		}

		saved := &cfg
		if upd.Config != nil {
			saved = upd.Config
		}
		res := tx.Model(&domain.OptionConfig{}).
			Where("item_sku = ? AND version = ?", sku, readVersion).
			Select("cascade_order", "enabled_dimensions", "grouping_rules", "version").
			Updates(domain.OptionConfig{
				CascadeOrder:      saved.CascadeOrder,
				EnabledDimensions: saved.EnabledDimensions,
				GroupingRules:     saved.GroupingRules,
				Version:           readVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConcurrentModification
		}
		return nil
	})
}
