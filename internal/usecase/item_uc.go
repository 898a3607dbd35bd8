package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/whimsicalfrog/shop/internal/domain"
)

type ItemUC struct {
	Items    domain.ItemRepo
	Featured domain.FeaturedRepo
}

func (uc *ItemUC) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Items.List(ctx, f)
}

func (uc *ItemUC) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, errors.New("empty sku")
	}
	return uc.Items.FindBySKU(ctx, sku)
}

func (uc *ItemUC) Create(ctx context.Context, it *domain.Item) error {
	if it == nil || strings.TrimSpace(it.SKU) == "" {
		return errors.New("item sku")
	}
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	if it.Slug == "" {
		it.Slug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(it.Name), " ", "-"))
	}
	return uc.Items.Save(ctx, it)
}

func (uc *ItemUC) Update(ctx context.Context, it *domain.Item) error {
	if it == nil || it.ID == uuid.Nil {
		return errors.New("item id")
	}
	return uc.Items.Save(ctx, it)
}

func (uc *ItemUC) DeleteBySKU(ctx context.Context, sku string) error {
	if strings.TrimSpace(sku) == "" {
		return errors.New("empty sku")
	}
	return uc.Items.DeleteBySKU(ctx, sku)
}

func (uc *ItemUC) Categories(ctx context.Context) ([]string, error) {
	return uc.Items.DistinctCategories(ctx)
}

func (uc *ItemUC) ListFeatured(ctx context.Context) ([]domain.Item, error) {
	return uc.Featured.ListWithItems(ctx)
}

// SetFeatured replaces the landing-page set; slice order is display order.
func (uc *ItemUC) SetFeatured(ctx context.Context, skus []string) error {
	seen := map[string]struct{}{}
	clean := make([]string, 0, len(skus))
	for _, sku := range skus {
		sku = strings.TrimSpace(sku)
		if sku == "" {
			continue
		}
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		clean = append(clean, sku)
	}
	return uc.Featured.Replace(ctx, clean)
}
