package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/whimsicalfrog/shop/internal/domain"
)

// InventoryUC drives the variant option engine. Every mutating operation runs
// through the gateway's Update cycle: re-read tree, apply, recompute rollups,
// commit with a version bump. A losing writer gets ErrConcurrentModification
// and the admin UI retries.
type InventoryUC struct {
	Variants domain.VariantRepo
	Items    domain.ItemRepo
}

func (uc *InventoryUC) GetTree(ctx context.Context, sku string) (*domain.Tree, *domain.OptionConfig, error) {
	cfg, err := uc.Variants.GetConfig(ctx, sku)
	if errors.Is(err, domain.ErrNotFound) {
		cfg = domain.DefaultOptionConfig(sku)
	} else if err != nil {
		return nil, nil, err
	}
	nodes, err := uc.Variants.GetNodes(ctx, sku)
	if err != nil {
		return nil, nil, err
	}
	return domain.BuildTree(sku, cfg.EnabledCascade(), nodes), cfg, nil
}

// DisplayTree renders the tree for the UI with grouping rules applied.
// activeOnly is the storefront view. Malformed stored rules degrade to the
// ungrouped display and the diagnostics ride along.
func (uc *InventoryUC) DisplayTree(ctx context.Context, sku string, activeOnly bool) ([]*domain.DisplayNode, []string, error) {
	tree, cfg, err := uc.GetTree(ctx, sku)
	if err != nil {
		return nil, nil, err
	}
	display, diags := domain.ApplyGroupingRules(tree, cfg.GroupingRules, activeOnly)
	return display, diags, nil
}

func (uc *InventoryUC) AddNode(ctx context.Context, sku, path string, kind domain.NodeKind) error {
	return uc.mutate(ctx, sku, func(t *domain.Tree) error {
		_, err := t.Add(path, kind)
		return err
	})
}

func (uc *InventoryUC) SetLeafStock(ctx context.Context, sku, path string, qty int) error {
	return uc.mutate(ctx, sku, func(t *domain.Tree) error {
		return t.SetLeafStock(path, qty)
	})
}

func (uc *InventoryUC) ToggleActive(ctx context.Context, sku, path string, active bool) error {
	return uc.mutate(ctx, sku, func(t *domain.Tree) error {
		return t.ToggleActive(path, active)
	})
}

// ConfigureContainers fills in the missing cross-product of active dimension
// values with zero-stock leaves. Idempotent; returns how many were added.
func (uc *InventoryUC) ConfigureContainers(ctx context.Context, sku string) (int, error) {
	added := 0
	err := uc.mutate(ctx, sku, func(t *domain.Tree) error {
		added = t.EnsureCombinations()
		return nil
	})
	return added, err
}

func (uc *InventoryUC) DistributeGeneral(ctx context.Context, sku, sizeCode string) ([]domain.Distribution, error) {
	var dist []domain.Distribution
	err := uc.mutate(ctx, sku, func(t *domain.Tree) error {
		var err error
		dist, err = t.DistributeGeneralEvenly(sizeCode)
		return err
	})
	return dist, err
}

func (uc *InventoryUC) BulkAdjust(ctx context.Context, sku string, op domain.AdjustOp, value int, paths []string) (*domain.BulkAdjustResult, error) {
	var res *domain.BulkAdjustResult
	err := uc.mutate(ctx, sku, func(t *domain.Tree) error {
		var err error
		res, err = t.BulkAdjust(op, value, paths)
		return err
	})
	return res, err
}

// SyncStock recomputes rollups from leaf stock and copies the root total onto
// the item record so listings can sort and filter by availability.
func (uc *InventoryUC) SyncStock(ctx context.Context, sku string) (int, error) {
	total := 0
	err := uc.mutate(ctx, sku, func(t *domain.Tree) error {
		t.RecomputeRollups()
		total = t.RootTotal()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := uc.Items.SetTotalStock(ctx, sku, total); err != nil {
		return 0, err
	}
	return total, nil
}

// SetDimensionConfig saves the cascade order and enabled set, reshaping the
// tree to match. Reordering permutes every node path into the new nesting.
// Disabling a dimension collapses that tree level with stock summed into the
// merged leaves; every merge is reported and logged, never silent. Re-enabling
// a dimension restores the level with each leaf's stock on a General row.
func (uc *InventoryUC) SetDimensionConfig(ctx context.Context, sku string, cascade, enabled []domain.Dimension) ([]*domain.CollapseReport, error) {
	var reports []*domain.CollapseReport
	err := uc.Variants.Update(ctx, sku, func(cfg *domain.OptionConfig, nodes []domain.VariantNode) (*domain.TreeUpdate, error) {
		tree := domain.BuildTree(sku, cfg.EnabledCascade(), nodes)
		if cascade != nil {
			if err := cfg.SetCascadeOrder(cascade); err != nil {
				return nil, err
			}
			if err := tree.ReorderCascade(cfg.EnabledCascade()); err != nil {
				return nil, err
			}
		}
		if enabled != nil {
			before := map[domain.Dimension]bool{}
			for _, d := range cfg.EnabledDimensions {
				before[d] = true
			}
			disabled, err := cfg.SetEnabledDimensions(enabled)
			if err != nil {
				return nil, err
			}
			for _, d := range disabled {
				rep, err := tree.CollapseDimension(d)
				if err != nil {
					return nil, err
				}
				for _, m := range rep.Merges {
					log.Info().Str("sku", sku).Str("dimension", string(d)).
						Str("path", m.Path).Strs("sources", m.Sources).Int("stock", m.Stock).
						Msg("dimension collapse merged variants")
				}
				reports = append(reports, rep)
			}
			for _, d := range cfg.EnabledDimensions {
				if before[d] {
					continue
				}
				if err := tree.ExpandDimension(d, cfg.EnabledCascade()); err != nil {
					return nil, err
				}
				log.Info().Str("sku", sku).Str("dimension", string(d)).
					Msg("dimension re-enabled, stock moved to General rows")
			}
		}
		tree.RecomputeRollups()
		return &domain.TreeUpdate{Config: cfg, Nodes: tree.Flatten()}, nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// SetGroupingRules validates and stores the display grouping rules. Malformed
// input is rejected with diagnostics and nothing is stored; grouping is a
// display convenience, so the tree itself is untouched either way.
func (uc *InventoryUC) SetGroupingRules(ctx context.Context, sku, raw string) ([]string, error) {
	if _, diags, err := domain.ParseGroupingRules(raw); err != nil {
		return diags, err
	}
	err := uc.Variants.Update(ctx, sku, func(cfg *domain.OptionConfig, nodes []domain.VariantNode) (*domain.TreeUpdate, error) {
		cfg.GroupingRules = raw
		return &domain.TreeUpdate{Config: cfg, Nodes: nodes}, nil
	})
	return nil, err
}

// mutate is the shared read-modify-write cycle: build the tree inside the
// gateway transaction, apply op, recompute rollups, persist the full node
// set.
func (uc *InventoryUC) mutate(ctx context.Context, sku string, op func(t *domain.Tree) error) error {
	return uc.Variants.Update(ctx, sku, func(cfg *domain.OptionConfig, nodes []domain.VariantNode) (*domain.TreeUpdate, error) {
		tree := domain.BuildTree(sku, cfg.EnabledCascade(), nodes)
		if err := op(tree); err != nil {
			return nil, err
		}
		tree.RecomputeRollups()
		return &domain.TreeUpdate{Config: cfg, Nodes: tree.Flatten()}, nil
	})
}
