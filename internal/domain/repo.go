package domain

import "context"

type ItemRepo interface {
	Save(ctx context.Context, it *Item) error
	FindBySKU(ctx context.Context, sku string) (*Item, error)
	List(ctx context.Context, f ItemFilter) ([]Item, int64, error)
	DeleteBySKU(ctx context.Context, sku string) error
	DistinctCategories(ctx context.Context) ([]string, error)
	SetTotalStock(ctx context.Context, sku string, total int) error
}

type FeaturedRepo interface {
	ListWithItems(ctx context.Context) ([]Item, error)
	Replace(ctx context.Context, skus []string) error
}

// TreeUpdate is what a variant mutation hands back to the gateway: the
// (possibly reconfigured) config row and the full replacement node set.
type TreeUpdate struct {
	Config *OptionConfig
	Nodes  []VariantNode
}

// VariantRepo is the persistence gateway for variant trees. Update must run
// fn inside one transaction that re-reads the current state, persists the
// returned TreeUpdate and bumps the config version; a lost version race
// surfaces as ErrConcurrentModification and is never resolved silently.
type VariantRepo interface {
	GetConfig(ctx context.Context, sku string) (*OptionConfig, error)
	GetNodes(ctx context.Context, sku string) ([]VariantNode, error)
	Update(ctx context.Context, sku string, fn func(cfg *OptionConfig, nodes []VariantNode) (*TreeUpdate, error)) error
}
