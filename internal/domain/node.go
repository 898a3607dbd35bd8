package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type NodeKind string

const (
	KindGroup NodeKind = "group"
	KindLeaf  NodeKind = "leaf"
)

// GeneralValue is the reserved value for the ungrouped-by-color stock row of
// a size. It is never counted as an active color by Configure containers or
// Distribute general stock.
const GeneralValue = "General"

// VariantNode is one row of the tree-as-table representation: a node in the
// Gender→Size→Color tree for one item. Group nodes hold no independent stock;
// RollupTotal on them is derived and recomputed after every mutation.
type VariantNode struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ItemSKU      string    `gorm:"size:100;uniqueIndex:idx_variant_nodes_sku_path"`
	Path         string    `gorm:"size:255;uniqueIndex:idx_variant_nodes_sku_path"`
	ParentPath   string    `gorm:"size:255;index"`
	Depth        int       `gorm:"not null;default:0"`
	Dimension    Dimension `gorm:"type:varchar(10)"`
	Value        string    `gorm:"size:100"`
	Kind         NodeKind  `gorm:"type:varchar(10);not null"`
	StockLevel   int       `gorm:"not null;default:0"`
	RollupTotal  int       `gorm:"not null;default:0"`
	Active       bool      `gorm:"not null;default:true"`
	DisplayOrder int       `gorm:"not null;default:0"`
	Seq          int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (n *VariantNode) IsLeaf() bool { return n.Kind == KindLeaf }

// Total is the node's contribution to its parent's rollup.
func (n *VariantNode) Total() int {
	if n.IsLeaf() {
		return n.StockLevel
	}
	return n.RollupTotal
}

const pathSep = "/"

func JoinPath(values ...string) string { return strings.Join(values, pathSep) }

func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, pathSep)
}

func ParentOf(path string) string {
	i := strings.LastIndex(path, pathSep)
	if i < 0 {
		return ""
	}
	return path[:i]
}

func PathDepth(path string) int { return len(SplitPath(path)) }
