package domain

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Tree is the in-memory variant tree for one SKU. It is rebuilt from rows on
// every request, mutated by the operations below, and flattened back to rows
// for persistence. Rollups on group nodes are always derived from active leaf
// stock; a stored rollup is never trusted as input.
type Tree struct {
	SKU     string
	Cascade []Dimension

	nodes    map[string]*VariantNode
	children map[string][]*VariantNode
	nextSeq  int
}

func NewTree(sku string, cascade []Dimension) *Tree {
	return &Tree{
		SKU:      sku,
		Cascade:  append([]Dimension(nil), cascade...),
		nodes:    map[string]*VariantNode{},
		children: map[string][]*VariantNode{},
	}
}

// BuildTree assembles a tree from stored rows. Rows are copied; the caller's
// slice is not retained.
func BuildTree(sku string, cascade []Dimension, rows []VariantNode) *Tree {
	t := NewTree(sku, cascade)
	for i := range rows {
		n := rows[i]
		t.nodes[n.Path] = &n
		t.children[n.ParentPath] = append(t.children[n.ParentPath], &n)
		if n.Seq >= t.nextSeq {
			t.nextSeq = n.Seq + 1
		}
	}
	for p := range t.children {
		t.sortSiblings(p)
	}
	t.RecomputeRollups()
	return t
}

func (t *Tree) sortSiblings(parentPath string) {
	sib := t.children[parentPath]
	sort.SliceStable(sib, func(i, j int) bool {
		if sib[i].DisplayOrder != sib[j].DisplayOrder {
			return sib[i].DisplayOrder < sib[j].DisplayOrder
		}
		return sib[i].Seq < sib[j].Seq
	})
}

func (t *Tree) Node(path string) (*VariantNode, bool) {
	n, ok := t.nodes[path]
	return n, ok
}

// Children returns the ordered children of path ("" for the top level).
func (t *Tree) Children(path string) []*VariantNode {
	return t.children[path]
}

func (t *Tree) Len() int { return len(t.nodes) }

// Add inserts a node at path. Ancestors must already exist (top-down, in
// cascade order); leaves live only at full cascade depth, groups above it.
func (t *Tree) Add(path string, kind NodeKind) (*VariantNode, error) {
	values := SplitPath(path)
	depth := len(values)
	if depth == 0 || depth > len(t.Cascade) {
		return nil, fmt.Errorf("%w: path %q does not fit cascade depth %d", ErrParentMissing, path, len(t.Cascade))
	}
	if kind == KindLeaf && depth != len(t.Cascade) {
		return nil, fmt.Errorf("%w: leaf %q above full depth", ErrNotALeaf, path)
	}
	if kind == KindGroup && depth == len(t.Cascade) {
		return nil, fmt.Errorf("%w: group %q at leaf depth", ErrNotALeaf, path)
	}
	if _, ok := t.nodes[path]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}
	parent := ParentOf(path)
	if parent != "" {
		p, ok := t.nodes[parent]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrParentMissing, parent)
		}
		if p.IsLeaf() {
			return nil, fmt.Errorf("%w: parent %q is a leaf", ErrNotALeaf, parent)
		}
	}
	n := &VariantNode{
		ID:           uuid.New(),
		ItemSKU:      t.SKU,
		Path:         path,
		ParentPath:   parent,
		Depth:        depth,
		Dimension:    t.Cascade[depth-1],
		Value:        values[depth-1],
		Kind:         kind,
		Active:       true,
		DisplayOrder: len(t.children[parent]),
		Seq:          t.nextSeq,
	}
	t.nextSeq++
	t.nodes[path] = n
	t.children[parent] = append(t.children[parent], n)
	return n, nil
}

// SetLeafStock writes a leaf quantity and refreshes ancestor rollups.
func (t *Tree) SetLeafStock(path string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeStock, qty)
	}
	n, ok := t.nodes[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if !n.IsLeaf() {
		return fmt.Errorf("%w: %s", ErrNotALeaf, path)
	}
	n.StockLevel = qty
	t.RecomputeRollups()
	return nil
}

// ToggleActive marks a node active/inactive; for a group the flag cascades to
// every descendant. Inactive leaves drop out of availability rollups but keep
// their stock for history.
func (t *Tree) ToggleActive(path string, active bool) error {
	n, ok := t.nodes[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	t.setActive(n, active)
	t.RecomputeRollups()
	return nil
}

func (t *Tree) setActive(n *VariantNode, active bool) {
	n.Active = active
	for _, c := range t.children[n.Path] {
		t.setActive(c, active)
	}
}

// RecomputeRollups walks the tree bottom-up and rewrites every group node's
// RollupTotal from its active children. Idempotent.
func (t *Tree) RecomputeRollups() {
	byDepth := make([][]*VariantNode, len(t.Cascade)+1)
	for _, n := range t.nodes {
		byDepth[n.Depth] = append(byDepth[n.Depth], n)
	}
	for d := len(t.Cascade); d >= 1; d-- {
		for _, n := range byDepth[d] {
			if n.IsLeaf() {
				continue
			}
			sum := 0
			for _, c := range t.children[n.Path] {
				if c.Active {
					sum += c.Total()
				}
			}
			n.RollupTotal = sum
		}
	}
}

// RootTotal is the available stock of the whole item: the sum over active
// top-level nodes.
func (t *Tree) RootTotal() int {
	sum := 0
	for _, n := range t.children[""] {
		if n.Active {
			sum += n.Total()
		}
	}
	return sum
}

// EnsureCombinations ("Configure containers") creates zero-stock leaves so
// that the full cross-product of active dimension values exists. The reserved
// General value never participates. Idempotent: existing nodes and their
// stock are left alone; the number of added leaves is returned.
func (t *Tree) EnsureCombinations() int {
	values := make([][]string, len(t.Cascade))
	for i := range t.Cascade {
		values[i] = t.activeValuesAtDepth(i + 1)
	}
	for _, vs := range values {
		if len(vs) == 0 {
			return 0
		}
	}
	added := 0
	var walk func(prefix []string, depth int)
	walk = func(prefix []string, depth int) {
		for _, v := range values[depth] {
			p := append(append([]string(nil), prefix...), v)
			path := JoinPath(p...)
			if depth == len(t.Cascade)-1 {
				if _, ok := t.nodes[path]; !ok {
					if _, err := t.Add(path, KindLeaf); err == nil {
						added++
					}
				}
			} else {
				if _, ok := t.nodes[path]; !ok {
					_, _ = t.Add(path, KindGroup)
				}
				walk(p, depth+1)
			}
		}
	}
	walk(nil, 0)
	t.RecomputeRollups()
	return added
}

// activeValuesAtDepth collects the distinct active values observed at one
// cascade level, in sibling display order.
func (t *Tree) activeValuesAtDepth(depth int) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(parentPath string, d int)
	walk = func(parentPath string, d int) {
		for _, n := range t.children[parentPath] {
			if !n.Active {
				continue
			}
			if d == depth {
				if n.Value != GeneralValue && !seen[n.Value] {
					seen[n.Value] = true
					out = append(out, n.Value)
				}
				continue
			}
			walk(n.Path, d+1)
		}
	}
	walk("", 1)
	return out
}

// Distribution records how one size's general stock was spread.
type Distribution struct {
	SizePath string         `json:"size_path"`
	Quantity int            `json:"quantity"`
	Shares   map[string]int `json:"shares"`
}

// DistributeGeneralEvenly spreads each matching size's General row across its
// active color leaves: floor(Q/N) each, remainder to the first Q mod N colors
// in display order (insertion order breaks ties), then zeroes the General
// row. Total stock is conserved. Sizes with no general stock are skipped; a
// size holding general stock with no active colors fails the whole call with
// ErrNoActiveColors before anything is mutated.
func (t *Tree) DistributeGeneralEvenly(sizeCode string) ([]Distribution, error) {
	type pending struct {
		general *VariantNode
		colors  []*VariantNode
	}
	var work []pending
	matched := false
	hasColorLevel := false
	for _, n := range t.nodes {
		if n.Dimension != DimensionSize || n.Value != sizeCode || !n.Active {
			continue
		}
		matched = true
		if n.IsLeaf() {
			continue
		}
		hasColorLevel = true
		var general *VariantNode
		var colors []*VariantNode
		for _, c := range t.children[n.Path] {
			if !c.IsLeaf() || !c.Active {
				continue
			}
			if c.Value == GeneralValue {
				general = c
				continue
			}
			colors = append(colors, c)
		}
		if general == nil || general.StockLevel == 0 {
			continue
		}
		if len(colors) == 0 {
			return nil, fmt.Errorf("%w: size %s", ErrNoActiveColors, sizeCode)
		}
		work = append(work, pending{general: general, colors: colors})
	}
	if !matched {
		return nil, fmt.Errorf("%w: size %s", ErrNotFound, sizeCode)
	}
	if !hasColorLevel {
		return nil, fmt.Errorf("%w: size %s holds stock directly, no color level to distribute into", ErrNoActiveColors, sizeCode)
	}
	var result []Distribution
	for _, w := range work {
		q, n := w.general.StockLevel, len(w.colors)
		base, rem := q/n, q%n
		shares := make(map[string]int, n)
		for i, c := range w.colors {
			c.StockLevel = base
			if i < rem {
				c.StockLevel++
			}
			shares[c.Path] = c.StockLevel
		}
		w.general.StockLevel = 0
		result = append(result, Distribution{SizePath: w.general.ParentPath, Quantity: q, Shares: shares})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SizePath < result[j].SizePath })
	t.RecomputeRollups()
	return result, nil
}

type AdjustOp string

const (
	AdjustSet      AdjustOp = "set"
	AdjustAdd      AdjustOp = "add"
	AdjustSubtract AdjustOp = "subtract"
)

type BulkAdjustResult struct {
	Adjusted int      `json:"adjusted"`
	Clamped  int      `json:"clamped"`
	Skipped  []string `json:"skipped,omitempty"`
}

// BulkAdjust applies op to every leaf in paths. The visible set is the
// caller's concern and is passed in explicitly. Subtract clamps at zero and
// the clamp count is reported; paths that resolve to nothing or to a group
// are skipped, not fatal.
func (t *Tree) BulkAdjust(op AdjustOp, value int, paths []string) (*BulkAdjustResult, error) {
	if value < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeStock, value)
	}
	if op != AdjustSet && op != AdjustAdd && op != AdjustSubtract {
		return nil, fmt.Errorf("unknown adjust op %q", op)
	}
	res := &BulkAdjustResult{}
	for _, p := range paths {
		n, ok := t.nodes[p]
		if !ok || !n.IsLeaf() {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		switch op {
		case AdjustSet:
			n.StockLevel = value
		case AdjustAdd:
			n.StockLevel += value
		case AdjustSubtract:
			if value > n.StockLevel {
				n.StockLevel = 0
				res.Clamped++
			} else {
				n.StockLevel -= value
			}
		}
		res.Adjusted++
	}
	t.RecomputeRollups()
	return res, nil
}

// CollapseMerge records one merged leaf produced by collapsing a dimension.
type CollapseMerge struct {
	Path    string   `json:"path"`
	Sources []string `json:"sources"`
	Stock   int      `json:"stock"`
}

type CollapseReport struct {
	Dimension Dimension       `json:"dimension"`
	Merges    []CollapseMerge `json:"merges"`
}

// CollapseDimension removes one level from the tree, summing the stock of
// leaves that fall together. Inactive leaf stock is carried along; a merged
// leaf is active when any source was. The tree is rebuilt in place.
func (t *Tree) CollapseDimension(d Dimension) (*CollapseReport, error) {
	idx := -1
	for i, cd := range t.Cascade {
		if cd == d {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: dimension %s not in cascade", ErrNotFound, d)
	}
	if len(t.Cascade) == 1 {
		return nil, ErrEmptyDimensionSet
	}

	type merged struct {
		stock   int
		active  bool
		sources []string
	}
	order := []string{}
	acc := map[string]*merged{}
	var walk func(parentPath string)
	walk = func(parentPath string) {
		for _, n := range t.children[parentPath] {
			if n.IsLeaf() {
				values := SplitPath(n.Path)
				values = append(values[:idx], values[idx+1:]...)
				np := JoinPath(values...)
				m, ok := acc[np]
				if !ok {
					m = &merged{}
					acc[np] = m
					order = append(order, np)
				}
				m.stock += n.StockLevel
				m.active = m.active || n.Active
				m.sources = append(m.sources, n.Path)
				continue
			}
			walk(n.Path)
		}
	}
	walk("")

	newCascade := append(append([]Dimension(nil), t.Cascade[:idx]...), t.Cascade[idx+1:]...)
	rebuilt := NewTree(t.SKU, newCascade)
	report := &CollapseReport{Dimension: d}
	for _, np := range order {
		m := acc[np]
		if err := rebuilt.graftLeaf(SplitPath(np), m.stock, m.active); err != nil {
			return nil, err
		}
		report.Merges = append(report.Merges, CollapseMerge{Path: np, Sources: m.sources, Stock: m.stock})
	}
	rebuilt.RecomputeRollups()
	t.adopt(rebuilt)
	return report, nil
}

// ReorderCascade rebuilds the tree so node nesting follows order, which must
// be a permutation of the current cascade. Every leaf keeps its stock and
// active flag under the permuted path. Group nodes are recreated from the
// leaves, so childless containers do not survive a reorder.
func (t *Tree) ReorderCascade(order []Dimension) error {
	if len(order) != len(t.Cascade) {
		return fmt.Errorf("%w: %v does not cover %v", ErrInvalidCascadeOrder, order, t.Cascade)
	}
	pos := map[Dimension]int{}
	for i, d := range t.Cascade {
		pos[d] = i
	}
	perm := make([]int, len(order))
	seen := map[Dimension]bool{}
	same := true
	for i, d := range order {
		oi, ok := pos[d]
		if !ok || seen[d] {
			return fmt.Errorf("%w: %v does not cover %v", ErrInvalidCascadeOrder, order, t.Cascade)
		}
		seen[d] = true
		perm[i] = oi
		if oi != i {
			same = false
		}
	}
	if same {
		return nil
	}
	rebuilt := NewTree(t.SKU, order)
	for _, leaf := range t.Leaves() {
		values := SplitPath(leaf.Path)
		nv := make([]string, len(values))
		for i, oi := range perm {
			nv[i] = values[oi]
		}
		if err := rebuilt.graftLeaf(nv, leaf.StockLevel, leaf.Active); err != nil {
			return err
		}
	}
	rebuilt.RecomputeRollups()
	t.adopt(rebuilt)
	return nil
}

// ExpandDimension re-inserts a previously collapsed dimension. target is the
// cascade the configuration now prescribes; the tree gains one level at d's
// position in it, and every existing leaf's stock moves onto a General-valued
// row at the new level so no quantity is lost. The admin spreads or renames
// those rows afterwards.
func (t *Tree) ExpandDimension(d Dimension, target []Dimension) error {
	have := map[Dimension]bool{d: true}
	for _, cd := range t.Cascade {
		if cd == d {
			return fmt.Errorf("%w: dimension %s already in cascade", ErrDuplicatePath, d)
		}
		have[cd] = true
	}
	var step []Dimension
	idx := -1
	for _, td := range target {
		if !have[td] {
			continue
		}
		if td == d {
			idx = len(step)
		}
		step = append(step, td)
	}
	if idx < 0 {
		return fmt.Errorf("%w: dimension %s not in target cascade", ErrNotFound, d)
	}
	rebuilt := NewTree(t.SKU, step)
	for _, leaf := range t.Leaves() {
		values := SplitPath(leaf.Path)
		nv := make([]string, 0, len(values)+1)
		nv = append(nv, values[:idx]...)
		nv = append(nv, GeneralValue)
		nv = append(nv, values[idx:]...)
		if err := rebuilt.graftLeaf(nv, leaf.StockLevel, leaf.Active); err != nil {
			return err
		}
	}
	rebuilt.RecomputeRollups()
	t.adopt(rebuilt)
	return nil
}

// graftLeaf creates the group chain for values and adds the final leaf,
// carrying stock and the active flag.
func (t *Tree) graftLeaf(values []string, stock int, active bool) error {
	for i := 1; i < len(values); i++ {
		gp := JoinPath(values[:i]...)
		if _, ok := t.nodes[gp]; !ok {
			if _, err := t.Add(gp, KindGroup); err != nil {
				return err
			}
		}
	}
	leaf, err := t.Add(JoinPath(values...), KindLeaf)
	if err != nil {
		return err
	}
	leaf.StockLevel = stock
	leaf.Active = active
	return nil
}

func (t *Tree) adopt(o *Tree) {
	t.Cascade = o.Cascade
	t.nodes = o.nodes
	t.children = o.children
	t.nextSeq = o.nextSeq
}

// Flatten returns every node ordered by depth then path, ready to persist.
func (t *Tree) Flatten() []VariantNode {
	out := make([]VariantNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// Leaves returns all leaf nodes ordered by path.
func (t *Tree) Leaves() []VariantNode {
	var out []VariantNode
	for _, n := range t.nodes {
		if n.IsLeaf() {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
