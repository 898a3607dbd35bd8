package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, tr *Tree, path string, kind NodeKind) *VariantNode {
	t.Helper()
	n, err := tr.Add(path, kind)
	require.NoError(t, err, "add %s", path)
	return n
}

// newShirtTree builds the canonical Women/{S,M}/{Red,Blue} tree used across
// the tests, all leaves at zero stock.
func newShirtTree(t *testing.T) *Tree {
	t.Helper()
	tr := NewTree("SKU-1", AllDimensions)
	mustAdd(t, tr, "Women", KindGroup)
	mustAdd(t, tr, "Women/S", KindGroup)
	mustAdd(t, tr, "Women/M", KindGroup)
	mustAdd(t, tr, "Women/S/Red", KindLeaf)
	mustAdd(t, tr, "Women/S/Blue", KindLeaf)
	mustAdd(t, tr, "Women/M/Red", KindLeaf)
	mustAdd(t, tr, "Women/M/Blue", KindLeaf)
	return tr
}

func TestAddNode(t *testing.T) {
	tr := NewTree("SKU-1", AllDimensions)
	mustAdd(t, tr, "Women", KindGroup)
	mustAdd(t, tr, "Women/S", KindGroup)
	mustAdd(t, tr, "Women/S/Red", KindLeaf)

	tests := []struct {
		name    string
		path    string
		kind    NodeKind
		wantErr error
	}{
		{"duplicate leaf", "Women/S/Red", KindLeaf, ErrDuplicatePath},
		{"duplicate group", "Women", KindGroup, ErrDuplicatePath},
		{"missing parent", "Women/M/Red", KindLeaf, ErrParentMissing},
		{"missing grandparent", "Men/S/Red", KindLeaf, ErrParentMissing},
		{"leaf above full depth", "Women/L", KindLeaf, ErrNotALeaf},
		{"group at leaf depth", "Women/S/Green", KindGroup, ErrNotALeaf},
		{"path too deep", "Women/S/Red/Extra", KindLeaf, ErrParentMissing},
		{"empty path", "", KindGroup, ErrParentMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tr.Add(tc.path, tc.kind)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Equal(t, 3, tr.Len(), "failed adds must not change the tree")
}

func TestAddNodeAssignsDimensionAndOrder(t *testing.T) {
	tr := NewTree("SKU-1", AllDimensions)
	mustAdd(t, tr, "Women", KindGroup)
	mustAdd(t, tr, "Women/S", KindGroup)
	red := mustAdd(t, tr, "Women/S/Red", KindLeaf)
	blue := mustAdd(t, tr, "Women/S/Blue", KindLeaf)

	assert.Equal(t, DimensionColor, red.Dimension)
	assert.Equal(t, "Red", red.Value)
	assert.Equal(t, 3, red.Depth)
	assert.Equal(t, "Women/S", red.ParentPath)
	assert.Less(t, red.DisplayOrder, blue.DisplayOrder)
}

func TestSetLeafStock(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 7))

	n, ok := tr.Node("Women/S/Red")
	require.True(t, ok)
	assert.Equal(t, 7, n.StockLevel)

	s, _ := tr.Node("Women/S")
	assert.Equal(t, 7, s.RollupTotal, "ancestor rollup refreshed")
	w, _ := tr.Node("Women")
	assert.Equal(t, 7, w.RollupTotal)

	t.Run("negative stock rejected, tree unchanged", func(t *testing.T) {
		before := tr.Flatten()
		err := tr.SetLeafStock("Women/S/Red", -1)
		assert.ErrorIs(t, err, ErrNegativeStock)
		assert.Equal(t, before, tr.Flatten())
	})
	t.Run("group is not a leaf", func(t *testing.T) {
		assert.ErrorIs(t, tr.SetLeafStock("Women/S", 3), ErrNotALeaf)
	})
	t.Run("unknown path", func(t *testing.T) {
		assert.ErrorIs(t, tr.SetLeafStock("Women/S/Green", 3), ErrNotFound)
	})
}

func TestRecomputeRollups(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 3))
	require.NoError(t, tr.SetLeafStock("Women/S/Blue", 2))
	require.NoError(t, tr.SetLeafStock("Women/M/Red", 5))

	w, _ := tr.Node("Women")
	assert.Equal(t, 10, w.RollupTotal)
	assert.Equal(t, 10, tr.RootTotal())

	// a stale stored rollup is never trusted
	w.RollupTotal = 999
	tr.RecomputeRollups()
	assert.Equal(t, 10, w.RollupTotal)

	t.Run("idempotent", func(t *testing.T) {
		tr.RecomputeRollups()
		once := tr.Flatten()
		tr.RecomputeRollups()
		assert.Equal(t, once, tr.Flatten())
	})

	t.Run("inactive leaves excluded", func(t *testing.T) {
		require.NoError(t, tr.ToggleActive("Women/S/Red", false))
		s, _ := tr.Node("Women/S")
		assert.Equal(t, 2, s.RollupTotal)
		assert.Equal(t, 7, tr.RootTotal())
		n, _ := tr.Node("Women/S/Red")
		assert.Equal(t, 3, n.StockLevel, "stock retained for history")
	})
}

func TestToggleActiveCascades(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.ToggleActive("Women/S", false))
	for _, p := range []string{"Women/S", "Women/S/Red", "Women/S/Blue"} {
		n, _ := tr.Node(p)
		assert.False(t, n.Active, p)
	}
	m, _ := tr.Node("Women/M")
	assert.True(t, m.Active)

	assert.ErrorIs(t, tr.ToggleActive("Nope", true), ErrNotFound)

	// explicit reactivation
	require.NoError(t, tr.ToggleActive("Women/S", true))
	s, _ := tr.Node("Women/S")
	assert.True(t, s.Active)
}

func TestEnsureCombinations(t *testing.T) {
	tr := NewTree("SKU-1", AllDimensions)
	mustAdd(t, tr, "Women", KindGroup)
	mustAdd(t, tr, "Women/S", KindGroup)
	mustAdd(t, tr, "Women/M", KindGroup)
	mustAdd(t, tr, "Women/S/Red", KindLeaf)
	mustAdd(t, tr, "Women/S/Blue", KindLeaf)

	added := tr.EnsureCombinations()
	assert.Equal(t, 2, added, "Women/M/Red and Women/M/Blue")

	leaves := tr.Leaves()
	require.Len(t, leaves, 4)
	for _, l := range leaves {
		assert.Equal(t, 0, l.StockLevel)
	}
	for _, p := range []string{"Women/S", "Women/M"} {
		n, ok := tr.Node(p)
		require.True(t, ok)
		assert.Equal(t, 0, n.RollupTotal)
	}

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, tr.SetLeafStock("Women/M/Red", 4))
		before := tr.Flatten()
		assert.Equal(t, 0, tr.EnsureCombinations())
		assert.Equal(t, before, tr.Flatten(), "second run adds nothing and keeps stock")
	})

	t.Run("inactive values are skipped", func(t *testing.T) {
		tr := newShirtTree(t)
		require.NoError(t, tr.ToggleActive("Women/S/Blue", false))
		require.NoError(t, tr.ToggleActive("Women/M/Blue", false))
		assert.Equal(t, 0, tr.EnsureCombinations(), "Blue inactive everywhere, no cross-product gap")
	})

	t.Run("general row never cloned", func(t *testing.T) {
		tr := newShirtTree(t)
		mustAdd(t, tr, "Women/S/"+GeneralValue, KindLeaf)
		assert.Equal(t, 0, tr.EnsureCombinations())
		_, ok := tr.Node("Women/M/" + GeneralValue)
		assert.False(t, ok)
	})
}

func TestDistributeGeneralEvenly(t *testing.T) {
	build := func(t *testing.T, general int, colors ...string) *Tree {
		tr := NewTree("SKU-1", AllDimensions)
		mustAdd(t, tr, "Women", KindGroup)
		mustAdd(t, tr, "Women/M", KindGroup)
		g := mustAdd(t, tr, "Women/M/"+GeneralValue, KindLeaf)
		g.StockLevel = general
		for _, c := range colors {
			mustAdd(t, tr, "Women/M/"+c, KindLeaf)
		}
		tr.RecomputeRollups()
		return tr
	}

	t.Run("10 across 3 colors is 4/3/3", func(t *testing.T) {
		tr := build(t, 10, "Red", "Blue", "Green")
		dist, err := tr.DistributeGeneralEvenly("M")
		require.NoError(t, err)
		require.Len(t, dist, 1)
		assert.Equal(t, 10, dist[0].Quantity)

		stocks := map[string]int{}
		sum := 0
		for _, c := range []string{"Red", "Blue", "Green"} {
			n, _ := tr.Node("Women/M/" + c)
			stocks[c] = n.StockLevel
			sum += n.StockLevel
		}
		assert.Equal(t, map[string]int{"Red": 4, "Blue": 3, "Green": 3}, stocks, "remainder goes to the first color in display order")
		assert.Equal(t, 10, sum, "stock conserved")

		g, _ := tr.Node("Women/M/" + GeneralValue)
		assert.Equal(t, 0, g.StockLevel, "general row zeroed")
		m, _ := tr.Node("Women/M")
		assert.Equal(t, 10, m.RollupTotal)
	})

	t.Run("conservation over a spread of quantities", func(t *testing.T) {
		for q := 0; q <= 17; q++ {
			tr := build(t, q, "Red", "Blue", "Green", "Black", "White")
			if q == 0 {
				_, err := tr.DistributeGeneralEvenly("M")
				require.NoError(t, err)
				continue
			}
			_, err := tr.DistributeGeneralEvenly("M")
			require.NoError(t, err)
			assert.Equal(t, q, tr.RootTotal(), "q=%d", q)
		}
	})

	t.Run("existing color stock is replaced, not added", func(t *testing.T) {
		tr := build(t, 6, "Red", "Blue")
		r, _ := tr.Node("Women/M/Red")
		r.StockLevel = 99
		_, err := tr.DistributeGeneralEvenly("M")
		require.NoError(t, err)
		r, _ = tr.Node("Women/M/Red")
		assert.Equal(t, 3, r.StockLevel)
	})

	t.Run("no active colors", func(t *testing.T) {
		tr := build(t, 10)
		_, err := tr.DistributeGeneralEvenly("M")
		assert.ErrorIs(t, err, ErrNoActiveColors)
		g, _ := tr.Node("Women/M/" + GeneralValue)
		assert.Equal(t, 10, g.StockLevel, "general stock untouched on failure")
	})

	t.Run("inactive colors do not receive stock", func(t *testing.T) {
		tr := build(t, 9, "Red", "Blue", "Green")
		require.NoError(t, tr.ToggleActive("Women/M/Green", false))
		_, err := tr.DistributeGeneralEvenly("M")
		require.NoError(t, err)
		red, _ := tr.Node("Women/M/Red")
		blue, _ := tr.Node("Women/M/Blue")
		green, _ := tr.Node("Women/M/Green")
		assert.Equal(t, 5, red.StockLevel)
		assert.Equal(t, 4, blue.StockLevel)
		assert.Equal(t, 0, green.StockLevel)
	})

	t.Run("unknown size", func(t *testing.T) {
		tr := build(t, 10, "Red")
		_, err := tr.DistributeGeneralEvenly("XL")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("size at the leaf level has no color level", func(t *testing.T) {
		tr := NewTree("SKU-1", []Dimension{DimensionGender, DimensionSize})
		mustAdd(t, tr, "Women", KindGroup)
		mustAdd(t, tr, "Women/M", KindLeaf)
		require.NoError(t, tr.SetLeafStock("Women/M", 5))
		_, err := tr.DistributeGeneralEvenly("M")
		assert.ErrorIs(t, err, ErrNoActiveColors)
		n, _ := tr.Node("Women/M")
		assert.Equal(t, 5, n.StockLevel, "stock untouched")
	})

	t.Run("per-gender sizes distributed independently", func(t *testing.T) {
		tr := build(t, 4, "Red", "Blue")
		mustAdd(t, tr, "Men", KindGroup)
		mustAdd(t, tr, "Men/M", KindGroup)
		g := mustAdd(t, tr, "Men/M/"+GeneralValue, KindLeaf)
		g.StockLevel = 3
		mustAdd(t, tr, "Men/M/Red", KindLeaf)
		dist, err := tr.DistributeGeneralEvenly("M")
		require.NoError(t, err)
		assert.Len(t, dist, 2)
		mr, _ := tr.Node("Men/M/Red")
		assert.Equal(t, 3, mr.StockLevel)
	})
}

func TestBulkAdjust(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 5))
	require.NoError(t, tr.SetLeafStock("Women/S/Blue", 20))

	t.Run("subtract clamps at zero", func(t *testing.T) {
		res, err := tr.BulkAdjust(AdjustSubtract, 1000, []string{"Women/S/Red", "Women/S/Blue"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Adjusted)
		assert.Equal(t, 2, res.Clamped)
		for _, p := range []string{"Women/S/Red", "Women/S/Blue"} {
			n, _ := tr.Node(p)
			assert.Equal(t, 0, n.StockLevel)
		}
	})

	t.Run("partial clamp reported", func(t *testing.T) {
		tr := newShirtTree(t)
		require.NoError(t, tr.SetLeafStock("Women/S/Red", 5))
		require.NoError(t, tr.SetLeafStock("Women/S/Blue", 20))
		res, err := tr.BulkAdjust(AdjustSubtract, 10, []string{"Women/S/Red", "Women/S/Blue"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Clamped)
		blue, _ := tr.Node("Women/S/Blue")
		assert.Equal(t, 10, blue.StockLevel)
	})

	t.Run("set and add", func(t *testing.T) {
		res, err := tr.BulkAdjust(AdjustSet, 3, []string{"Women/M/Red", "Women/M/Blue"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Adjusted)
		res, err = tr.BulkAdjust(AdjustAdd, 2, []string{"Women/M/Red"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Adjusted)
		n, _ := tr.Node("Women/M/Red")
		assert.Equal(t, 5, n.StockLevel)
		m, _ := tr.Node("Women/M")
		assert.Equal(t, 8, m.RollupTotal)
	})

	t.Run("groups and unknown paths are skipped", func(t *testing.T) {
		res, err := tr.BulkAdjust(AdjustSet, 1, []string{"Women/S", "Women/M/Green", "Women/M/Red"})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Adjusted)
		assert.ElementsMatch(t, []string{"Women/S", "Women/M/Green"}, res.Skipped)
	})

	t.Run("negative value rejected", func(t *testing.T) {
		_, err := tr.BulkAdjust(AdjustAdd, -1, []string{"Women/M/Red"})
		assert.ErrorIs(t, err, ErrNegativeStock)
	})

	t.Run("unknown op rejected", func(t *testing.T) {
		_, err := tr.BulkAdjust(AdjustOp("multiply"), 2, []string{"Women/M/Red"})
		assert.Error(t, err)
	})
}

func TestCollapseDimension(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 3))
	require.NoError(t, tr.SetLeafStock("Women/S/Blue", 2))
	require.NoError(t, tr.SetLeafStock("Women/M/Red", 5))

	rep, err := tr.CollapseDimension(DimensionColor)
	require.NoError(t, err)
	assert.Equal(t, DimensionColor, rep.Dimension)

	assert.Equal(t, []Dimension{DimensionGender, DimensionSize}, tr.Cascade)
	s, ok := tr.Node("Women/S")
	require.True(t, ok)
	assert.Equal(t, KindLeaf, s.Kind, "former size groups become leaves")
	assert.Equal(t, 5, s.StockLevel, "color stock summed")
	m, _ := tr.Node("Women/M")
	assert.Equal(t, 5, m.StockLevel)
	assert.Equal(t, 10, tr.RootTotal(), "total stock conserved")

	var merged *CollapseMerge
	for i := range rep.Merges {
		if rep.Merges[i].Path == "Women/S" {
			merged = &rep.Merges[i]
		}
	}
	require.NotNil(t, merged)
	assert.ElementsMatch(t, []string{"Women/S/Red", "Women/S/Blue"}, merged.Sources)
	assert.Equal(t, 5, merged.Stock)

	t.Run("inactive source keeps merged leaf active when a sibling was active", func(t *testing.T) {
		tr := newShirtTree(t)
		require.NoError(t, tr.SetLeafStock("Women/S/Red", 1))
		require.NoError(t, tr.ToggleActive("Women/S/Blue", false))
		_, err := tr.CollapseDimension(DimensionColor)
		require.NoError(t, err)
		s, _ := tr.Node("Women/S")
		assert.True(t, s.Active)
	})

	t.Run("cannot collapse the last dimension", func(t *testing.T) {
		tr := NewTree("SKU-1", []Dimension{DimensionSize})
		_, err := tr.CollapseDimension(DimensionSize)
		assert.ErrorIs(t, err, ErrEmptyDimensionSet)
	})

	t.Run("dimension not in cascade", func(t *testing.T) {
		tr := NewTree("SKU-1", []Dimension{DimensionSize, DimensionColor})
		_, err := tr.CollapseDimension(DimensionGender)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReorderCascade(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 3))
	require.NoError(t, tr.SetLeafStock("Women/M/Blue", 2))

	newOrder := []Dimension{DimensionColor, DimensionSize, DimensionGender}
	require.NoError(t, tr.ReorderCascade(newOrder))

	assert.Equal(t, newOrder, tr.Cascade)
	display := tr.Display(nil, false)
	require.NotEmpty(t, display)
	for _, top := range display {
		assert.Equal(t, DimensionColor, top.Dimension, "top level nests by the new first dimension")
	}
	n, ok := tr.Node("Red/S/Women")
	require.True(t, ok)
	assert.Equal(t, 3, n.StockLevel)
	assert.Equal(t, 5, tr.RootTotal(), "stock conserved across the rebuild")

	t.Run("reordering back restores the original paths", func(t *testing.T) {
		require.NoError(t, tr.ReorderCascade(AllDimensions))
		n, ok := tr.Node("Women/S/Red")
		require.True(t, ok)
		assert.Equal(t, 3, n.StockLevel)
		assert.Equal(t, 5, tr.RootTotal())
	})

	t.Run("identity order is a no-op", func(t *testing.T) {
		before := tr.Flatten()
		require.NoError(t, tr.ReorderCascade(tr.Cascade))
		assert.Equal(t, before, tr.Flatten())
	})

	t.Run("inactive leaves keep their flag", func(t *testing.T) {
		tr := newShirtTree(t)
		require.NoError(t, tr.SetLeafStock("Women/S/Red", 3))
		require.NoError(t, tr.ToggleActive("Women/S/Red", false))
		require.NoError(t, tr.ReorderCascade([]Dimension{DimensionColor, DimensionSize, DimensionGender}))
		n, ok := tr.Node("Red/S/Women")
		require.True(t, ok)
		assert.False(t, n.Active)
		assert.Equal(t, 3, n.StockLevel)
		assert.Equal(t, 0, tr.RootTotal())
	})

	t.Run("not a permutation", func(t *testing.T) {
		tr := newShirtTree(t)
		err := tr.ReorderCascade([]Dimension{DimensionColor, DimensionColor, DimensionGender})
		assert.ErrorIs(t, err, ErrInvalidCascadeOrder)
		err = tr.ReorderCascade([]Dimension{DimensionColor})
		assert.ErrorIs(t, err, ErrInvalidCascadeOrder)
	})
}

func TestAddRejectsLeafParent(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 5))
	_, err := tr.CollapseDimension(DimensionColor)
	require.NoError(t, err)

	// rows written by a collapse, read back under a three-level cascade, must
	// not accept children below the stock-bearing leaves
	grown := BuildTree(tr.SKU, AllDimensions, tr.Flatten())
	_, err = grown.Add("Women/S/Blue", KindLeaf)
	assert.ErrorIs(t, err, ErrNotALeaf)
	assert.Equal(t, 5, grown.RootTotal())
}

func TestExpandDimension(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 3))
	require.NoError(t, tr.SetLeafStock("Women/S/Blue", 2))
	_, err := tr.CollapseDimension(DimensionColor)
	require.NoError(t, err)

	require.NoError(t, tr.ExpandDimension(DimensionColor, AllDimensions))

	assert.Equal(t, AllDimensions, tr.Cascade)
	s, ok := tr.Node("Women/S")
	require.True(t, ok)
	assert.Equal(t, KindGroup, s.Kind, "former leaf is a container again")
	g, ok := tr.Node("Women/S/" + GeneralValue)
	require.True(t, ok)
	assert.Equal(t, 5, g.StockLevel, "merged stock lands on the General row")
	assert.Equal(t, 5, tr.RootTotal())

	t.Run("new leaves join the rollup", func(t *testing.T) {
		mustAdd(t, tr, "Women/S/Blue", KindLeaf)
		require.NoError(t, tr.SetLeafStock("Women/S/Blue", 7))
		assert.Equal(t, 12, tr.RootTotal())
	})

	t.Run("dimension already present", func(t *testing.T) {
		err := tr.ExpandDimension(DimensionColor, AllDimensions)
		assert.ErrorIs(t, err, ErrDuplicatePath)
	})
}

func TestBuildTreeRoundTrip(t *testing.T) {
	tr := newShirtTree(t)
	require.NoError(t, tr.SetLeafStock("Women/S/Red", 3))
	require.NoError(t, tr.ToggleActive("Women/M/Blue", false))

	rebuilt := BuildTree(tr.SKU, tr.Cascade, tr.Flatten())
	assert.Equal(t, tr.Flatten(), rebuilt.Flatten())
	assert.Equal(t, tr.RootTotal(), rebuilt.RootTotal())
}

func TestEmptyTree(t *testing.T) {
	tr := BuildTree("SKU-9", AllDimensions, nil)
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, tr.RootTotal())
	assert.Equal(t, 0, tr.EnsureCombinations())
	assert.Empty(t, tr.Display(nil, true))
}
