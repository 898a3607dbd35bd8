package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// GroupingRules buckets raw dimension values under display labels, e.g.
// {"size": {"Plus": ["XL", "XXL"]}}. Purely a view concern: applying rules
// never touches stored stock or rollups.
type GroupingRules map[Dimension]map[string][]string

// ParseGroupingRules validates the free-text rules JSON against the only
// supported shape, {dimension: {bucketName: [values...]}}. Anything else is
// rejected with diagnostics; a raw value may belong to at most one bucket per
// dimension. Empty input means no rules.
func ParseGroupingRules(raw string) (GroupingRules, []string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		diag := []string{"grouping rules are not a JSON object: " + err.Error()}
		return nil, diag, fmt.Errorf("%w: %v", ErrMalformedGroupingRule, err)
	}
	rules := GroupingRules{}
	var diags []string
	for key, val := range top {
		dim := Dimension(strings.ToLower(key))
		if !dim.Valid() {
			diags = append(diags, fmt.Sprintf("unknown dimension %q", key))
			continue
		}
		var buckets map[string][]string
		if err := json.Unmarshal(val, &buckets); err != nil {
			diags = append(diags, fmt.Sprintf("dimension %q: buckets must map names to value arrays", key))
			continue
		}
		owner := map[string]string{}
		clean := map[string][]string{}
		for name, values := range buckets {
			for _, v := range values {
				if prev, taken := owner[v]; taken {
					diags = append(diags, fmt.Sprintf("dimension %q: value %q in buckets %q and %q", key, v, prev, name))
					continue
				}
				owner[v] = name
				clean[name] = append(clean[name], v)
			}
		}
		if len(clean) > 0 {
			rules[dim] = clean
		}
	}
	if len(diags) > 0 {
		return nil, diags, fmt.Errorf("%w: %s", ErrMalformedGroupingRule, strings.Join(diags, "; "))
	}
	if len(rules) == 0 {
		return nil, nil, nil
	}
	return rules, nil, nil
}

// DisplayNode is the view shape handed to the UI: the stored tree with
// grouping buckets injected. Bucket nodes carry no path and no stock of
// their own; their rollup is the sum of their members'.
type DisplayNode struct {
	Path      string         `json:"path,omitempty"`
	Dimension Dimension      `json:"dimension"`
	Value     string         `json:"value"`
	Kind      NodeKind       `json:"kind"`
	Stock     int            `json:"stock"`
	Rollup    int            `json:"rollup"`
	Active    bool           `json:"active"`
	Bucket    bool           `json:"bucket,omitempty"`
	Children  []*DisplayNode `json:"children,omitempty"`
}

// Display renders the tree for the UI with rules applied. activeOnly is the
// storefront view: inactive nodes are dropped entirely.
func (t *Tree) Display(rules GroupingRules, activeOnly bool) []*DisplayNode {
	return t.displayLevel("", 0, rules, activeOnly)
}

// ApplyGroupingRules parses raw rules and renders the display tree. Malformed
// rules degrade to the raw, ungrouped display; the diagnostics travel with
// the result so the admin UI can surface them.
func ApplyGroupingRules(t *Tree, raw string, activeOnly bool) ([]*DisplayNode, []string) {
	rules, diags, err := ParseGroupingRules(raw)
	if err != nil {
		return t.Display(nil, activeOnly), diags
	}
	return t.Display(rules, activeOnly), nil
}

func (t *Tree) displayLevel(parentPath string, depth int, rules GroupingRules, activeOnly bool) []*DisplayNode {
	if depth >= len(t.Cascade) {
		return nil
	}
	dim := t.Cascade[depth]
	var raw []*DisplayNode
	for _, n := range t.children[parentPath] {
		if activeOnly && !n.Active {
			continue
		}
		raw = append(raw, &DisplayNode{
			Path:      n.Path,
			Dimension: n.Dimension,
			Value:     n.Value,
			Kind:      n.Kind,
			Stock:     n.StockLevel,
			Rollup:    n.Total(),
			Active:    n.Active,
			Children:  t.displayLevel(n.Path, depth+1, rules, activeOnly),
		})
	}
	buckets, grouped := rules[dim]
	if !grouped {
		return raw
	}
	owner := map[string]string{}
	for name, values := range buckets {
		for _, v := range values {
			owner[v] = name
		}
	}
	// A bucket header replaces its first member in sibling order; later
	// members fold into it.
	var out []*DisplayNode
	headers := map[string]*DisplayNode{}
	for _, dn := range raw {
		name, bucketed := owner[dn.Value]
		if !bucketed {
			out = append(out, dn)
			continue
		}
		h, ok := headers[name]
		if !ok {
			h = &DisplayNode{Dimension: dim, Value: name, Kind: KindGroup, Active: true, Bucket: true}
			headers[name] = h
			out = append(out, h)
		}
		h.Rollup += dn.Rollup
		h.Children = append(h.Children, dn)
	}
	return out
}

// BucketNames returns a dimension's bucket labels in stable order, mostly for
// diagnostics and tests.
func (r GroupingRules) BucketNames(d Dimension) []string {
	names := make([]string, 0, len(r[d]))
	for name := range r[d] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
