package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"github.com/whimsicalfrog/shop/internal/domain"
	"github.com/whimsicalfrog/shop/internal/usecase"
)

type Server struct {
	mux       *http.ServeMux
	items     *usecase.ItemUC
	inventory *usecase.InventoryUC
	oauthCfg  *oauth2.Config

	adminAllowed map[string]struct{}
	adminSecret  []byte
}

func New(items *usecase.ItemUC, inventory *usecase.InventoryUC, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{items: items, inventory: inventory, oauthCfg: oauthCfg, mux: http.NewServeMux()}

	allowed := map[string]struct{}{}
	if raw := os.Getenv("ADMIN_ALLOWED_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				allowed[e] = struct{}{}
			}
		}
	}
	s.adminAllowed = allowed
	sec := os.Getenv("JWT_ADMIN_SECRET")
	if sec == "" {
		sec = os.Getenv("SECRET_KEY")
	}
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		RateLimit(120),
		Gzip,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/items", s.apiItems)
	s.mux.HandleFunc("/api/items/", s.apiItemBySKU)
	s.mux.HandleFunc("/api/categories", s.apiCategories)

	s.mux.HandleFunc("/api/inventory/", s.apiInventory)

	s.mux.HandleFunc("/admin/export/xlsx", s.handleAdminExportXLSX)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("/admin/logout", s.handleAdminLogout)
}

// --- Items ---

func (s *Server) apiItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		qv := r.URL.Query()
		f := domain.ItemFilter{
			Query:    qv.Get("q"),
			Category: qv.Get("category"),
			Sort:     qv.Get("sort"),
		}
		f.Page, f.PageSize = pagination(qv.Get("page"), qv.Get("page_size"))
		if qv.Get("all") == "" {
			active := true
			f.Active = &active
		}
		list, total, err := s.items.List(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list, "total": total, "page": f.Page})
	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		it, err := decodeItem(r)
		if err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.items.Create(r.Context(), it); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 201, it)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiItemBySKU(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/items/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	sku := parts[0]

	if sku == "featured" && len(parts) == 1 {
		s.apiFeatured(w, r)
		return
	}

	// GET /api/items/{sku}/options feeds the storefront dropdowns: active
	// leaves only, grouping rules applied.
	if len(parts) == 2 && parts[1] == "options" && r.Method == http.MethodGet {
		display, diags, err := s.inventory.DisplayTree(r.Context(), sku, true)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := map[string]any{"sku": sku, "options": display}
		if len(diags) > 0 {
			resp["grouping_diagnostics"] = diags
		}
		writeJSON(w, 200, resp)
		return
	}
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		it, err := s.items.GetBySKU(r.Context(), sku)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, it)
	case http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		existing, err := s.items.GetBySKU(r.Context(), sku)
		if err != nil {
			writeError(w, err)
			return
		}
		it, err := decodeItem(r)
		if err != nil {
			http.Error(w, "json", 400)
			return
		}
		it.ID = existing.ID
		it.SKU = existing.SKU
		it.TotalStock = existing.TotalStock
		if it.Slug == "" {
			it.Slug = existing.Slug
		}
		if err := s.items.Update(r.Context(), it); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, it)
	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		if err := s.items.DeleteBySKU(r.Context(), sku); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok"})
	default:
		http.Error(w, "method", 405)
	}
}

// apiFeatured serves and replaces the landing-page item set.
func (s *Server) apiFeatured(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.items.ListFeatured(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list})
	case http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		var req struct {
			SKUs []string `json:"skus"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.items.SetFeatured(r.Context(), req.SKUs); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok"})
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	cats, err := s.items.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"categories": cats})
}

// --- Inventory engine ---

// apiInventory dispatches /api/inventory/{sku}/{action}. Everything here is
// admin surface.
func (s *Server) apiInventory(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/inventory/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	sku, action := parts[0], parts[1]

	switch {
	case action == "tree" && r.Method == http.MethodGet:
		s.inventoryTree(w, r, sku)
	case action == "nodes" && r.Method == http.MethodPost:
		s.inventoryAddNode(w, r, sku)
	case action == "stock" && r.Method == http.MethodPut:
		s.inventorySetStock(w, r, sku)
	case action == "active" && r.Method == http.MethodPut:
		s.inventoryToggleActive(w, r, sku)
	case action == "configure-containers" && r.Method == http.MethodPost:
		s.inventoryConfigureContainers(w, r, sku)
	case action == "distribute" && r.Method == http.MethodPost:
		s.inventoryDistribute(w, r, sku)
	case action == "sync" && r.Method == http.MethodPost:
		s.inventorySync(w, r, sku)
	case action == "bulk-adjust" && r.Method == http.MethodPost:
		s.inventoryBulkAdjust(w, r, sku)
	case action == "dimensions" && r.Method == http.MethodPut:
		s.inventoryDimensions(w, r, sku)
	case action == "grouping-rules" && r.Method == http.MethodPut:
		s.inventoryGroupingRules(w, r, sku)
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) inventoryTree(w http.ResponseWriter, r *http.Request, sku string) {
	tree, cfg, err := s.inventory.GetTree(r.Context(), sku)
	if err != nil {
		writeError(w, err)
		return
	}
	display, diags := domain.ApplyGroupingRules(tree, cfg.GroupingRules, false)
	resp := map[string]any{
		"sku":            sku,
		"cascade_order":  cfg.CascadeOrder,
		"enabled":        cfg.EnabledDimensions,
		"grouping_rules": cfg.GroupingRules,
		"version":        cfg.Version,
		"total":          tree.RootTotal(),
		"tree":           display,
	}
	if len(diags) > 0 {
		resp["grouping_diagnostics"] = diags
	}
	writeJSON(w, 200, resp)
}

func (s *Server) inventoryAddNode(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		Path string          `json:"path"`
		Kind domain.NodeKind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "json", 400)
		return
	}
	if req.Kind == "" {
		req.Kind = domain.KindLeaf
	}
	if err := s.inventory.AddNode(r.Context(), sku, req.Path, req.Kind); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 201, map[string]any{"status": "ok", "path": req.Path})
}

func (s *Server) inventorySetStock(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		Path     string `json:"path"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "json", 400)
		return
	}
	if err := s.inventory.SetLeafStock(r.Context(), sku, req.Path, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "path": req.Path, "quantity": req.Quantity})
}

func (s *Server) inventoryToggleActive(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		Path   string `json:"path"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "json", 400)
		return
	}
	if err := s.inventory.ToggleActive(r.Context(), sku, req.Path, req.Active); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "path": req.Path, "active": req.Active})
}

func (s *Server) inventoryConfigureContainers(w http.ResponseWriter, r *http.Request, sku string) {
	added, err := s.inventory.ConfigureContainers(r.Context(), sku)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "added": added})
}

func (s *Server) inventoryDistribute(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		SizeCode string `json:"size_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SizeCode == "" {
		http.Error(w, "json", 400)
		return
	}
	dist, err := s.inventory.DistributeGeneral(r.Context(), sku, req.SizeCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "distributions": dist})
}

func (s *Server) inventorySync(w http.ResponseWriter, r *http.Request, sku string) {
	total, err := s.inventory.SyncStock(r.Context(), sku)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "total": total})
}

func (s *Server) inventoryBulkAdjust(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		Op    domain.AdjustOp `json:"op"`
		Value int             `json:"value"`
		Paths []string        `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Paths) == 0 {
		http.Error(w, "json", 400)
		return
	}
	res, err := s.inventory.BulkAdjust(r.Context(), sku, req.Op, req.Value, req.Paths)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, res)
}

func (s *Server) inventoryDimensions(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		CascadeOrder []domain.Dimension `json:"cascade_order"`
		Enabled      []domain.Dimension `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	reports, err := s.inventory.SetDimensionConfig(r.Context(), sku, req.CascadeOrder, req.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "collapses": reports})
}

func (s *Server) inventoryGroupingRules(w http.ResponseWriter, r *http.Request, sku string) {
	var req struct {
		Rules json.RawMessage `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	// The admin field is free text, so rules may arrive as a JSON string or
	// as the object itself.
	raw := string(req.Rules)
	var asString string
	if json.Unmarshal(req.Rules, &asString) == nil {
		raw = asString
	}
	diags, err := s.inventory.SetGroupingRules(r.Context(), sku, raw)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedGroupingRule) {
			writeJSON(w, 200, map[string]any{"accepted": false, "diagnostics": diags})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"accepted": true})
}

// --- helpers ---

func decodeItem(r *http.Request) (*domain.Item, error) {
	var req struct {
		SKU         string  `json:"sku"`
		Name        string  `json:"name"`
		Slug        string  `json:"slug"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		RetailPrice float64 `json:"retail_price"`
		CostPrice   float64 `json:"cost_price"`
		Active      *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	it := &domain.Item{
		SKU:         strings.TrimSpace(req.SKU),
		Name:        strings.TrimSpace(req.Name),
		Slug:        strings.TrimSpace(req.Slug),
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		RetailPrice: decimal.NewFromFloat(req.RetailPrice),
		CostPrice:   decimal.NewFromFloat(req.CostPrice),
		Active:      true,
	}
	if req.Active != nil {
		it.Active = *req.Active
	}
	return it, nil
}

func pagination(pageRaw, sizeRaw string) (int, int) {
	page := atoiDefault(pageRaw, 1)
	if page < 1 {
		page = 1
	}
	size := atoiDefault(sizeRaw, 20)
	if size < 1 || size > 200 {
		size = 20
	}
	return page, size
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var errorKinds = []struct {
	err  error
	kind string
	code int
}{
	{domain.ErrNotFound, "not_found", 404},
	{domain.ErrInvalidCascadeOrder, "invalid_cascade_order", 400},
	{domain.ErrEmptyDimensionSet, "empty_dimension_set", 400},
	{domain.ErrDuplicatePath, "duplicate_path", 400},
	{domain.ErrParentMissing, "parent_missing", 400},
	{domain.ErrNegativeStock, "negative_stock", 400},
	{domain.ErrNotALeaf, "not_a_leaf", 400},
	{domain.ErrNoActiveColors, "no_active_colors", 409},
	{domain.ErrConcurrentModification, "concurrent_modification", 409},
	{domain.ErrMalformedGroupingRule, "malformed_grouping_rule", 400},
}

// writeError maps domain sentinels onto status codes. Validation failures are
// 400, conflicts the caller should retry or resolve are 409.
func writeError(w http.ResponseWriter, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeJSON(w, k.code, map[string]any{"error": k.kind, "message": err.Error()})
			return
		}
	}
	writeJSON(w, 500, map[string]any{"error": "internal", "message": err.Error()})
}
