package app

import (
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/whimsicalfrog/shop/internal/adapters/httpserver"
	"github.com/whimsicalfrog/shop/internal/adapters/repo/postgres"
	"github.com/whimsicalfrog/shop/internal/domain"
	"github.com/whimsicalfrog/shop/internal/usecase"
)

type App struct {
	DB          *gorm.DB
	ItemUC      *usecase.ItemUC
	InventoryUC *usecase.InventoryUC
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {
	itemRepo := postgres.NewItemRepo(db)
	variantRepo := postgres.NewVariantRepo(db)
	featuredRepo := postgres.NewFeaturedItemRepo(db)

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	app := &App{
		DB:          db,
		ItemUC:      &usecase.ItemUC{Items: itemRepo, Featured: featuredRepo},
		InventoryUC: &usecase.InventoryUC{Variants: variantRepo, Items: itemRepo},
		OAuthConfig: oauthCfg,
	}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.ItemUC, a.InventoryUC, a.OAuthConfig)
}

func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Item{}, &domain.OptionConfig{}, &domain.VariantNode{}, &domain.FeaturedItem{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_items_total_stock ON items(total_stock)").Error

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_variant_nodes_parent ON variant_nodes(item_sku, parent_path)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_variant_nodes_depth ON variant_nodes(item_sku, depth)").Error
	_ = a.DB.Exec("ALTER TABLE option_configs ALTER COLUMN version SET NOT NULL").Error

	return nil
}
