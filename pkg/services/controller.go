package services

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kerbaras/mangaread/pkg/config"
	"github.com/kerbaras/mangaread/pkg/data"
	"github.com/kerbaras/mangaread/pkg/sources"
	"github.com/kerbaras/mangaread/pkg/utils"
)

// MangaController wires the catalog, the persisted stores and the reader
// together for the TUI and the CLI.
type MangaController struct {
	cfg      config.Config
	log      *slog.Logger
	repo     *data.Repository
	catalog  sources.Catalog
	proxy    *sources.ImageProxy
	browse   *BrowseCache
	library  *Library
	reader   *Reader
	exporter *Exporter
}

// NewMangaController opens the configured store and builds the catalog clients.
func NewMangaController(cfg config.Config, log *slog.Logger) (*MangaController, error) {
	kv, err := data.OpenStore(cfg.StoreOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}

	client := &http.Client{Timeout: cfg.Catalog.Timeout.Duration}
	proxy, err := sources.NewImageProxy(cfg.Catalog.ProxyURL, cfg.Proxy.CacheSize,
		utils.NewAPI("",
			utils.WithClient(client),
			utils.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Catalog.RateLimit), cfg.Catalog.Burst))))
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to create image proxy: %w", err)
	}

	api := utils.NewAPI(cfg.Catalog.BaseURL,
		utils.WithClient(client),
		utils.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Catalog.RateLimit), cfg.Catalog.Burst)))
	catalog := sources.NewComick(api, proxy, log)

	return NewMangaControllerWith(cfg, log, data.NewRepository(kv), catalog, proxy), nil
}

// NewMangaControllerWith builds a controller over an already opened repository.
func NewMangaControllerWith(cfg config.Config, log *slog.Logger, repo *data.Repository, catalog sources.Catalog, proxy *sources.ImageProxy) *MangaController {
	library := NewLibrary(repo, log)
	return &MangaController{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		catalog:  catalog,
		proxy:    proxy,
		browse:   NewBrowseCache(catalog, repo, log),
		library:  library,
		reader:   NewReader(catalog, repo, library, log),
		exporter: NewExporter(catalog, proxy, cfg.Export.Dir, cfg.Export.Concurrency, log),
	}
}

func (c *MangaController) Browse() *BrowseCache { return c.browse }
func (c *MangaController) Library() *Library { return c.library }
func (c *MangaController) Reader() *Reader { return c.reader }
func (c *MangaController) Exporter() *Exporter { return c.exporter }
func (c *MangaController) Proxy() *sources.ImageProxy { return c.proxy }
func (c *MangaController) Catalog() sources.Catalog { return c.catalog }

func (c *MangaController) SaveInterval() time.Duration { return c.cfg.Reader.SaveInterval.Duration }
func (c *MangaController) RestoreDelay() time.Duration { return c.cfg.Reader.RestoreDelay.Duration }
func (c *MangaController) Lookahead() int { return c.cfg.Browse.Lookahead }

func (c *MangaController) ActiveTab() data.Tab {
	tab, err := c.repo.LoadActiveTab()
	if err != nil {
		c.log.Warn("failed to restore active tab", "error", err)
	}
	return tab
}

func (c *MangaController) SetActiveTab(tab data.Tab) {
	if err := c.repo.SaveActiveTab(tab); err != nil {
		c.log.Warn("failed to persist active tab", "tab", tab, "error", err)
	}
}

// VisitedChapters returns how many chapters of slug have a saved scroll offset.
func (c *MangaController) VisitedChapters(slug string) int {
	hids, err := c.repo.VisitedChapters(slug)
	if err != nil {
		c.log.Warn("failed to list visited chapters", "slug", slug, "error", err)
	}
	return len(hids)
}

// Close releases the store.
func (c *MangaController) Close() error {
	return c.repo.Close()
}
