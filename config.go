package pubfront

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/eringen/pubfront/views"
)

// SiteConfig holds all configuration for a pubfront site.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" env-default:"spacetraveling" env-description:"Site name"`
	URL         string `env:"SITE_URL" env-default:"http://localhost:3000" env-description:"Canonical URL"`
	Description string `env:"SITE_DESCRIPTION" env-description:"Site description for RSS and meta tags"`
	Author      string `env:"SITE_AUTHOR" env-description:"Author name for JSON-LD"`
	Lang        string `env:"SITE_LANG" env-default:"pt-BR"`

	Addr string `env:"ADDR" env-default:":3000" env-description:"Listen address"`
	Env  string `env:"APP_ENV" env-default:"development" env-description:"development or production"`

	CMSEndpoint    string        `env:"CMS_ENDPOINT" env-required:"true" env-description:"CMS API root, e.g. https://repo.cdn.prismic.io/api/v2"`
	CMSAccessToken string        `env:"CMS_ACCESS_TOKEN" env-description:"CMS access token"`
	CMSTimeout     time.Duration `env:"CMS_TIMEOUT" env-default:"10s"`

	PageSize           int           `env:"PAGE_SIZE" env-default:"5" env-description:"Posts per listing page"`
	PostCacheTTL       time.Duration `env:"POST_CACHE_TTL" env-default:"5m"`
	PostCacheSize      int           `env:"POST_CACHE_SIZE" env-default:"512"`
	Fallback           bool          `env:"FALLBACK" env-default:"true" env-description:"Serve a loading page for posts not generated yet"`
	RevalidateInterval time.Duration `env:"REVALIDATE_INTERVAL" env-default:"10m" env-description:"Regenerate post pages this often; 0 disables"`

	LoadMoreRate   int           `env:"LOAD_MORE_RATE" env-default:"30" env-description:"Load-more requests per IP per window"`
	LoadMoreWindow time.Duration `env:"LOAD_MORE_WINDOW" env-default:"1m"`
}

// LoadConfig reads SiteConfig from the environment.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		help, _ := cleanenv.GetDescription(&cfg, nil)
		return cfg, fmt.Errorf("pubfront: read config: %w\n%s", err, help)
	}
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Lang == "" {
		c.Lang = "pt-BR"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.CMSTimeout == 0 {
		c.CMSTimeout = 10 * time.Second
	}
	if c.PageSize == 0 {
		c.PageSize = 5
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.PostCacheSize == 0 {
		c.PostCacheSize = 512
	}
	if c.LoadMoreRate == 0 {
		c.LoadMoreRate = 30
	}
	if c.LoadMoreWindow == 0 {
		c.LoadMoreWindow = time.Minute
	}
}

func (c SiteConfig) site() views.Site {
	return views.Site{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
		Lang:        c.Lang,
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the application logger (default: NewLogger(cfg.Env)).
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithHTTPClient sets the HTTP client used to reach the CMS.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}

// WithViews replaces the default templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}
