// Package pubfront is a server-rendered blog front end for a headless CMS,
// built with Go, Echo, and templ. It lists posts with incremental "load
// more" pagination, renders post pages with an estimated reading time, and
// serves a sitemap and RSS feed.
//
// Templates can be replaced through the ViewFuncs struct; pubfront handles
// the CMS access, caching, handler logic, and middleware.
package pubfront

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/listing"
	"github.com/eringen/pubfront/views"
)

// ViewFuncs holds the components the framework calls when rendering pages.
// The zero value is filled from the views package.
type ViewFuncs struct {
	Home                func(views.HomePage) templ.Component
	More                func(views.MorePosts) templ.Component
	Post                func(views.PostPage) templ.Component
	PostPartial         func(views.PostPage) templ.Component
	Loading             func(views.LoadingPage) templ.Component
	PostNotFoundPartial func() templ.Component
	NotFound            func(views.StatusPage) templ.Component
	ServerError         func(views.StatusPage) templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.Home == nil {
		v.Home = views.Home
	}
	if v.More == nil {
		v.More = views.More
	}
	if v.Post == nil {
		v.Post = views.Post
	}
	if v.PostPartial == nil {
		v.PostPartial = views.PostPartial
	}
	if v.Loading == nil {
		v.Loading = views.Loading
	}
	if v.PostNotFoundPartial == nil {
		v.PostNotFoundPartial = views.PostNotFoundPartial
	}
	if v.NotFound == nil {
		v.NotFound = views.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerError
	}
}

// App is the central pubfront application. It wires together the CMS
// client, cache, handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	CMS    *cms.Client
	Cache  *PostCache
	Views  ViewFuncs
	Log    *slog.Logger

	aggregator   *listing.Aggregator
	limiter      *RateLimiter
	registry     *prometheus.Registry
	httpClient   *http.Client
	customRoutes []func(*App)
	cancel       context.CancelFunc
}

// New creates a new pubfront App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:   cfg,
		Echo:     echo.New(),
		registry: prometheus.NewRegistry(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = NewLogger(cfg.Env, nil)
	}
	a.Views.setDefaults()
	return a
}

// Init creates the CMS client and cache and registers middleware and routes.
// Start calls it; tests call it directly and drive a.Echo.
func (a *App) Init() error {
	if a.Config.CMSEndpoint == "" {
		return fmt.Errorf("pubfront: CMSEndpoint is required")
	}

	cmsOpts := []cms.Option{cms.WithLogger(a.Log)}
	if a.httpClient != nil {
		cmsOpts = append(cmsOpts, cms.WithHTTPClient(a.httpClient))
	}
	client, err := cms.New(cms.Config{
		Endpoint:    a.Config.CMSEndpoint,
		AccessToken: a.Config.CMSAccessToken,
		Timeout:     a.Config.CMSTimeout,
	}, cmsOpts...)
	if err != nil {
		return fmt.Errorf("pubfront: init cms: %w", err)
	}
	a.CMS = client
	a.Cache = NewPostCache(client, a.Config.PageSize, a.Config.PostCacheSize, a.Config.PostCacheTTL)
	a.aggregator = listing.NewAggregator(client, a.Log)
	a.limiter = NewRateLimiter(a.Config.LoadMoreRate, a.Config.LoadMoreWindow)

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		cms.RequestsTotal,
	)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app, generates the known post pages, and starts the
// server. It blocks until the server stops.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// Pages that fail to generate here are served through the fallback.
	if _, err := a.GeneratePaths(ctx); err != nil {
		a.Log.Warn("initial path generation failed", "err", err)
	}
	if a.Config.RevalidateInterval > 0 {
		go a.revalidate(ctx, a.Config.RevalidateInterval)
	}

	a.Log.Info("listening", "addr", a.Config.Addr, "cms", a.Config.CMSEndpoint)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/public/*", echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(assets)))))
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/metrics", a.metricsHandler())

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/posts/more/", a.handleMore, a.limiter.Middleware)
	e.GET("/api/posts/", a.handleAPIPosts, a.limiter.Middleware)
	e.GET("/posts/:slug/", a.handlePost)
	e.GET("/post/:slug/", handlePostRedirect)
}

// Shutdown stops the server and background work.
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	return a.Echo.Shutdown(ctx)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	return nil
}
