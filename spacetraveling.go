// Package spacetraveling is a blog front-end that renders posts stored in a
// Prismic repository, built with Go, Echo, and templ.
//
// Pages are generated from CMS data and kept in an incremental page cache
// backed by SQLite snapshots. The listing page grows through load-more
// requests, each one appending the next CMS page to the view's accumulator.
// Users provide templ components via the ViewFuncs struct.
package spacetraveling

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"

	"github.com/eringen/spacetraveling/prismic"
)

// ViewFuncs holds user-provided templ components that the app calls when
// rendering pages.
type ViewFuncs struct {
	Home        func(v HomeView) templ.Component
	MorePosts   func(posts []Post) templ.Component
	Post        func(v PostView) templ.Component
	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App is the central spacetraveling application. It wires together the CMS
// client, page cache, feed registry, handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	CMS    *prismic.Client
	Store  *SnapshotStore
	Cache  *PageCache
	Feeds  *FeedRegistry
	Views  ViewFuncs

	normalizer   Normalizer
	limiter      *RateLimiter
	httpClient   *http.Client
	customRoutes []func(*App)
	staticDir    string
	prepared     bool
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.INFO)

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// prepare validates the configuration and opens every dependency that does
// not need a listening server.
func (a *App) prepare() error {
	if a.prepared {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return err
	}

	loc, err := time.LoadLocation(a.Config.TimeZone)
	if err != nil {
		return fmt.Errorf("spacetraveling: time zone %q: %w", a.Config.TimeZone, err)
	}
	a.normalizer = Normalizer{Location: loc}

	cms, err := prismic.New(prismic.Config{
		Endpoint:    a.Config.CMSEndpoint,
		AccessToken: a.Config.CMSAccessToken,
		HTTPClient:  a.httpClient,
	})
	if err != nil {
		return fmt.Errorf("spacetraveling: init cms client: %w", err)
	}
	a.CMS = cms

	store, err := NewSnapshotStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("spacetraveling: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPageCache(store, a.Echo.Logger)
	a.Feeds = NewFeedRegistry(a.Config.FeedViewTTL, a.Config.MaxFeedViews)
	a.limiter = NewRateLimiter(10, time.Minute)

	a.prepared = true
	return nil
}

// setup installs middleware, routes, and custom routes on the Echo instance.
func (a *App) setup() {
	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
}

// Start initializes the store, cache, middleware, routes, pre-renders the
// known pages in the background, and starts the server.
func (a *App) Start() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("spacetraveling: SessionSecret is required")
	}
	if err := a.prepare(); err != nil {
		return err
	}
	a.setup()

	go a.prewarm()

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets (loadmore.js, style.css) are embedded; anything else
	// under /public comes from the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/loadmore.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", handleHealthz)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/more/:view/", a.handleMore)
	e.GET("/post/:uid/", a.handlePost)

	e.GET("/api/preview", a.handlePreview)
	e.GET("/api/exit-preview/", a.handleExitPreview)
	e.POST("/api/revalidate", a.handleRevalidate)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Feeds != nil {
		a.Feeds.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Cache != nil {
		a.Cache.Wait()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) prewarm() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	n, err := a.Generate(ctx)
	if err != nil {
		a.Echo.Logger.Warnf("prewarm: %v", err)
		return
	}
	a.Echo.Logger.Infof("prewarm: generated %d pages", n)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("spacetraveling: required environment variable %s is not set", key)
	}
	return v
}
