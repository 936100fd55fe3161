package spacetraveling

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name (default "spacetraveling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD
	Lang        string // Document language (default "pt-BR")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // Snapshot SQLite path (default "data/pages.db")

	CMSEndpoint    string // Required: Prismic API endpoint, e.g. https://repo.cdn.prismic.io/api/v2
	CMSAccessToken string // Prismic access token, optional for public repositories

	HomePageSize        int // Posts on the first listing page (default 5)
	StaticPathsPageSize int // Posts pre-rendered by Generate (default 10)

	HomeRevalidate time.Duration // Listing regeneration interval (default 24h)
	PostRevalidate time.Duration // Post regeneration interval (default 30min)

	FeedViewTTL  time.Duration // Idle lifetime of a listing view (default 30min)
	MaxFeedViews int           // Live listing views kept in memory (default 10000)

	SessionSecret    string // Required: preview session signing secret
	CookieSecure     bool   // Set true for HTTPS
	RevalidateSecret string // Webhook secret for /api/revalidate; empty disables it

	TimeZone string // IANA zone for displayed dates (default "UTC")
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
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pages.db"
	}
	if c.HomePageSize == 0 {
		c.HomePageSize = 5
	}
	if c.StaticPathsPageSize == 0 {
		c.StaticPathsPageSize = 10
	}
	if c.HomeRevalidate == 0 {
		c.HomeRevalidate = 24 * time.Hour
	}
	if c.PostRevalidate == 0 {
		c.PostRevalidate = 30 * time.Minute
	}
	if c.FeedViewTTL <= 0 {
		c.FeedViewTTL = 30 * time.Minute
	}
	if c.MaxFeedViews <= 0 {
		c.MaxFeedViews = 10000
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
}

func (c *SiteConfig) validate() error {
	if c.CMSEndpoint == "" {
		return fmt.Errorf("spacetraveling: CMSEndpoint is required")
	}
	return nil
}

// LoadSliceMachine reads the repository endpoint from a Slice Machine
// sm.json file.
func LoadSliceMachine(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var sm struct {
		APIEndpoint string `json:"apiEndpoint"`
	}
	if err := json.Unmarshal(b, &sm); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	if sm.APIEndpoint == "" {
		return "", fmt.Errorf("%s: apiEndpoint is empty", path)
	}
	return sm.APIEndpoint, nil
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

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithHTTPClient sets the HTTP client used for CMS requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}
