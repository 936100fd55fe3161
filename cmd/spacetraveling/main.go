package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "generate":
		if err := runGenerate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("spacetraveling %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`spacetraveling - A Prismic blog front-end built with Go, Echo, and templ

Usage:
  spacetraveling <command>

Commands:
  serve       Start the HTTP server
  generate    Fetch every pre-rendered page from the CMS into the snapshot store
  version     Print the spacetraveling version
  help        Show this help message

Environment:
  PRISMIC_API_ENDPOINT   Repository API endpoint (default: apiEndpoint from sm.json)
  PRISMIC_ACCESS_TOKEN   Repository access token
  SESSION_SECRET         Preview session secret (required by serve)
  REVALIDATE_SECRET      Webhook secret enabling POST /api/revalidate
  SITE_NAME, SITE_URL, SITE_DESCRIPTION, SITE_AUTHOR, ADDR, DATABASE_PATH,
  COOKIE_SECURE, TZ_DISPLAY, SM_JSON`)
}

func loadConfig() (spacetraveling.SiteConfig, error) {
	endpoint := os.Getenv("PRISMIC_API_ENDPOINT")
	if endpoint == "" {
		ep, err := spacetraveling.LoadSliceMachine(spacetraveling.EnvOr("SM_JSON", "sm.json"))
		if err != nil {
			return spacetraveling.SiteConfig{}, fmt.Errorf("no PRISMIC_API_ENDPOINT and %w", err)
		}
		endpoint = ep
	}
	secure, _ := strconv.ParseBool(os.Getenv("COOKIE_SECURE"))
	return spacetraveling.SiteConfig{
		Name:             os.Getenv("SITE_NAME"),
		URL:              os.Getenv("SITE_URL"),
		Description:      os.Getenv("SITE_DESCRIPTION"),
		Author:           os.Getenv("SITE_AUTHOR"),
		Addr:             os.Getenv("ADDR"),
		DatabasePath:     os.Getenv("DATABASE_PATH"),
		CMSEndpoint:      endpoint,
		CMSAccessToken:   os.Getenv("PRISMIC_ACCESS_TOKEN"),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		CookieSecure:     secure,
		RevalidateSecret: os.Getenv("REVALIDATE_SECRET"),
		TimeZone:         os.Getenv("TZ_DISPLAY"),
	}, nil
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.SessionSecret = spacetraveling.MustEnv("SESSION_SECRET")

	app := spacetraveling.New(cfg, views.Funcs())
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(shutdownCtx)
}

func runGenerate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app := spacetraveling.New(cfg, views.Funcs())
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()
	n, err := app.Generate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d pages into %s in %s\n", n, app.Config.DatabasePath, time.Since(start).Round(time.Millisecond))
	return nil
}
