package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the app:
// loadmore.js, style.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
