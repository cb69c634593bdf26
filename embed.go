package pubfront

import "embed"

// EmbeddedAssets contains the static assets served under /public/:
// loadmore.js and style.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
