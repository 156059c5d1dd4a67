// Package pages holds the dashboard templates and static assets.
package pages

import "embed"

// FS contains index.html, partials/*.html and static/*
//
//go:embed *.html partials/*.html static/*
var FS embed.FS
