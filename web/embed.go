package web

import "embed"

// TemplatesFS embeds the HTML page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds stylesheet and script assets.
//
//go:embed static/*
var StaticFS embed.FS
