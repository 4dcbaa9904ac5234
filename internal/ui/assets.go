package ui

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var assets embed.FS

// PageTemplate is the name of the upload page template.
const PageTemplate = "index.html"

// Templates parses the page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(assets, "templates/*.html")
}

// Static returns the files served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
