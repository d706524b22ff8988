// Package web holds the server-rendered pages and their scripts.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var files embed.FS

// FS provides access to embedded web files
var FS fs.FS = files

// Static serves the scripts under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Page names accepted by ParsePages.
const (
	PageHome   = "home"
	PageSignIn = "sign_in"
	PageSignUp = "sign_up"
)

// ParsePages parses every page together with the shared layout and the
// connect-bank component.
func ParsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{PageHome, PageSignIn, PageSignUp} {
		tmpl, err := template.ParseFS(files,
			"templates/layout.html",
			"templates/connect_bank.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}
