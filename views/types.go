// Package views provides the default page components. Sites can replace
// any of them through folio.ViewFuncs.
package views

//go:generate templ generate

import (
	"github.com/a-h/templ"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
)

// Site holds site-wide settings. Every handler passes this to the views so
// nothing is hardcoded.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
	Version     string
	Vitals      bool // load the Web Vitals beacon script
}

// PageMeta carries per-page OpenGraph and SEO metadata into <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
	Scripts     []Script
}

// Script is an extra <script> appended to <body>.
type Script struct {
	Src    string
	Module bool
}

// ListPage is the blog listing.
type ListPage struct {
	Site      Site
	Posts     []content.Post
	Tags      []string
	ActiveTag string
}

// PostPage is a single rendered post. Body holds the already rendered
// markdown; Result describes it.
type PostPage struct {
	Site    Site
	Post    content.Post
	Body    templ.Component
	Result  markdown.Result
	Related []content.Post
	JSONLD  string
}
