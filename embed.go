package folio

import "embed"

// EmbeddedAssets contains static assets shipped with the engine:
// folio.css, mermaid-init.js, vitals.js
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

// embeddedFiles are routed under /public/ ahead of the user's static dir.
var embeddedFiles = []string{"folio.css", "mermaid-init.js", "vitals.js"}
