// Package web embeds the single-page client served alongside the API.
package web

import "embed"

//go:embed index.html app.js styles.css
var Assets embed.FS
