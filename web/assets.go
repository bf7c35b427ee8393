// Package webassets embeds the dashboard files served by the gateway.
package webassets

import "embed"

// Files contains the embedded dashboard assets.
//
//go:embed workstream.html
var Files embed.FS
