package ui

import "embed"

// Templates embeds the server-rendered storefront and admin console pages.
//
//go:embed templates
var Templates embed.FS
