// Package defaults provides embedded default assets (config, catalog and action prompts).
package defaults

import "embed"

//go:embed default_config.toml
var DefaultConfigTOML string

//go:embed default_catalog.toml
var DefaultCatalogTOML string

// Prompts holds one prompt template per action type, named prompts/<action>.md.
//
//go:embed prompts/*.md
var Prompts embed.FS
