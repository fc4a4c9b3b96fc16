package embedded

import (
	_ "embed"
)

// CatalogYAML holds the static reference data: intro styles, genre defaults,
// block samples, structure templates, image size presets and sample prompts.
//
//go:embed data/catalog.yaml
var CatalogYAML []byte
