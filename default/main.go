// Package defaults provides embedded default assets (instructions and config).
package defaults

import _ "embed"

//go:embed default_instructions.md
var DefaultInstructions string

//go:embed default_config.toml
var DefaultConfigTOML []byte
