// Package config loads the tracetail TOML configuration.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/tracetail/config.toml
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// A missing config file is NOT an error. The device address is the one
// field with no default; callers reject an empty address when they
// actually need to connect.
//
// # TOML Format
//
// Example config.toml:
//
//	address = "10.0.0.5:8080"
//	alias = "line-3"
//	factory = "north"
//	system = "press"
//	schema_dir = "~/.config/tracetail/schemas"
//	poll_seconds = 2
//	window_bytes = 262144
//	overlap_bytes = 4096
//	lookback = 12
//	display_limit = 400
//
// All fields are optional. Tilde expansion is performed on paths, and
// relative paths are made absolute.
package config
