// Package config loads, validates, and normalizes controller
// configuration from TOML.
//
// Load resolves the config path (explicit flag, user config dir, or a
// project-local mpf-mc.toml), overlays the file onto Default(), expands
// ~ in every path field, and validates the result. Other packages
// receive a fully resolved *Config and never re-read the file.
package config
