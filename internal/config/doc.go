// Package config loads, normalizes, and validates release-attrs configuration.
//
// It supplies repository defaults, reads an optional TOML file and applies
// RA_* environment overrides on top. Accessors convert the result into the
// settings of the API client, the page walk, the batch runner and the
// logger, so downstream code never parses configuration itself.
package config
