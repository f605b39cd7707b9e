// Package config handles configuration loading, parsing, and validation
// from defaults, an optional YAML file, FARECARD_* environment variables and
// command-line flags. Later sources override earlier ones in that order.
package config
