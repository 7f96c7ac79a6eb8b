// Package config loads and validates runtime configuration for pzwatch.
//
// Configuration is read from an optional `config.yaml` and can be overridden
// via environment variables with the PZW_ prefix (see `config.go` for keys).
// The result is a plain struct handed to each component constructor; core
// logic never reads ambient configuration state.
package config
