// Package config loads, validates, and defaults mnemo's TOML configuration.
//
// Configuration sections:
//   - paths: data and log directories
//   - logging: output format and level
//   - cognitive: queue polling, lease recovery, retry budget, retrieval
//
// Load resolves ~ in paths and falls back to built-in defaults when no config
// file exists, so the daemon runs out of the box.
package config
