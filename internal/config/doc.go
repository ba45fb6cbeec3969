// SPDX-License-Identifier: MPL-2.0

// Package config handles deployment configuration using Viper with CUE as the file format.
//
// Configuration is resolved in order: an explicit --config path, a project-local
// bringup.cue, then ~/.config/bringup/config.cue (or the platform equivalent).
// A missing file is not an error; built-in defaults describe a conventional
// checkout with a compose file, a pm2 ecosystem file, and a bin/server build
// target.
//
// Files are validated against an embedded CUE schema (config_schema.cue), so
// typos and type mismatches are reported with their JSON path before any
// deployment work starts.
package config
