// Package config loads, normalizes, and validates scenereplay configuration.
//
// It supplies defaults, reads TOML files, and honours the
// SCENEREPLAY_LOG_LEVEL environment override. Playback speed bounds, the
// indexing chunk budget, HTTP source settings and the websocket viewer bind
// address all live here so the CLI wires every component from one value.
package config
