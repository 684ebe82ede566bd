// Package logging assembles the structured slog loggers used across
// scenereplay.
//
// It owns the console and JSON handler choice and level parsing, and exposes
// a no-op logger for tests and quiet command modes. Prefer these constructors
// over hand-rolled slog setup so every component emits the same shape.
package logging
