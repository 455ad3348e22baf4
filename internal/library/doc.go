// Package library mirrors the engine's song library for the UI and the CLI.
package library
