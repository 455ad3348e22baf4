// Package ui is the Fyne desktop front end. It renders the download queue,
// the history and the song library from the view-model in package download,
// and drives the first-run setup and settings through package config.
// All strings go through Localization.
package ui
