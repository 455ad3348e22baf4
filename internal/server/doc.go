// Package server exposes a bridge.Backend over HTTP: commands are invoked
// with POST /api/invoke/:command and events are streamed from
// GET /api/events as server-sent events.
package server
