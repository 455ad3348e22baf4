package bridge

// Package bridge defines the invoke/event contract between the UI layer and
// the download engine: command and event names, the Backend interface, an
// in-process event bus and an HTTP client that speaks the same contract to a
// remote engine over JSON invokes and a server-sent event stream.
