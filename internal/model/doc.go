package model

// Package model defines the data shared by the queue view-model, the engine and
// the UI: download jobs, track metadata, library songs, the persisted user
// config and the payloads carried by backend events. JSON names follow the
// snake_case wire format used on the event bridge.
