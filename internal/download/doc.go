package download

// Package download implements the download-queue view-model: an owned store of
// jobs mutated only by a single consumer loop that applies backend push events
// and user commands through pure reducers. It runs either as a projection of
// the engine's job list (ModeServer) or with local single-flight FIFO
// admission (ModeSelfManaged). The smart queue helpers on top of it dedupe
// links against the queue and the library before enqueueing.
