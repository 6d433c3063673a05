// Package recorder persists received frames to Postgres.
//
// The recorder buffers frames on a channel, accumulates them into batches,
// and flushes on size or interval. Every run is tagged with a session UUID
// so overlapping captures of the same endpoint stay distinguishable.
package recorder
