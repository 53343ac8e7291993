// Package stage runs the per-episode pipeline steps that download audio,
// transcribe it, and extract insights. Each stage is idempotent: an existing
// artifact short-circuits the work, and a failed attempt rolls the episode
// back to the last settled status so the next run can retry cleanly.
package stage
