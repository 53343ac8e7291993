// Package workflow coordinates processing runs over pending episodes. A run
// drives each selected episode through the pipeline stages for its mode,
// emitting an ordered event stream for the CLI. One episode failing rolls
// that episode back and the run moves on to the next.
package workflow
