// Package daemon combines feed polling and episode processing into a single
// watch lifecycle with flock-based locking so only one instance works a data
// directory at a time.
package daemon
