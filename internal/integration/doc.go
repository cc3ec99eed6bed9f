// Package integration holds end-to-end tests that run the fully wired
// gateway against an in-memory parking backend.
package integration
