// Package daemon owns the long-running process: single-instance locking,
// orchestrator lifecycle, the folder watcher, and the operations the IPC
// surface exposes.
package daemon
