// Package ipc provides JSON-RPC control of the daemon over a Unix domain
// socket, used by the CLI status, stop, resume, and integrity commands.
package ipc
