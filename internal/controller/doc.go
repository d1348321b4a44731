// Package controller composes the asset registry, machine discovery,
// the optional file watcher, and the boot gate into a single lifecycle
// with flock-based locking to prevent multiple concurrent instances.
//
// The controller also implements the ipc.Core surface, so the IPC
// server can expose status, remote progress reporting, and load-key
// triggering without depending on this package directly.
package controller
