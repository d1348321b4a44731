// Package ipc exposes the media controller over JSON-RPC Unix sockets
// and ships the matching client used by the CLI.
//
// It owns socket lifecycle management, the request/response DTOs, and
// the Core interface the controller implements. Game-side processes
// use the same socket to report their own loading progress, which the
// controller merges into the combined readiness percentage.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable and compatible with existing command implementations.
package ipc
