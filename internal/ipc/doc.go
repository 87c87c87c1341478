// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs for
// drive scans, backup control, history queries, and event polling. The
// server embeds the daemon; orchestrator rejections travel as response
// data so the client can tell them apart from transport failures.
package ipc
