// Package protocol implements the wire format spoken with the GIMP MCP
// plugin.
//
// A request is a single JSON object
//
//	{"type": "call_api", "params": {"api_path": "...", "args": [...], "kwargs": {...}}}
//
// and the reply is a single JSON object carrying a "status" member plus either
// "result" (status "success") or "error". Neither side adds a length prefix or
// delimiter: one request and one reply travel over each connection, and the
// reply ends where its JSON value ends.
//
// # Errors
//
// Every failure below the tool surface is an *Error whose Kind identifies the
// failing stage (connect, read/write, decode, encode, timeout, remote). Use
// errors.Is with the Err* sentinels to test for a kind.
package protocol
