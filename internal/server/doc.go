// Package server implements the MCP (Model Context Protocol) server that
// exposes GIMP to an agent.
//
// This package provides a JSON-RPC 2.0 server whose tools forward to a
// running GIMP instance through the MCP plugin installed there. The server
// itself holds no image state; GIMP is the only authority on images and on
// which API methods exist.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Generic:
//   - call_api: Call any GIMP 3.0 API method by dotted path
//
// Convenience:
//   - get_images: List open images
//   - get_image_info: Width, height and layers of an image
//   - apply_gaussian_blur: Blur the active layer of an image
//   - set_foreground_color: Set the foreground color from a hex value
//   - export_image: Save an image to disk and report the written file
//
// # Error Handling
//
// Arguments are validated against each tool's input schema before anything
// is sent to GIMP. Invalid arguments produce a JSON-RPC error (-32602).
//
// Failures while talking to GIMP, and errors reported by GIMP, are not
// JSON-RPC errors. The tool result text starts with "Error: " followed by
// the message, and isError is true.
//
// # Usage
//
//	client := gimp.NewClient(bridge.New(opts), logger)
//	srv, err := server.New(client, server.Options{Version: version, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
