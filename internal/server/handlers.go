package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ironsheep/gimp-mcp/internal/gimp"
	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "call_api", "get_images").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// invalidArgsError reports arguments that do not match the tool's schema.
type invalidArgsError struct {
	tool    string
	details []string
}

func (e *invalidArgsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.tool, strings.Join(e.details, "; "))
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool's text in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<result>"}],
//	  "isError": false
//	}
//
// A failed GIMP operation is still a successful tools/call: the text starts
// with "Error: " and isError is set. Malformed or schema-violating arguments
// return a JSON-RPC error with code -32602; unknown tools use -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	out, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if _, ok := err.(*invalidArgsError); ok {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	if !out.OK() {
		s.log.Warn("tool failed", "tool", params.Name, "err", out.Err)
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": out.Text(),
				},
			},
			"isError": !out.OK(),
		},
	}
}

// executeTool validates args against the tool's input schema and dispatches
// to its handler.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (gimp.Outcome, error) {
	schema, ok := s.schemas[name]
	if !ok {
		return gimp.Outcome{}, fmt.Errorf("unknown tool: %s", name)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	if err := validate(name, schema, args); err != nil {
		return gimp.Outcome{}, err
	}

	switch name {
	case "call_api":
		return s.handleCallAPI(ctx, args)
	case "get_images":
		return s.client.ListImages(ctx), nil
	case "get_image_info":
		return s.handleGetImageInfo(ctx, args)
	case "apply_gaussian_blur":
		return s.handleApplyGaussianBlur(ctx, args)
	case "set_foreground_color":
		return s.handleSetForegroundColor(ctx, args)
	case "export_image":
		return s.handleExportImage(ctx, args)
	default:
		return gimp.Outcome{}, fmt.Errorf("unknown tool: %s", name)
	}
}

func validate(name string, schema *gojsonschema.Schema, args json.RawMessage) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return &invalidArgsError{tool: name, details: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return &invalidArgsError{tool: name, details: details}
}

// decodeArgs keeps numbers as json.Number so call_api forwards them as sent.
func decodeArgs(name string, args json.RawMessage, v interface{}) error {
	if err := protocol.UnmarshalArgs(args, v); err != nil {
		return &invalidArgsError{tool: name, details: []string{err.Error()}}
	}
	return nil
}

// === Generic API Handler ===

type callAPIArgs struct {
	APIPath string                 `json:"api_path"`
	Args    []interface{}          `json:"args"`
	Kwargs  map[string]interface{} `json:"kwargs"`
}

func (s *Server) handleCallAPI(ctx context.Context, args json.RawMessage) (gimp.Outcome, error) {
	var a callAPIArgs
	if err := decodeArgs("call_api", args, &a); err != nil {
		return gimp.Outcome{}, err
	}
	return s.client.CallAPI(ctx, a.APIPath, a.Args, a.Kwargs), nil
}

// === Image Handlers ===

type imageArgs struct {
	ImageID json.Number `json:"image_id"`
}

// imageID converts a schema-checked integer. JSON may spell an integral
// value as 5.0 or 5e0, so a plain Int64 parse is not enough.
func imageID(tool string, n json.Number) (int, error) {
	id, err := n.Int64()
	if err != nil {
		f, _, perr := big.ParseFloat(n.String(), 10, 256, big.ToNearestEven)
		if perr != nil || !f.IsInt() {
			return 0, &invalidArgsError{tool: tool, details: []string{fmt.Sprintf("image_id %s is not an integer", n)}}
		}
		var acc big.Accuracy
		if id, acc = f.Int64(); acc != big.Exact {
			return 0, &invalidArgsError{tool: tool, details: []string{fmt.Sprintf("image_id %s is out of range", n)}}
		}
	}
	if int64(int(id)) != id {
		return 0, &invalidArgsError{tool: tool, details: []string{fmt.Sprintf("image_id %s is out of range", n)}}
	}
	return int(id), nil
}

func (s *Server) handleGetImageInfo(ctx context.Context, args json.RawMessage) (gimp.Outcome, error) {
	var a imageArgs
	if err := decodeArgs("get_image_info", args, &a); err != nil {
		return gimp.Outcome{}, err
	}
	id, err := imageID("get_image_info", a.ImageID)
	if err != nil {
		return gimp.Outcome{}, err
	}
	return s.client.DescribeImage(ctx, id), nil
}

type applyGaussianBlurArgs struct {
	ImageID json.Number `json:"image_id"`
	Radius  *float64    `json:"radius"`
}

func (s *Server) handleApplyGaussianBlur(ctx context.Context, args json.RawMessage) (gimp.Outcome, error) {
	var a applyGaussianBlurArgs
	if err := decodeArgs("apply_gaussian_blur", args, &a); err != nil {
		return gimp.Outcome{}, err
	}
	id, err := imageID("apply_gaussian_blur", a.ImageID)
	if err != nil {
		return gimp.Outcome{}, err
	}
	radius := gimp.DefaultBlurRadius
	if a.Radius != nil {
		radius = *a.Radius
	}
	return s.client.ApplyGaussianBlur(ctx, id, radius), nil
}

type setForegroundColorArgs struct {
	Color string `json:"color"`
}

func (s *Server) handleSetForegroundColor(ctx context.Context, args json.RawMessage) (gimp.Outcome, error) {
	var a setForegroundColorArgs
	if err := decodeArgs("set_foreground_color", args, &a); err != nil {
		return gimp.Outcome{}, err
	}
	return s.client.SetForegroundColor(ctx, a.Color), nil
}

type exportImageArgs struct {
	ImageID json.Number `json:"image_id"`
	Path    string      `json:"path"`
}

func (s *Server) handleExportImage(ctx context.Context, args json.RawMessage) (gimp.Outcome, error) {
	var a exportImageArgs
	if err := decodeArgs("export_image", args, &a); err != nil {
		return gimp.Outcome{}, err
	}
	id, err := imageID("export_image", a.ImageID)
	if err != nil {
		return gimp.Outcome{}, err
	}
	return s.client.ExportImage(ctx, id, a.Path), nil
}
