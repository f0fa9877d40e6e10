package server

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/gimp-mcp/internal/gimp"
	"github.com/ironsheep/gimp-mcp/internal/plugintest"
	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolText extracts the text and isError flag of a successful tools/call.
func toolText(t *testing.T, resp *MCPResponse) (string, bool) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	return content[0]["text"].(string), result["isError"].(bool)
}

func TestHandleToolsCall_CallAPI(t *testing.T) {
	s, p := newTestServer(t, plugintest.Routes(map[string]any{
		"Gimp.Image.get_by_id": plugintest.Success(map[string]any{"id": 3}),
	}))

	resp := callTool(t, s, "call_api", map[string]interface{}{
		"api_path": "Gimp.Image.get_by_id",
		"args":     []interface{}{3},
		"kwargs":   map[string]interface{}{"strict": true},
	})
	text, isErr := toolText(t, resp)
	if text != `{"id": 3}` || isErr {
		t.Errorf("got (%q, %v), want ({\"id\": 3}, false)", text, isErr)
	}

	cmds := p.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Type != protocol.CommandCallAPI {
		t.Errorf("command type: got %s", cmds[0].Type)
	}
	kwargs, _ := cmds[0].Params["kwargs"].(map[string]interface{})
	if kwargs["strict"] != true {
		t.Errorf("kwargs: got %v", cmds[0].Params["kwargs"])
	}
}

func TestHandleToolsCall_CallAPIDefaults(t *testing.T) {
	s, p := newTestServer(t, plugintest.Routes(map[string]any{
		"Gimp.get_images": plugintest.Success([]any{}),
	}))

	text, _ := toolText(t, callTool(t, s, "call_api", map[string]interface{}{"api_path": "Gimp.get_images"}))
	if text != "[]" {
		t.Errorf("text: got %q, want []", text)
	}

	raw := string(p.Raw()[0])
	if !strings.Contains(raw, `"args":[]`) || !strings.Contains(raw, `"kwargs":{}`) {
		t.Errorf("defaults not sent as empty list/object: %s", raw)
	}
}

func TestHandleToolsCall_CallAPIKeepsNumberText(t *testing.T) {
	s, p := newTestServer(t, plugintest.Routes(map[string]any{
		gimp.PathRunProcedure: plugintest.Success(nil),
	}))

	params := json.RawMessage(`{"name":"call_api","arguments":{` +
		`"api_path":"Gimp.get_pdb.run_procedure",` +
		`"args":["plug-in-gauss",5,7,10.0,10.0,0,9007199254740993],` +
		`"kwargs":{"radius":2.50,"seed":18446744073709551615}}}`)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if _, isErr := toolText(t, resp); isErr {
		t.Fatal("call_api should succeed")
	}

	raw := string(p.Raw()[0])
	if !strings.Contains(raw, `"args":["plug-in-gauss",5,7,10.0,10.0,0,9007199254740993]`) {
		t.Errorf("args not forwarded verbatim: %s", raw)
	}
	if !strings.Contains(raw, `"radius":2.50`) || !strings.Contains(raw, `"seed":18446744073709551615`) {
		t.Errorf("kwargs not forwarded verbatim: %s", raw)
	}
}

func TestHandleToolsCall_LargeImageID(t *testing.T) {
	s, p := newTestServer(t, plugintest.Routes(map[string]any{
		gimp.PathImageByID: plugintest.Failure("no such image"),
	}))

	params := json.RawMessage(`{"name":"get_image_info","arguments":{"image_id":9007199254740993}}`)
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if _, isErr := toolText(t, resp); !isErr {
		t.Fatal("expected the remote failure to surface")
	}

	raw := string(p.Raw()[0])
	if !strings.Contains(raw, `"args":[9007199254740993]`) {
		t.Errorf("image id lost precision: %s", raw)
	}
}

func TestImageID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"5", 5, false},
		{"5.0", 5, false},
		{"5e0", 5, false},
		{"-3", -3, false},
		{"9007199254740993", 9007199254740993, false},
		{"1.5", 0, true},
		{"1e400", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := imageID("get_image_info", json.Number(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				if _, ok := err.(*invalidArgsError); !ok {
					t.Errorf("error type: got %T, want *invalidArgsError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_RemoteErrorIsToolError(t *testing.T) {
	s, _ := newTestServer(t, plugintest.Routes(map[string]any{
		gimp.PathImageByID: plugintest.Failure("no such image"),
	}))

	text, isErr := toolText(t, callTool(t, s, "get_image_info", map[string]interface{}{"image_id": 99}))
	if text != `Error: "no such image"` {
		t.Errorf("text: got %q", text)
	}
	if !isErr {
		t.Error("isError should be true")
	}
}

func TestHandleToolsCall_GIMPNotRunning(t *testing.T) {
	s := newServerFor(t, unreachableAddr(t))

	text, isErr := toolText(t, callTool(t, s, "get_images", nil))
	if text != "Error: Could not connect to GIMP. Ensure the MCP Server plugin is running." {
		t.Errorf("text: got %q", text)
	}
	if !isErr {
		t.Error("isError should be true")
	}
}

func TestHandleToolsCall_GetImageInfo(t *testing.T) {
	s, _ := newTestServer(t, plugintest.Routes(map[string]any{
		gimp.PathImageByID:   plugintest.Success(map[string]any{"id": 1}),
		gimp.PathImageWidth:  plugintest.Success(800),
		gimp.PathImageHeight: plugintest.Success(600),
		gimp.PathImageLayers: plugintest.Success([]int{0}),
	}))

	text, isErr := toolText(t, callTool(t, s, "get_image_info", map[string]interface{}{"image_id": 1}))
	if text != `{"width": "800", "height": "600", "layers": "[0]"}` || isErr {
		t.Errorf("got (%q, %v)", text, isErr)
	}
}

func blurRoutes() plugintest.Handler {
	return plugintest.Routes(map[string]any{
		gimp.PathImageByID:     plugintest.Success(map[string]any{"id": 5}),
		gimp.PathActiveLayer:   plugintest.Success(map[string]any{"id": 9}),
		gimp.PathRunProcedure:  plugintest.Success(nil),
		gimp.PathDisplaysFlush: plugintest.Success(nil),
	})
}

func TestHandleToolsCall_ApplyGaussianBlur(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]interface{}
		wantRadius float64
	}{
		{"explicit radius", map[string]interface{}{"image_id": 5, "radius": 10.0}, 10.0},
		{"default radius", map[string]interface{}{"image_id": 5}, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := newTestServer(t, blurRoutes())

			text, isErr := toolText(t, callTool(t, s, "apply_gaussian_blur", tt.args))
			if text != gimp.BlurApplied || isErr {
				t.Fatalf("got (%q, %v)", text, isErr)
			}

			cmds := p.Commands()
			if len(cmds) != 4 {
				t.Fatalf("expected 4 commands, got %d", len(cmds))
			}
			args := plugintest.Args(cmds[2])
			if len(args) != 6 || args[3] != tt.wantRadius || args[4] != tt.wantRadius {
				t.Errorf("procedure args: got %v", args)
			}
		})
	}
}

func TestHandleToolsCall_SetForegroundColor(t *testing.T) {
	s, p := newTestServer(t, plugintest.Routes(map[string]any{
		gimp.PathSetForeground: plugintest.Success(true),
	}))

	text, isErr := toolText(t, callTool(t, s, "set_foreground_color", map[string]interface{}{"color": "#ABC"}))
	if text != "Foreground color set to #aabbcc" || isErr {
		t.Errorf("got (%q, %v)", text, isErr)
	}

	text, isErr = toolText(t, callTool(t, s, "set_foreground_color", map[string]interface{}{"color": "mauve"}))
	if !strings.HasPrefix(text, "Error: invalid color") || !isErr {
		t.Errorf("got (%q, %v)", text, isErr)
	}
	if n := len(p.Commands()); n != 1 {
		t.Errorf("invalid color must not reach GIMP, got %d commands", n)
	}
}

func TestHandleToolsCall_ExportImage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "export.png")
	save := plugintest.Handler(func(cmd protocol.Command) any {
		path, _ := plugintest.Args(cmd)[2].(string)
		f, err := os.Create(path)
		if err != nil {
			return plugintest.Failure(err.Error())
		}
		defer f.Close()
		if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 12, 8))); err != nil {
			return plugintest.Failure(err.Error())
		}
		return plugintest.Success(true)
	})
	s, _ := newTestServer(t, plugintest.Routes(map[string]any{
		gimp.PathImageByID: plugintest.Success(map[string]any{"id": 2}),
		gimp.PathFileSave:  save,
	}))

	text, isErr := toolText(t, callTool(t, s, "export_image", map[string]interface{}{"image_id": 2, "path": out}))
	if isErr {
		t.Fatalf("export failed: %s", text)
	}
	var info map[string]interface{}
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("result is not JSON: %v: %s", err, text)
	}
	if info["width"] != float64(12) || info["height"] != float64(8) || info["format"] != "png" {
		t.Errorf("unexpected info: %v", info)
	}
}

func TestHandleToolsCall_InvalidArguments(t *testing.T) {
	s, p := newTestServer(t, blurRoutes())

	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"missing api_path", "call_api", map[string]interface{}{}},
		{"empty api_path", "call_api", map[string]interface{}{"api_path": ""}},
		{"args not a list", "call_api", map[string]interface{}{"api_path": "Gimp.x", "args": "nope"}},
		{"kwargs not an object", "call_api", map[string]interface{}{"api_path": "Gimp.x", "kwargs": []int{1}}},
		{"missing image_id", "get_image_info", map[string]interface{}{}},
		{"fractional image_id", "get_image_info", map[string]interface{}{"image_id": 1.5}},
		{"string image_id", "apply_gaussian_blur", map[string]interface{}{"image_id": "5"}},
		{"negative radius", "apply_gaussian_blur", map[string]interface{}{"image_id": 5, "radius": -1}},
		{"missing color", "set_foreground_color", map[string]interface{}{}},
		{"missing path", "export_image", map[string]interface{}{"image_id": 1}},
		{"arguments not an object", "get_images", []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatalf("expected error, got result %v", resp.Result)
			}
			if resp.Error.Code != -32602 {
				t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
			}
		})
	}

	if n := len(p.Commands()); n != 0 {
		t.Errorf("invalid arguments must not reach GIMP, got %d commands", n)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newServerFor(t, unreachableAddr(t))
	resp := callTool(t, s, "image_ocr_full", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected -32000 error, got %+v", resp)
	}
}

func TestHandleToolsCall_BadParams(t *testing.T) {
	s := newServerFor(t, unreachableAddr(t))
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602 error, got %+v", resp)
	}
}
