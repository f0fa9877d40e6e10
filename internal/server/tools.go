package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Generic API access
		{
			Name: "call_api",
			Description: "Call any GIMP 3.0 API method dynamically. Available methods are documented at " +
				"https://developer.gimp.org/api/3.0/libgimp/. Returns the JSON-encoded result, or a message " +
				"starting with \"Error: \" on failure.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"api_path": map[string]interface{}{
						"type":        "string",
						"minLength":   1,
						"description": "Dotted path of the API method (e.g., \"Gimp.Image.get_by_id\")",
					},
					"args": map[string]interface{}{
						"type":        "array",
						"description": "Positional arguments. Default []",
						"default":     []interface{}{},
					},
					"kwargs": map[string]interface{}{
						"type":        "object",
						"description": "Keyword arguments. Default {}",
						"default":     map[string]interface{}{},
					},
				},
				"required": []string{"api_path"},
			},
		},

		// Image queries
		{
			Name:        "get_images",
			Description: "List all images currently open in GIMP as JSON (ids and names).",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_image_info",
			Description: "Get the width, height and layers of an open image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_id": map[string]interface{}{
						"type":        "integer",
						"description": "ID of the image as reported by get_images",
					},
				},
				"required": []string{"image_id"},
			},
		},

		// Editing
		{
			Name:        "apply_gaussian_blur",
			Description: "Apply a Gaussian blur to the active layer of an image and refresh the displays.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_id": map[string]interface{}{
						"type":        "integer",
						"description": "ID of the image as reported by get_images",
					},
					"radius": map[string]interface{}{
						"type":        "number",
						"minimum":     0,
						"description": "Blur radius in pixels, applied horizontally and vertically. Default 5.0",
						"default":     5.0,
					},
				},
				"required": []string{"image_id"},
			},
		},
		{
			Name:        "set_foreground_color",
			Description: "Set GIMP's foreground color from a hex value such as #ff8800 or #f80.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color, with or without leading #",
					},
				},
				"required": []string{"color"},
			},
		},

		// Export
		{
			Name: "export_image",
			Description: "Save an image to a file through GIMP, then read the file back and report its " +
				"dimensions, format and size. The format follows the file extension.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_id": map[string]interface{}{
						"type":        "integer",
						"description": "ID of the image as reported by get_images",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"minLength":   1,
						"description": "Destination file path (e.g., /tmp/out.png)",
					},
				},
				"required": []string{"image_id", "path"},
			},
		},
	}
}
