package gimp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/gimp-mcp/internal/export"
	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// GIMP API paths used by the convenience operations.
const (
	PathGetImages     = "Gimp.get_images"
	PathImageByID     = "Gimp.Image.get_by_id"
	PathImageWidth    = "Gimp.Image.get_width"
	PathImageHeight   = "Gimp.Image.get_height"
	PathImageLayers   = "Gimp.Image.get_layers"
	PathActiveLayer   = "Gimp.Image.get_active_layer"
	PathRunProcedure  = "Gimp.get_pdb.run_procedure"
	PathDisplaysFlush = "Gimp.displays_flush"
	PathSetForeground = "Gimp.context_set_foreground"
	PathFileSave      = "Gimp.file_save"
)

// ProcedureGaussBlur is the PDB procedure run by ApplyGaussianBlur.
const ProcedureGaussBlur = "plug-in-gauss"

// DefaultBlurRadius is used when the caller gives no radius.
const DefaultBlurRadius = 5.0

const (
	gaussMethodIIR        = 0
	runModeNoninteractive = 1
)

// BlurApplied is returned when the Gaussian blur finished.
const BlurApplied = "Applied Gaussian blur successfully"

// ListImages lists the images open in GIMP.
func (c *Client) ListImages(ctx context.Context) Outcome {
	return c.CallAPI(ctx, PathGetImages, nil, nil)
}

// ImageInfo holds the width, height and layers of an image, each exactly as
// the corresponding API call rendered it.
type ImageInfo struct {
	Width  string `json:"width"`
	Height string `json:"height"`
	Layers string `json:"layers"`
}

// DescribeImage resolves imageID and gathers its width, height and layers.
// If the image cannot be resolved, that failure is returned unchanged and no
// further calls are made. Failures of the three follow-up calls are embedded
// in the corresponding field.
func (c *Client) DescribeImage(ctx context.Context, imageID int) Outcome {
	image := c.CallAPI(ctx, PathImageByID, []any{imageID}, nil)
	if !image.OK() {
		return image
	}
	id, err := objectID(image.Value, "image")
	if err != nil {
		return Failed(err)
	}

	info := ImageInfo{
		Width:  c.CallAPI(ctx, PathImageWidth, []any{id}, nil).Text(),
		Height: c.CallAPI(ctx, PathImageHeight, []any{id}, nil).Text(),
		Layers: c.CallAPI(ctx, PathImageLayers, []any{id}, nil).Text(),
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return Failed(err)
	}
	return FromJSON(raw)
}

// ApplyGaussianBlur blurs the active layer of imageID with the given radius
// in both directions, then flushes the displays. Each step stops the chain on
// failure; the flush result is not checked.
func (c *Client) ApplyGaussianBlur(ctx context.Context, imageID int, radius float64) Outcome {
	image := c.CallAPI(ctx, PathImageByID, []any{imageID}, nil)
	if !image.OK() {
		return image
	}
	imgID, err := objectID(image.Value, "image")
	if err != nil {
		return Failed(err)
	}

	drawable := c.CallAPI(ctx, PathActiveLayer, []any{imgID}, nil)
	if !drawable.OK() {
		return drawable
	}
	drawableID, err := objectID(drawable.Value, "drawable")
	if err != nil {
		return Failed(err)
	}

	blur := c.CallAPI(ctx, PathRunProcedure, []any{
		ProcedureGaussBlur, imgID, drawableID,
		protocol.Float(radius), protocol.Float(radius), gaussMethodIIR,
	}, nil)
	if !blur.OK() {
		return blur
	}

	c.CallAPI(ctx, PathDisplaysFlush, nil, nil)
	return FromMessage(BlurApplied)
}

// SetForegroundColor sets GIMP's foreground colour. The colour is a hex
// triplet such as "#ff8800", "ff8800" or "#f80"; malformed input is rejected
// without contacting GIMP.
func (c *Client) SetForegroundColor(ctx context.Context, color string) Outcome {
	hex, err := NormalizeHex(color)
	if err != nil {
		return Failed(err)
	}
	res := c.CallAPI(ctx, PathSetForeground, []any{hex}, nil)
	if !res.OK() {
		return res
	}
	return FromMessage("Foreground color set to " + hex)
}

// NormalizeHex parses a hex colour and returns it as lowercase "#rrggbb".
func NormalizeHex(s string) (string, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "#")
	invalid := fmt.Errorf("invalid color %q: expected a hex value like #ff8800", s)
	if len(digits) != 3 && len(digits) != 6 {
		return "", invalid
	}
	if strings.Trim(strings.ToLower(digits), "0123456789abcdef") != "" {
		return "", invalid
	}
	col, err := colorful.Hex("#" + digits)
	if err != nil {
		return "", invalid
	}
	return col.Hex(), nil
}

// ExportImage asks GIMP to save imageID to path, then reads the written file
// back and reports its metadata. Relative paths are resolved against this
// process's working directory before being sent.
func (c *Client) ExportImage(ctx context.Context, imageID int, path string) Outcome {
	abs, err := export.Abs(path)
	if err != nil {
		return Failed(err)
	}

	image := c.CallAPI(ctx, PathImageByID, []any{imageID}, nil)
	if !image.OK() {
		return image
	}
	id, err := objectID(image.Value, "image")
	if err != nil {
		return Failed(err)
	}

	saved := c.CallAPI(ctx, PathFileSave, []any{runModeNoninteractive, id, abs}, nil)
	if !saved.OK() {
		return saved
	}

	info, err := export.Inspect(abs)
	if err != nil {
		return Failed(err)
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return Failed(err)
	}
	return FromJSON(raw)
}

// objectID extracts the "id" member of a JSON object returned by GIMP. The
// raw value is kept so it is sent back exactly as received.
func objectID(raw json.RawMessage, what string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("unexpected %s object from GIMP: %s", what, raw)
	}
	id, ok := obj["id"]
	if !ok {
		return nil, fmt.Errorf("%s object from GIMP has no id: %s", what, raw)
	}
	return id, nil
}
