package export

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// FileInfo describes an image file written by GIMP.
//
// It is reported back to the agent after an export so the agent can confirm
// that the file exists and has the expected geometry without another round
// trip to GIMP.
type FileInfo struct {
	// Path is the absolute path of the exported file.
	Path string `json:"path"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif",
	// "tiff", "bmp", or "unknown".
	Format string `json:"format"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	// HasAlpha reports whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Inspect decodes the image at path and returns its metadata.
//
// The file is read fresh on every call. GIMP may overwrite the same path on
// each export, so nothing is cached.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not in a format the decoder understands
func Inspect(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat exported file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("exported path %s is a directory", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exported file: %w", err)
	}

	bounds := img.Bounds()
	depth, alpha := pixelLayout(img)
	return &FileInfo{
		Path:          path,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        FormatFromPath(path),
		ColorDepth:    depth,
		HasAlpha:      alpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// FormatFromPath maps a file extension to a format name.
func FormatFromPath(path string) string {
	f, err := imaging.FormatFromFilename(path)
	if err != nil {
		return "unknown"
	}
	return strings.ToLower(f.String())
}

// pixelLayout reports the sample depth and whether any pixel is translucent.
// The PNG decoder returns *image.RGBA for opaque truecolor files, so the
// concrete type alone does not tell whether the file carries alpha.
func pixelLayout(img image.Image) (depth string, alpha bool) {
	depth = "8-bit"
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		depth = "16-bit"
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return depth, !o.Opaque()
	}
	return depth, false
}

// Abs resolves path against the working directory of this process. GIMP runs
// in a different directory, so relative paths must never be sent as-is.
func Abs(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("export path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving export path: %w", err)
	}
	return abs, nil
}
