package export

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writePNG encodes img to a PNG in a temporary directory and returns its path.
func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestInspect_Translucent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{200, 10, 10, 128})
		}
	}
	path := writePNG(t, "out.png", img)

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Width != 64 || info.Height != 32 {
		t.Errorf("dimensions: got %dx%d, want 64x32", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %q, want png", info.Format)
	}
	if !info.HasAlpha {
		t.Error("HasAlpha: got false, want true")
	}
	if info.ColorDepth != "8-bit" {
		t.Errorf("ColorDepth: got %q, want 8-bit", info.ColorDepth)
	}
	if info.Path != path {
		t.Errorf("Path: got %q, want %q", info.Path, path)
	}
	stat, _ := os.Stat(path)
	if info.FileSizeBytes != stat.Size() {
		t.Errorf("FileSizeBytes: got %d, want %d", info.FileSizeBytes, stat.Size())
	}
}

func TestInspect_OpaqueRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{10, 120, 240, 255})
		}
	}
	path := writePNG(t, "opaque.png", img)

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.HasAlpha {
		t.Error("HasAlpha: got true for an opaque truecolor PNG")
	}
	if info.ColorDepth != "8-bit" {
		t.Errorf("ColorDepth: got %q, want 8-bit", info.ColorDepth)
	}
}

func TestInspect_Gray(t *testing.T) {
	path := writePNG(t, "gray.png", image.NewGray(image.Rect(0, 0, 10, 20)))

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.HasAlpha {
		t.Error("HasAlpha: got true for grayscale image")
	}
	if info.Width != 10 || info.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 10x20", info.Width, info.Height)
	}
}

func TestInspect_Gray16(t *testing.T) {
	path := writePNG(t, "deep.png", image.NewGray16(image.Rect(0, 0, 4, 4)))

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.ColorDepth != "16-bit" {
		t.Errorf("ColorDepth: got %q, want 16-bit", info.ColorDepth)
	}
}

func TestInspect_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Inspect(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Inspect should fail for a missing file")
	}
	if _, err := Inspect(dir); err == nil {
		t.Error("Inspect should fail for a directory")
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(bad); err == nil {
		t.Error("Inspect should fail for invalid image data")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"/tmp/a.png":  "png",
		"/tmp/a.JPG":  "jpeg",
		"/tmp/a.jpeg": "jpeg",
		"/tmp/a.gif":  "gif",
		"/tmp/a.tif":  "tiff",
		"/tmp/a.bmp":  "bmp",
		"/tmp/a.xcf":  "unknown",
		"/tmp/a":      "unknown",
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q): got %q, want %q", path, got, want)
		}
	}
}

func TestAbs(t *testing.T) {
	if _, err := Abs("  "); err == nil {
		t.Error("Abs should reject an empty path")
	}
	got, err := Abs("relative/out.png")
	if err != nil {
		t.Fatalf("Abs failed: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Abs returned relative path %q", got)
	}
}
