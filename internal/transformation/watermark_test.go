package transformation

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func encodeFixture(t *testing.T, width, height int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, format); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestFitPNG_ShrinksAndConverts(t *testing.T) {
	out, err := FitPNG(encodeFixture(t, 600, 400, imaging.JPEG), 300, 200)
	if err != nil {
		t.Fatalf("FitPNG: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Fatalf("format = %s, want png", format)
	}
	if cfg.Width != 300 || cfg.Height != 200 {
		t.Fatalf("size = %dx%d, want 300x200", cfg.Width, cfg.Height)
	}
}

func TestFitPNG_DoesNotUpscale(t *testing.T) {
	out, err := FitPNG(encodeFixture(t, 50, 40, imaging.PNG), 300, 200)
	if err != nil {
		t.Fatalf("FitPNG: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 40 {
		t.Fatalf("size = %dx%d, want 50x40", cfg.Width, cfg.Height)
	}
}

func TestFitPNG_RejectsGarbage(t *testing.T) {
	if _, err := FitPNG([]byte("not an image"), 10, 10); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWatermarkPreparer_Prepare(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.jpg")
	if err := os.WriteFile(src, encodeFixture(t, 900, 300, imaging.JPEG), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := NewWatermarkPreparer(filepath.Join(dir, "work"), 300, 200).Prepare(src)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if filepath.Base(out) != "logo.png" {
		t.Fatalf("output name = %s", filepath.Base(out))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 100 {
		t.Fatalf("size = %dx%d, want 300x100", cfg.Width, cfg.Height)
	}
}
