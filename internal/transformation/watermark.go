package transformation

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// Decoders register themselves with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/mahirjain10/video-watermark/internal/utils"
)

// WatermarkPreparer normalizes a local watermark image before upload so the
// declared image/png mime matches the bytes actually sent.
type WatermarkPreparer struct {
	workDir   string
	maxWidth  int
	maxHeight int
}

func NewWatermarkPreparer(workDir string, maxWidth int, maxHeight int) *WatermarkPreparer {
	return &WatermarkPreparer{workDir: workDir, maxWidth: maxWidth, maxHeight: maxHeight}
}

// Prepare decodes the image at srcPath, shrinks it to fit the configured
// bounds and writes it as PNG under the work dir. It returns the new path.
func (p *WatermarkPreparer) Prepare(srcPath string) (string, error) {
	buffer, err := utils.ReadFileBuffer(srcPath)
	if err != nil {
		return "", err
	}
	fitted, err := FitPNG(buffer, p.maxWidth, p.maxHeight)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	outPath, err := utils.PathUtil(p.workDir, fmt.Sprintf("watermark/%s.png", base))
	if err != nil {
		return "", err
	}
	if err := utils.WriteFileBuffer(outPath, fitted); err != nil {
		return "", err
	}
	return outPath, nil
}

// FitPNG scales the image down (never up) to fit within width x height and
// re-encodes it as PNG. A non-positive bound leaves that axis unconstrained.
func FitPNG(buffer []byte, width int, height int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}

	bounds := img.Bounds()
	if width <= 0 {
		width = bounds.Dx()
	}
	if height <= 0 {
		height = bounds.Dy()
	}
	fitted := imaging.Fit(img, width, height, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err = imaging.Encode(buf, fitted, imaging.PNG); err != nil {
		return nil, fmt.Errorf("error while encoding watermark: %v", err)
	}
	return buf.Bytes(), nil
}
