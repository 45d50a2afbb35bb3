package transformation

import (
	"strconv"
	"strings"

	"github.com/mahirjain10/video-watermark/internal/types"
)

const (
	DefaultDeliveryHost = "https://res.cloudinary.com"
	DefaultFontFamily   = "Arial"
	DefaultFontSize     = 40
)

// EncodeStep renders one step as comma-joined tokens. Values are passed
// through as given; the provider validates them.
func EncodeStep(step types.TransformStep) string {
	var tokens []string
	if step.Quality != "" {
		tokens = append(tokens, "q_"+step.Quality)
	}
	if step.Width != nil {
		tokens = append(tokens, "w_"+formatNumber(*step.Width))
	}
	if step.Height != nil {
		tokens = append(tokens, "h_"+formatNumber(*step.Height))
	}
	if step.Crop != "" {
		tokens = append(tokens, "c_"+step.Crop)
	}
	if step.FetchFormat != "" {
		tokens = append(tokens, "f_"+step.FetchFormat)
	}
	if step.VideoCodec != "" {
		tokens = append(tokens, "vc_"+step.VideoCodec)
	}
	if step.AudioCodec != "" {
		tokens = append(tokens, "ac_"+step.AudioCodec)
	}
	if overlay := encodeOverlay(step.Overlay); overlay != "" {
		tokens = append(tokens, overlay)
	}
	if rw := step.RelativeWidth; rw != nil && *rw > 0 && *rw < 1 {
		tokens = append(tokens, "w_"+formatNumber(*rw))
	}
	if step.Color != "" {
		tokens = append(tokens, "co_rgb:"+strings.TrimPrefix(step.Color, "#"))
	}
	if step.Gravity != "" {
		tokens = append(tokens, "g_"+step.Gravity)
	}
	if step.X != nil {
		tokens = append(tokens, "x_"+formatNumber(*step.X))
	}
	if step.Y != nil {
		tokens = append(tokens, "y_"+formatNumber(*step.Y))
	}
	return strings.Join(tokens, ",")
}

// EncodeSteps joins the non-empty step encodings with "/".
func EncodeSteps(steps []types.TransformStep) string {
	segments := make([]string, 0, len(steps))
	for _, step := range steps {
		if encoded := EncodeStep(step); encoded != "" {
			segments = append(segments, encoded)
		}
	}
	return strings.Join(segments, "/")
}

// BuildURL returns base + encoded steps + "/" + publicID. When no step
// produces tokens the result is base + publicID.
func BuildURL(base string, steps []types.TransformStep, publicID string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	path := EncodeSteps(steps)
	if path == "" {
		return base + publicID
	}
	return base + path + "/" + publicID
}

// DeliveryBase is the upload delivery prefix for a cloud and resource kind,
// e.g. https://res.cloudinary.com/demo/video/upload/.
func DeliveryBase(host string, cloudName string, kind types.ResourceKind) string {
	if host == "" {
		host = DefaultDeliveryHost
	}
	return strings.TrimRight(host, "/") + "/" + cloudName + "/" + string(kind) + "/upload/"
}

// WatermarkSteps is the two-layer watermark pipeline: a bold white caption in
// the bottom-right corner, then the uploaded image scaled to a fifth of the
// video width in the top-left corner.
func WatermarkSteps(text string, imagePublicID string) []types.TransformStep {
	return []types.TransformStep{
		{
			Overlay: types.TextLayer(types.TextOverlay{
				FontFamily: DefaultFontFamily,
				FontSize:   DefaultFontSize,
				FontWeight: "bold",
				Text:       text,
			}),
			Color:   "#FFFFFF",
			Gravity: "south_east",
			X:       types.Num(10),
			Y:       types.Num(80),
		},
		{
			Overlay:       types.ImageLayer(imagePublicID),
			RelativeWidth: types.Num(0.2),
			Gravity:       "north_west",
			X:             types.Num(10),
			Y:             types.Num(10),
		},
	}
}

func encodeOverlay(overlay *types.Overlay) string {
	if overlay == nil {
		return ""
	}
	if text := overlay.Text; text != nil {
		font := text.FontFamily
		if font == "" {
			font = DefaultFontFamily
		}
		size := text.FontSize
		if size == 0 {
			size = DefaultFontSize
		}
		style := font + "_" + strconv.Itoa(size)
		if text.FontWeight != "" {
			style += "_" + text.FontWeight
		}
		return "l_text:" + style + ":" + EscapeComponent(text.Text)
	}
	if overlay.PublicID != "" {
		return "l_" + EscapeComponent(overlay.PublicID)
	}
	return ""
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EscapeComponent percent-encodes s the way encodeURIComponent does, which is
// what the provider expects inside layer tokens.
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
