package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ResourceKind string

const (
	VIDEO ResourceKind = "video"
	IMAGE ResourceKind = "image"
)

// TransformStep is one server-side processing unit. Numeric fields are
// pointers so that an explicit zero is still encoded.
type TransformStep struct {
	Quality       string   `json:"quality,omitempty"`
	Width         *float64 `json:"width,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	Crop          string   `json:"crop,omitempty"`
	FetchFormat   string   `json:"fetch_format,omitempty"`
	VideoCodec    string   `json:"video_codec,omitempty"`
	AudioCodec    string   `json:"audio_codec,omitempty"`
	Overlay       *Overlay `json:"overlay,omitempty"`
	RelativeWidth *float64 `json:"relative_width,omitempty"`
	Color         string   `json:"color,omitempty"`
	Gravity       string   `json:"gravity,omitempty"`
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
}

// Overlay is either a text layer or a reference to an uploaded asset.
type Overlay struct {
	Text     *TextOverlay
	PublicID string
}

type TextOverlay struct {
	FontFamily string `json:"font_family,omitempty"`
	FontSize   int    `json:"font_size,omitempty"`
	FontWeight string `json:"font_weight,omitempty"`
	Text       string `json:"text"`
}

func TextLayer(text TextOverlay) *Overlay {
	return &Overlay{Text: &text}
}

func ImageLayer(publicID string) *Overlay {
	return &Overlay{PublicID: publicID}
}

// UnmarshalJSON accepts a bare string (asset id), an object with public_id,
// or a text overlay object.
func (o *Overlay) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("overlay id: %w", err)
		}
		*o = Overlay{PublicID: id}
		return nil
	}
	var object struct {
		TextOverlay
		PublicID string `json:"public_id"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("overlay text: %w", err)
	}
	switch {
	case object.Text != "":
		text := object.TextOverlay
		*o = Overlay{Text: &text}
	case object.PublicID != "":
		*o = Overlay{PublicID: object.PublicID}
	default:
		return fmt.Errorf("overlay object needs text or public_id")
	}
	return nil
}

func (o Overlay) MarshalJSON() ([]byte, error) {
	if o.Text != nil {
		return json.Marshal(o.Text)
	}
	return json.Marshal(o.PublicID)
}

// Num returns a pointer to v, for the optional numeric fields of TransformStep.
func Num(v float64) *float64 {
	return &v
}
