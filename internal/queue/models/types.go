package models

import "github.com/mahirjain10/video-watermark/internal/types"

const WatermarkPattern = "watermark"

// ProcessingError tells the consumer whether the delivery should go back on
// the queue.
type ProcessingError struct {
	Err     error
	Requeue bool
}

func (p ProcessingError) Error() string {
	return p.Err.Error()
}

func (p ProcessingError) Unwrap() error {
	return p.Err
}

type WatermarkJob struct {
	ID            string                `json:"id"`
	VideoURI      string                `json:"videoUri"`
	WatermarkURI  string                `json:"watermarkUri"`
	WatermarkText string                `json:"watermarkText"`
	Steps         []types.TransformStep `json:"steps"`
}

type RabbitMqMessage struct {
	Pattern string       `json:"pattern"`
	Data    WatermarkJob `json:"data"`
}
