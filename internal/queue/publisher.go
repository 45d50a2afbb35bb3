package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/flow"
	"github.com/mahirjain10/video-watermark/internal/utils"
)

// Publisher is the part of *amqp.Channel the status publisher needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// StatusPublisher forwards flow reports to the status exchange.
type StatusPublisher struct {
	channel Publisher
	logger  zerolog.Logger
}

func NewStatusPublisher(channel Publisher, logger zerolog.Logger) *StatusPublisher {
	return &StatusPublisher{channel: channel, logger: logger}
}

// Notify publishes the report. A failed publish is logged; the flow result
// does not depend on it.
func (p *StatusPublisher) Notify(ctx context.Context, report flow.Report) {
	errorMsg := ""
	if report.Kind != "" {
		errorMsg = report.Message
	}
	statusData := utils.InitStatusData(report.JobID, report.Status, report.Outcome, errorMsg)
	statusMessage := utils.InitStatusMessage(statusData)
	if err := p.PublishToChannel(ctx, statusMessage); err != nil {
		p.logger.Warn().Err(err).Str("job_id", report.JobID).Str("status", report.Status).Msg("failed to publish status")
		return
	}
	p.logger.Debug().Str("job_id", report.JobID).Str("status", report.Status).Msg("pushed to status queue")
}

func (p *StatusPublisher) PublishToChannel(ctx context.Context, message any) error {
	if p.channel == nil {
		return fmt.Errorf("status channel is not initialized")
	}
	// the flow context may already be done by the time the final report goes out
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	serializedMessage, err := utils.SerializeJSON(message)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	err = p.channel.PublishWithContext(ctx,
		statusExchange,
		statusRoutingKey,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        serializedMessage,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
