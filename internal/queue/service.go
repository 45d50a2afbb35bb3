package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/queue/models"
	"github.com/mahirjain10/video-watermark/internal/types"
	"github.com/mahirjain10/video-watermark/internal/utils"
)

type JobHandler interface {
	Watermark(ctx context.Context, data models.WatermarkJob) (types.DownloadOutcome, error)
}

type RabbitMqService struct {
	url       string
	queueName string
	handler   JobHandler
	logger    zerolog.Logger
}

func NewRabbitMqService(url string, queueName string, handler JobHandler, logger zerolog.Logger) *RabbitMqService {
	return &RabbitMqService{
		url:       url,
		queueName: queueName,
		handler:   handler,
		logger:    logger.With().Str("queue", queueName).Logger(),
	}
}

// ProcessMessage runs one watermark job. Status updates are published by the
// flow's notifier, so only the ack decision is made here.
func (service *RabbitMqService) ProcessMessage(ctx context.Context, body []byte) error {
	service.logger.Debug().Bytes("body", body).Msg("received message")

	var message models.RabbitMqMessage
	if err := utils.ParseJSON(body, &message); err != nil {
		return models.ProcessingError{Err: fmt.Errorf("failed to parse message: %w", err), Requeue: false}
	}
	if message.Pattern != models.WatermarkPattern {
		return models.ProcessingError{Err: fmt.Errorf("unsupported pattern %q", message.Pattern), Requeue: false}
	}

	outcome, err := service.handler.Watermark(ctx, message.Data)
	if err != nil {
		return models.ProcessingError{
			Err:     fmt.Errorf("watermark job %s: %w", message.Data.ID, err),
			Requeue: types.IsTransient(err),
		}
	}
	service.logger.Info().
		Str("job_id", message.Data.ID).
		Str("path", outcome.Path).
		Int64("size", outcome.Size).
		Str("archive_url", outcome.ArchiveURL).
		Msg("job processed")
	return nil
}

func (service *RabbitMqService) settle(ctx context.Context, d amqp.Delivery) {
	err := service.ProcessMessage(ctx, d.Body)
	if err == nil {
		d.Ack(false)
		return
	}
	requeue := shouldRequeue(err, d.Redelivered)
	service.logger.Error().Err(err).Bool("redelivered", d.Redelivered).Bool("requeue", requeue).Msg("error processing message")
	d.Nack(false, requeue)
}

// shouldRequeue puts Busy rejections back every time. A timed-out job gets
// one more delivery; it is dropped if it times out again.
func shouldRequeue(err error, redelivered bool) bool {
	var procErr models.ProcessingError
	if !errors.As(err, &procErr) || !procErr.Requeue {
		return false
	}
	if types.KindOf(err) == types.Busy {
		return true
	}
	return !redelivered
}

// Start consumes the job queue until ctx is done, reconnecting when the
// broker drops the channel.
func (service *RabbitMqService) Start(ctx context.Context) error {
	var conn *amqp.Connection
	var consumerCh *amqp.Channel
	defer func() {
		if consumerCh != nil {
			consumerCh.Close()
		}
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			service.logger.Info().Msg("shutting down consumer")
			return nil
		default:
		}

		if conn == nil || conn.IsClosed() {
			newConn, err := NewRabbitMQClient(service.url)
			if err != nil {
				service.logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
				if !sleep(ctx, 5*time.Second) {
					return nil
				}
				continue
			}
			conn = newConn
			consumerCh = nil
		}

		if consumerCh == nil || consumerCh.IsClosed() {
			newCh, err := NewChannel(conn)
			if err != nil {
				service.logger.Error().Err(err).Msg("failed to create channel")
				if !sleep(ctx, 5*time.Second) {
					return nil
				}
				continue
			}
			if _, err := NewQueue(newCh, service.queueName); err != nil {
				service.logger.Error().Err(err).Msg("failed to declare job queue")
				newCh.Close()
				if !sleep(ctx, 5*time.Second) {
					return nil
				}
				continue
			}
			consumerCh = newCh
		}

		msgs, err := NewQueueConsumer(consumerCh, service.queueName)
		if err != nil {
			service.logger.Error().Err(err).Msg("failed to start consumer")
			consumerCh.Close()
			consumerCh = nil
			if !sleep(ctx, 5*time.Second) {
				return nil
			}
			continue
		}
		service.logger.Info().Msg("worker started, waiting for messages")

	consume:
		for {
			select {
			case <-ctx.Done():
				service.logger.Info().Msg("shutting down consumer")
				return nil
			case d, ok := <-msgs:
				if !ok {
					service.logger.Warn().Msg("channel closed, will recreate")
					consumerCh = nil
					if !sleep(ctx, 2*time.Second) {
						return nil
					}
					break consume
				}
				service.settle(ctx, d)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
