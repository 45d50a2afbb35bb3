package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/flow"
	"github.com/mahirjain10/video-watermark/internal/queue/models"
	"github.com/mahirjain10/video-watermark/internal/types"
)

type fakeHandler struct {
	got models.WatermarkJob
	err error
}

func (f *fakeHandler) Watermark(ctx context.Context, data models.WatermarkJob) (types.DownloadOutcome, error) {
	f.got = data
	if f.err != nil {
		return types.DownloadOutcome{}, f.err
	}
	return types.DownloadOutcome{Path: "downloads/out.mp4", Size: 10, Verified: true}, nil
}

func TestProcessMessage(t *testing.T) {
	body := `{"pattern":"watermark","data":{"id":"job-1","videoUri":"https://cdn.example.com/v.mp4","watermarkUri":"logo.png","watermarkText":"ACME","steps":[{"quality":"auto"}]}}`

	tests := []struct {
		name        string
		body        string
		handlerErr  error
		wantErr     bool
		wantRequeue bool
	}{
		{name: "processed", body: body},
		{name: "bad json", body: `{"pattern":`, wantErr: true},
		{name: "unknown pattern", body: `{"pattern":"resize","data":{}}`, wantErr: true},
		{name: "busy requeues", body: body, handlerErr: types.NewError(types.Busy, "start", "busy"), wantErr: true, wantRequeue: true},
		{name: "timeout requeues", body: body, handlerErr: types.NewError(types.Timeout, "download", "idle"), wantErr: true, wantRequeue: true},
		{name: "upload failure is dropped", body: body, handlerErr: types.NewError(types.UploadFailed, "upload", "nope"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &fakeHandler{err: tt.handlerErr}
			service := NewRabbitMqService("amqp://unused", "watermark_queue", handler, zerolog.Nop())

			err := service.ProcessMessage(context.Background(), []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessMessage error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if handler.got.ID != "job-1" || handler.got.WatermarkText != "ACME" || len(handler.got.Steps) != 1 {
					t.Fatalf("handler got %+v", handler.got)
				}
				return
			}
			var procErr models.ProcessingError
			if !errors.As(err, &procErr) {
				t.Fatalf("expected ProcessingError, got %T", err)
			}
			if procErr.Requeue != tt.wantRequeue {
				t.Fatalf("requeue = %v, want %v", procErr.Requeue, tt.wantRequeue)
			}
			if tt.handlerErr != nil && types.KindOf(err) != types.KindOf(tt.handlerErr) {
				t.Fatalf("kind lost through wrapping: %s", types.KindOf(err))
			}
		})
	}
}

type fakeChannel struct {
	exchange, key string
	published     []amqp.Publishing
	err           error
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.published = append(f.published, msg)
	return nil
}

func TestStatusPublisher_Notify(t *testing.T) {
	ch := &fakeChannel{}
	publisher := NewStatusPublisher(ch, zerolog.Nop())

	publisher.Notify(context.Background(), flow.Report{JobID: "job-1", Status: types.PROCESSING, Title: "Uploading & Processing", Message: "Please wait"})
	publisher.Notify(context.Background(), flow.Report{
		JobID:   "job-1",
		Status:  types.PROCESSED,
		Title:   "Success",
		Outcome: types.DownloadOutcome{Path: "downloads/job-1.mp4", Size: 42, ArchiveURL: "https://s3/processed/job-1"},
	})
	publisher.Notify(context.Background(), flow.Report{JobID: "job-2", Status: types.FAILED, Kind: types.DownloadFailed, Message: "Could not download video. Status: 404"})

	if ch.exchange != "video_watermark" || ch.key != "status" {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if len(ch.published) != 3 {
		t.Fatalf("published %d messages", len(ch.published))
	}

	var messages []types.StatusMessage
	for _, p := range ch.published {
		if p.ContentType != "application/json" {
			t.Fatalf("content type %s", p.ContentType)
		}
		var m types.StatusMessage
		if err := json.Unmarshal(p.Body, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		messages = append(messages, m)
	}
	if messages[0].Pattern != "status" || messages[0].Data.Status != types.PROCESSING || messages[0].Data.ErrorMsg != "" {
		t.Fatalf("processing message %+v", messages[0])
	}
	if messages[1].Data.PublicURL != "https://s3/processed/job-1" || messages[1].Data.Size != 42 {
		t.Fatalf("processed message %+v", messages[1])
	}
	if messages[2].Data.Status != types.FAILED || messages[2].Data.ErrorMsg != "Could not download video. Status: 404" {
		t.Fatalf("failed message %+v", messages[2])
	}
}

func TestStatusPublisher_PublishErrorIsSwallowed(t *testing.T) {
	publisher := NewStatusPublisher(&fakeChannel{err: errors.New("channel closed")}, zerolog.Nop())
	publisher.Notify(context.Background(), flow.Report{JobID: "job", Status: types.PROCESSED})

	if err := NewStatusPublisher(nil, zerolog.Nop()).PublishToChannel(context.Background(), "x"); err == nil {
		t.Fatal("expected error without a channel")
	}
}

type recordingAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestSettle_BoundsTimeoutRedelivery(t *testing.T) {
	body := []byte(`{"pattern":"watermark","data":{"id":"job-1","videoUri":"v.mp4","watermarkUri":"w.png"}}`)

	tests := []struct {
		name        string
		handlerErr  error
		redelivered bool
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success acks", wantAck: true},
		{name: "first timeout requeues", handlerErr: types.NewError(types.Timeout, "download", "idle"), wantRequeue: true},
		{name: "redelivered timeout is dropped", handlerErr: types.NewError(types.Timeout, "download", "idle"), redelivered: true},
		{name: "redelivered busy still requeues", handlerErr: types.NewError(types.Busy, "start", "busy"), redelivered: true, wantRequeue: true},
		{name: "verification failure is dropped", handlerErr: types.NewError(types.VerificationFailed, "verify", "zero size")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAcknowledger{}
			service := NewRabbitMqService("amqp://unused", "watermark_queue", &fakeHandler{err: tt.handlerErr}, zerolog.Nop())

			service.settle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body, Redelivered: tt.redelivered})

			if tt.wantAck {
				if ack.acked != 1 || ack.nacked != 0 {
					t.Fatalf("acked=%d nacked=%d", ack.acked, ack.nacked)
				}
				return
			}
			if ack.nacked != 1 || ack.requeue != tt.wantRequeue {
				t.Fatalf("nacked=%d requeue=%v, want requeue %v", ack.nacked, ack.requeue, tt.wantRequeue)
			}
		})
	}
}
