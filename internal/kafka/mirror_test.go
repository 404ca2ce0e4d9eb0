package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"fire-backend/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestMirrorPublish(t *testing.T) {
	w := &recordingWriter{}
	m := NewMirror(w, "fire-alerts")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := m.Publish(context.Background(), &models.DispatchedAlert{
		CycleID:   "cycle-1",
		Timestamp: at,
		Record:    models.AlertRecord{Location: "Room B, Floor 1"},
		Payload:   []byte(`{"location":"Room B, Floor 1"}`),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "Room B, Floor 1" {
		t.Errorf("key: got %q", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("time: got %v", msg.Time)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "cycle-1" {
		t.Errorf("headers: got %+v", msg.Headers)
	}
}

func TestMirrorPublishError(t *testing.T) {
	writeErr := errors.New("leader not available")
	m := NewMirror(&recordingWriter{err: writeErr}, "fire-alerts")

	err := m.Publish(context.Background(), &models.DispatchedAlert{Payload: []byte("{}")})
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
}
