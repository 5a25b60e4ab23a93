package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
	"go.uber.org/zap"
)

// Layouts accepted for the event timestamp. The last one is what a
// producer without timezone information emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

type eventHeader struct {
	ID        json.RawMessage `json:"id"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
}

type Stats struct {
	Inserted   int64 `json:"inserted"`
	Duplicates int64 `json:"duplicates"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
}

// Sink copies events from the topic into events_streaming
type Sink struct {
	writer Writer
	now    func() time.Time
	logger *zap.Logger

	inserted   atomic.Int64
	duplicates atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

func New(writer Writer, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{writer: writer, now: time.Now, logger: logger}
}

// Run consumes until ctx is done. The group reader commits each offset as
// it is read, so an event whose write fails is counted in Stats.Failed and
// not redelivered.
func (s *Sink) Run(ctx context.Context, consumer *kafka.Consumer) error {
	return consumer.Consume(ctx, s.Handle)
}

// Handle stores one message. Messages that cannot be decoded are logged
// and skipped; only storage errors are returned.
func (s *Sink) Handle(ctx context.Context, key, value []byte) error {
	row, ok := s.decode(key, value)
	if !ok {
		s.skipped.Add(1)
		return nil
	}

	inserted, err := s.writer.Write(ctx, row)
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("event %s not stored: %w", row.ID, err)
	}
	if inserted {
		s.inserted.Add(1)
		s.logger.Debug("event stored", zap.String("id", row.ID), zap.String("type", row.Type))
	} else {
		s.duplicates.Add(1)
		s.logger.Debug("duplicate event ignored", zap.String("id", row.ID))
	}
	return nil
}

func (s *Sink) Stats() Stats {
	return Stats{
		Inserted:   s.inserted.Load(),
		Duplicates: s.duplicates.Load(),
		Skipped:    s.skipped.Load(),
		Failed:     s.failed.Load(),
	}
}

func (s *Sink) decode(key, value []byte) (Row, bool) {
	var header eventHeader
	if err := json.Unmarshal(value, &header); err != nil {
		s.logger.Warn("skipping undecodable message", zap.ByteString("key", key), zap.Error(err))
		return Row{}, false
	}

	id := idString(header.ID)
	if id == "" {
		id = string(key)
	}
	if id == "" {
		s.logger.Warn("skipping message without id")
		return Row{}, false
	}

	row := Row{
		ID:         id,
		Type:       header.Type,
		Payload:    value,
		IngestTime: s.now().UTC(),
	}
	if header.Timestamp != "" {
		if t, ok := parseTimestamp(header.Timestamp); ok {
			row.EventTime = &t
		} else {
			s.logger.Warn("unparseable event timestamp", zap.String("id", id), zap.String("timestamp", header.Timestamp))
		}
	}
	return row, true
}

func idString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
