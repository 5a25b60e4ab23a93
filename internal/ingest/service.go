package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidEvent    = errors.New("invalid event")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Envelope is the /send_event request body. A missing use_docker_method
// means the console path.
type Envelope struct {
	EventData       map[string]json.RawMessage `json:"event_data"`
	UseDockerMethod *bool                      `json:"use_docker_method"`
}

func (e Envelope) console() bool {
	return e.UseDockerMethod == nil || *e.UseDockerMethod
}

// Receipt is returned for every delivered event
type Receipt struct {
	Success          bool                       `json:"success"`
	Message          string                     `json:"message"`
	Event            map[string]json.RawMessage `json:"event"`
	CommandOutput    string                     `json:"command_output,omitempty"`
	BootstrapServers string                     `json:"bootstrap_servers,omitempty"`
}

type Service struct {
	mu       sync.RWMutex
	settings Settings
	kv       store.KeyValueStore
	console  Publisher
	direct   Publisher
	probe    func(ctx context.Context, brokers []string, timeout time.Duration) error
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithProbe(probe func(ctx context.Context, brokers []string, timeout time.Duration) error) Option {
	return func(s *Service) { s.probe = probe }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService restores settings from the kafka_settings slot, falling back
// to defaults when the slot is empty or unreadable.
func NewService(ctx context.Context, kv store.KeyValueStore, defaults Settings, console, direct Publisher, opts ...Option) *Service {
	s := &Service{
		settings: defaults,
		kv:       kv,
		console:  console,
		direct:   direct,
		probe:    kafka.Probe,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := kv.Get(ctx, store.SettingsKey)
	switch {
	case err != nil:
		s.logger.Warn("failed to load kafka settings, using defaults", zap.Error(err))
	case ok:
		saved, err := decodeSettings(raw)
		if err != nil {
			s.logger.Warn("discarding unreadable kafka settings", zap.Error(err))
			break
		}
		s.settings = s.settings.apply(SettingsUpdate{
			BootstrapServers: nonEmpty(saved.BootstrapServers),
			Topic:            nonEmpty(saved.Topic),
		})
		s.logger.Info("restored kafka settings",
			zap.String("bootstrap_servers", s.settings.BootstrapServers),
			zap.String("topic", s.settings.Topic))
	}
	return s
}

func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Send fills id and timestamp when absent and delivers the event
func (s *Service) Send(ctx context.Context, env Envelope) (*Receipt, error) {
	event := make(map[string]json.RawMessage, len(env.EventData)+2)
	for k, v := range env.EventData {
		event[k] = v
	}
	if _, ok := event["id"]; !ok {
		event["id"] = quote(s.newID())
	}
	if _, ok := event["timestamp"]; !ok {
		event["timestamp"] = quote(s.now().UTC().Format(time.RFC3339Nano))
	}

	key, err := eventKey(event["id"])
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	settings := s.Settings()
	if env.console() {
		output, err := s.console.Publish(ctx, settings, key, payload)
		if err != nil {
			return nil, err
		}
		s.logger.Info("event sent via console producer", zap.String("id", key), zap.String("topic", settings.Topic))
		return &Receipt{
			Success:       true,
			Message:       "Event sent successfully via Docker",
			Event:         event,
			CommandOutput: output,
		}, nil
	}

	if _, err := s.direct.Publish(ctx, settings, key, payload); err != nil {
		return nil, err
	}
	s.logger.Info("event sent", zap.String("id", key), zap.String("topic", settings.Topic))
	return &Receipt{
		Success:          true,
		Message:          "Event sent successfully",
		Event:            event,
		BootstrapServers: settings.BootstrapServers,
	}, nil
}

// ApplySettings persists the merged settings and, when bootstrap servers
// were given, probes them. The probe result never fails the update.
func (s *Service) ApplySettings(ctx context.Context, update SettingsUpdate) (*SettingsResult, error) {
	s.mu.Lock()
	next := s.settings.apply(update)
	if err := next.validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	raw, err := encodeSettings(next)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.kv.Set(ctx, store.SettingsKey, raw); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to persist kafka settings: %w", err)
	}
	s.settings = next
	s.mu.Unlock()

	s.logger.Info("kafka settings updated",
		zap.String("bootstrap_servers", next.BootstrapServers),
		zap.String("topic", next.Topic))

	status := KafkaStatus{Message: "Not tested"}
	if update.BootstrapServers != nil {
		status = s.checkKafka(ctx, next)
	}
	return &SettingsResult{Settings: next, KafkaStatus: status}, nil
}

func (s *Service) checkKafka(ctx context.Context, settings Settings) KafkaStatus {
	brokers := settings.Brokers()
	if err := s.probe(ctx, brokers, kafka.ProbeTimeout); err != nil {
		var probeErr *kafka.ProbeError
		if errors.As(err, &probeErr) {
			return KafkaStatus{Message: fmt.Sprintf("Failed to connect to %s: %v", probeErr.Addr, probeErr.Err)}
		}
		return KafkaStatus{Message: fmt.Sprintf("Error testing Kafka connection: %v", err)}
	}
	return KafkaStatus{Available: true, Message: "Successfully connected to " + strings.Join(brokers, ",")}
}

func eventKey(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: id must be a string or number", ErrInvalidEvent)
}

func quote(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
