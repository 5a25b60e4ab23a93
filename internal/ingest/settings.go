package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
)

// Settings is where the direct path produces to. It is persisted in the
// kafka_settings slot and restored on start.
type Settings struct {
	BootstrapServers string `json:"kafka_bootstrap_servers"`
	Topic            string `json:"kafka_topic"`
}

func (s Settings) Brokers() []string {
	return kafka.ParseBrokers(s.BootstrapServers)
}

// SettingsUpdate carries the fields an /update_settings request provided
type SettingsUpdate struct {
	BootstrapServers *string `json:"kafka_bootstrap_servers"`
	Topic            *string `json:"kafka_topic"`
}

// KafkaStatus is the reachability check run after bootstrap servers change
type KafkaStatus struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type SettingsResult struct {
	Settings    Settings    `json:"settings"`
	KafkaStatus KafkaStatus `json:"kafka_status"`
}

func (s Settings) apply(u SettingsUpdate) Settings {
	if u.BootstrapServers != nil {
		s.BootstrapServers = *u.BootstrapServers
	}
	if u.Topic != nil {
		s.Topic = *u.Topic
	}
	return s
}

func (s Settings) validate() error {
	if len(s.Brokers()) == 0 {
		return fmt.Errorf("%w: kafka_bootstrap_servers is empty", ErrInvalidSettings)
	}
	if s.Topic == "" {
		return fmt.Errorf("%w: kafka_topic is empty", ErrInvalidSettings)
	}
	return nil
}

func encodeSettings(s Settings) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSettings(raw string) (Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
