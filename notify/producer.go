// Package notify publishes run lifecycle events to Kafka so downstream
// services (schedulers, dashboards) can react to finished videos.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// RunEvent is the wire payload published per finished run.
type RunEvent struct {
	RunID           string   `json:"runId"`
	ScriptName      string   `json:"scriptName"`
	Status          string   `json:"status"`
	VideoPath       string   `json:"videoPath,omitempty"`
	ArchivePath     string   `json:"archivePath,omitempty"`
	DurationSeconds float64  `json:"durationSeconds"`
	Errors          []string `json:"errors,omitempty"`
	Timestamp       string   `json:"timestamp"`
}

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// Producer publishes run events. Safe for concurrent use.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducer connects to the brokers with acks from all in-sync replicas.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{producer: producer, topic: cfg.Topic, logger: logger}, nil
}

// Publish sends one run event keyed by run ID.
func (p *Producer) Publish(ctx context.Context, event RunEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().Format(time.RFC3339)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.RunID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	p.logger.Debug("run event published", "run", event.RunID, "partition", partition, "offset", offset)
	return nil
}

// Close flushes and releases the underlying producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
