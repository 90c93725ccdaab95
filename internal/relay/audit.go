package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// AuditConfig holds Kafka settings for the audit trail.
type AuditConfig struct {
	// Comma-separated broker list.
	Brokers string

	Topic string

	ClientID string

	// Topic creation parameters when the topic is missing.
	Partitions        int32
	ReplicationFactor int16
	RetentionMs       int64
}

// DefaultAuditConfig returns sensible defaults for local development.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Brokers:           "localhost:9092",
		Topic:             "wallet-audit",
		ClientID:          "wallet-pulse",
		Partitions:        4,
		ReplicationFactor: 1,
		RetentionMs:       30 * 24 * 60 * 60 * 1000, // 30 days
	}
}

// Audit appends event records to a Kafka topic, keyed by wallet name so one
// wallet's history stays ordered within a partition.
type Audit struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewAudit connects to the brokers and creates the topic if missing.
func NewAudit(ctx context.Context, cfg AuditConfig, logger *slog.Logger) (*Audit, error) {
	if logger == nil {
		logger = slog.Default()
	}

	brokers := strings.Split(cfg.Brokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg); err != nil {
		client.Close()
		return nil, err
	}

	return &Audit{
		client: client,
		topic:  cfg.Topic,
		logger: logger.With("component", "audit"),
	}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, cfg AuditConfig) error {
	admin := kadm.NewClient(client)

	existing, err := admin.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if _, ok := existing[cfg.Topic]; ok {
		return nil
	}

	retention := fmt.Sprintf("%d", cfg.RetentionMs)
	resp, err := admin.CreateTopics(ctx, cfg.Partitions, cfg.ReplicationFactor,
		map[string]*string{
			"retention.ms": &retention,
		},
		cfg.Topic,
	)
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Record appends one event record, fire and forget. Produce errors are
// logged, not returned; the audit trail never blocks the event path.
func (a *Audit) Record(ctx context.Context, rec EventRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		a.logger.Error("marshal audit record", "error", err)
		return
	}

	a.client.Produce(ctx, &kgo.Record{
		Key:   []byte(rec.Wallet),
		Value: data,
		Topic: a.topic,
	}, func(r *kgo.Record, err error) {
		if err != nil {
			a.logger.Error("audit produce failed", "wallet", rec.Wallet, "kind", rec.Kind, "error", err)
		}
	})
}

// Close flushes buffered records and releases the client.
func (a *Audit) Close() {
	a.client.Close()
}
