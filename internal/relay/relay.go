// Package relay fans adapter events out to operational sinks: NATS subjects
// for reactive UI consumers and an append-only Kafka audit trail. The relay
// is the single consumer of an adapter's emitter; everything downstream
// subscribes to the broker instead.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/marko911/wallet-pulse/internal/wallet"
)

// Config holds NATS connection configuration.
type Config struct {
	// NATS server URL (e.g. "nats://localhost:4222").
	URL string

	// Client connection name for identification.
	Name string

	// Subject prefix; events publish to <prefix>.<wallet>.<kind>.
	SubjectPrefix string

	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		Name:           "wallet-pulse-relay",
		SubjectPrefix:  "wallet.events",
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  -1,
		ConnectTimeout: 10 * time.Second,
	}
}

// EventRecord is the wire form of an adapter event on NATS and Kafka.
type EventRecord struct {
	Wallet     string    `json:"wallet"`
	Kind       string    `json:"kind"`
	PublicKey  string    `json:"public_key,omitempty"`
	Error      string    `json:"error,omitempty"`
	ReadyState string    `json:"ready_state,omitempty"`
	At         time.Time `json:"at"`
}

func recordFor(walletName string, ev wallet.Event) EventRecord {
	rec := EventRecord{
		Wallet: walletName,
		Kind:   string(ev.Kind),
		At:     time.Now().UTC(),
	}
	switch ev.Kind {
	case wallet.EventConnect:
		rec.PublicKey = ev.PublicKey.String()
	case wallet.EventError:
		if ev.Err != nil {
			rec.Error = ev.Err.Error()
		}
	case wallet.EventReadyStateChange:
		rec.ReadyState = ev.ReadyState.String()
	}
	return rec
}

// Relay publishes adapter events to NATS and, when configured, mirrors them
// to the Kafka audit trail.
type Relay struct {
	nc     *nats.Conn
	prefix string
	audit  *Audit
	logger *slog.Logger
}

// Connect establishes the NATS connection. audit may be nil.
func Connect(cfg Config, audit *Audit, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "relay")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Relay{
		nc:     nc,
		prefix: cfg.SubjectPrefix,
		audit:  audit,
		logger: logger,
	}, nil
}

// Pump consumes the adapter's emitter until ctx is cancelled. Run one Pump
// per adapter, in its own goroutine.
func (r *Relay) Pump(ctx context.Context, a wallet.Adapter) {
	name := a.Name()
	for {
		ev, err := a.Events().Recv(ctx)
		if err != nil {
			r.logger.Info("relay pump stopped", "wallet", name)
			return
		}
		if err := r.Publish(ctx, name, ev); err != nil {
			r.logger.Error("publish failed", "wallet", name, "kind", ev.Kind, "error", err)
		}
	}
}

// Publish sends one event record to NATS and the audit trail.
func (r *Relay) Publish(ctx context.Context, walletName string, ev wallet.Event) error {
	rec := recordFor(walletName, ev)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", r.prefix, subjectToken(walletName), rec.Kind)
	if err := r.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}

	if r.audit != nil {
		r.audit.Record(ctx, rec)
	}
	return nil
}

// subjectToken makes a wallet name safe for use inside a NATS subject.
func subjectToken(name string) string {
	token := strings.ToLower(name)
	token = strings.ReplaceAll(token, " ", "-")
	token = strings.ReplaceAll(token, ".", "-")
	return token
}

// Close drains the connection, flushing pending publishes.
func (r *Relay) Close() error {
	if r.audit != nil {
		r.audit.Close()
	}
	return r.nc.Drain()
}
