package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"vigri-presale/internal/domain"
)

// NATSConfig holds the configuration for the NATS JetStream sink.
type NATSConfig struct {
	URL            string
	StreamName     string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	PublishTimeout time.Duration
}

// JetStream is the subset of jetstream.JetStream the publisher needs.
type JetStream interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes mint events to JetStream, one subject per tier.
type NATSPublisher struct {
	nc      *nats.Conn
	js      JetStream
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

// NewNATSPublisher connects to NATS and ensures the stream exists.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig, log *zap.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error("Disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.SubjectPrefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}

	p := newNATSPublisher(js, cfg.SubjectPrefix, cfg.PublishTimeout, log)
	p.nc = nc
	return p, nil
}

func newNATSPublisher(js JetStream, prefix string, timeout time.Duration, log *zap.Logger) *NATSPublisher {
	return &NATSPublisher{js: js, prefix: prefix, timeout: timeout, log: log}
}

// Publish implements Publisher. The event id doubles as the JetStream
// message id so redelivery of the same event is deduplicated.
func (p *NATSPublisher) Publish(ctx context.Context, e *domain.MintEvent) error {
	data, err := json.Marshal(NewMessage(e))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	subject := Subject(p.prefix, e.TierID)
	p.log.Debug("Publishing mint event", zap.String("subject", subject), zap.String("event_id", e.EventID))

	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(e.EventID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subject returns the subject for a tier, e.g. presale.mint.gold.
func Subject(prefix string, tier domain.TierID) string {
	return fmt.Sprintf("%s.%s", prefix, tier.Slug())
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	p.nc.Close()
}

var _ Publisher = (*NATSPublisher)(nil)
