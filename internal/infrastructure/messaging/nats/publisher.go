package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/edge-adapter/internal/application/port"
)

const DefaultStream = "EDGE_DEPLOYS"

// NATSPublisher implements EventPublisher for NATS JetStream
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

var _ port.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to natsURL and makes sure stream captures the
// edge.> subjects.
func NewNATSPublisher(natsURL, stream string, log *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("edge-adapter"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if stream == "" {
		stream = DefaultStream
	}
	if err := ensureStream(js, stream); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("Connected to NATS", "url", natsURL, "stream", stream)

	return &NATSPublisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

func ensureStream(js nats.JetStreamContext, stream string) error {
	_, err := js.StreamInfo(stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", stream, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: []string{"edge.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", stream, err)
	}
	return nil
}

// PublishEvent publishes an event and waits for the JetStream ack.
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := p.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		p.logger.Error("Failed to publish event", "error", err, "subject", subject)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"size", len(data),
	)

	return nil
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		p.nc.Close()
	}
	return nil
}
