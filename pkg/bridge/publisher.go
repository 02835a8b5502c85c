package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// subjectPrefix is the broker subject root; the event type is appended,
// e.g. avbridge.events.channel_state.
const subjectPrefix = "avbridge.events."

// Publisher forwards adapter events onto an external broker.
type Publisher interface {
	PublishEvent(ev device.Event) error
	Close()
}

// NATSPublisher publishes events as JSON onto NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("onkyo-bridge"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	log.Info().Str("url", conn.ConnectedUrl()).Msg("connected to nats")
	return &NATSPublisher{conn: conn}, nil
}

// PublishEvent marshals the event and publishes it under its type subject.
func (p *NATSPublisher) PublishEvent(ev device.Event) error {
	payload, err := json.Marshal(Envelope{
		Type:      ev.EventType(),
		Data:      ev,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.conn.Publish(subjectPrefix+ev.EventType(), payload)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
