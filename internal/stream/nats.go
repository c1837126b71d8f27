package stream

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/duynguyen020304/pz-manager-sub001/internal/config"
	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// NATSPublisher mirrors log entries onto NATS, one subject per server
// under pz.logs.<server>.
type NATSPublisher struct {
	conn *nats.Conn
	log  *logging.Logger
}

// NewNATSPublisher connects to NATS using the configured options.
func NewNATSPublisher(cfg config.NATSConfig, log *logging.Logger) (*NATSPublisher, error) {
	l := log.Component("nats")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, log: l}, nil
}

// Publish sends the entry as JSON to pz.logs.<server>.
func (p *NATSPublisher) Publish(entry *models.UnifiedLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return p.conn.Publish("pz.logs."+entry.Server, data)
}

// Close drains the connection, letting in-flight messages complete.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
