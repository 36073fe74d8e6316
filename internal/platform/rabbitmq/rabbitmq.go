// Package rabbitmq opens the AMQP channel the audit sink publishes on.
package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config describes the broker and exchange for audit entries.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Enabled reports whether a broker URL is configured.
func (c Config) Enabled() bool {
	return c.URL != "" && c.Exchange != ""
}

// Connection owns an AMQP connection and the channel opened on it.
type Connection struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// Dial connects and declares a durable topic exchange.
func Dial(cfg Config) (*Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Connection{Conn: conn, Channel: ch}, nil
}

func (c *Connection) Close() error {
	if err := c.Channel.Close(); err != nil {
		_ = c.Conn.Close()
		return err
	}
	return c.Conn.Close()
}
