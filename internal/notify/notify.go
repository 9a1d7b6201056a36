// Package notify publishes index rebuild events to NATS so downstream
// consumers (CI pipelines, cache invalidators) learn about fresh indexes
// without polling.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// RebuildEvent describes one completed index synthesis.
type RebuildEvent struct {
	RunID     string    `json:"run_id"`
	Packages  int       `json:"packages"`
	Wheels    int       `json:"wheels"`
	Skipped   int       `json:"skipped"`
	OutputDir string    `json:"output_dir"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes rebuild events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS. The caller owns the returned publisher and
// must Close it.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends one rebuild event. Failures are returned, not retried;
// rebuild notification is best-effort.
func (p *Publisher) Publish(event RebuildEvent) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal rebuild event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish rebuild event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
	}
}
