// Package alerts defines the fire-and-forget alert sink the monitoring layer
// delivers to. Transport (email, chat, webhooks) lives outside this module.
package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/logger"
)

// Sink receives alert messages. Implementations must not block the caller for
// longer than a network timeout; delivery failures are the sink's problem.
type Sink interface {
	Send(message string, tags []string)
}

// New builds a typed alert record with a fresh ID.
func New(portfolioID string, alertType domain.AlertType, message string, payload map[string]float64) domain.Alert {
	return domain.Alert{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Type:        alertType,
		Message:     message,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
}

// LogSink writes alerts to the structured log. Used when no external sink is
// configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: logger.Component(log, "alerts")}
}

// Send implements Sink.
func (s *LogSink) Send(message string, tags []string) {
	s.log.Warn().Strs("tags", tags).Msg(message)
}

// CollectorSink retains sent messages in memory. Test double.
type CollectorSink struct {
	mu       sync.Mutex
	messages []string
	tags     [][]string
}

// NewCollectorSink creates an empty collector.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

// Send implements Sink.
func (s *CollectorSink) Send(message string, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	s.tags = append(s.tags, tags)
}

// Messages returns a copy of the collected messages.
func (s *CollectorSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

// Tags returns the tags of the i-th message.
func (s *CollectorSink) Tags(i int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.tags) {
		return nil
	}
	return s.tags[i]
}
