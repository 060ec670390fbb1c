package validator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
)

// SecuritySink receives advisory security telemetry. Emit must not block.
type SecuritySink interface {
	Emit(ctx context.Context, event models.SecurityEvent)
}

type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Emit(_ context.Context, event models.SecurityEvent) {
	s.logger.Warn("security event", map[string]interface{}{
		"event":     event.Kind,
		"sessionId": event.SessionID,
		"details":   event.Details,
		"timestamp": event.Timestamp.Format(time.RFC3339),
	})
}

// EventPublisher is satisfied by aws.SNSClient.
type EventPublisher interface {
	PublishJSON(ctx context.Context, subject, eventKind, body string) (string, error)
}

// SNSSink forwards events to a topic from a background goroutine. Events are
// dropped when the buffer is full.
type SNSSink struct {
	publisher EventPublisher
	logger    logger.Logger
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	events chan models.SecurityEvent
	done   chan struct{}
}

func NewSNSSink(publisher EventPublisher, bufferSize int, log logger.Logger) *SNSSink {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	s := &SNSSink{
		publisher: publisher,
		logger:    log,
		timeout:   5 * time.Second,
		events:    make(chan models.SecurityEvent, bufferSize),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *SNSSink) Emit(_ context.Context, event models.SecurityEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.logger.Warn("security event dropped, publisher backlog full", map[string]interface{}{
			"event": event.Kind,
		})
	}
}

// Close drains queued events and stops the publisher goroutine.
func (s *SNSSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *SNSSink) run() {
	defer close(s.done)
	for event := range s.events {
		body, err := json.Marshal(event)
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		_, err = s.publisher.PublishJSON(ctx, "Procurement assistant security event", event.Kind, string(body))
		cancel()
		if err != nil {
			s.logger.Error("failed to publish security event", map[string]interface{}{
				"event": event.Kind,
				"error": err.Error(),
			})
		}
	}
}

// MultiSink fans an event out to several sinks.
type MultiSink []SecuritySink

func (m MultiSink) Emit(ctx context.Context, event models.SecurityEvent) {
	for _, sink := range m {
		sink.Emit(ctx, event)
	}
}
