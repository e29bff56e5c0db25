package ingest

import (
	"context"

	"github.com/workpulse-hris/attendance-worker/internal/observability"
	"github.com/workpulse-hris/attendance-worker/internal/parser"
	"go.uber.org/zap"
)

// Handler dispatches one inbound transport message to the attendance or
// heartbeat path. Recognition events are identified by topic; heartbeats
// carry no fixed topic and are matched by payload shape.
type Handler struct {
	parser    *parser.Parser
	writer    *Writer
	heartbeat *HeartbeatProcessor
	logger    *zap.Logger
}

// NewHandler creates the ingest dispatch handler
func NewHandler(p *parser.Parser, writer *Writer, heartbeat *HeartbeatProcessor, logger *zap.Logger) *Handler {
	return &Handler{parser: p, writer: writer, heartbeat: heartbeat, logger: logger}
}

// Handle processes one message. Malformed or unresolvable messages are
// logged and absorbed here, never returned as errors: a bad device
// message must not interrupt ingestion of the ones behind it. The error
// return is reserved for infrastructure failures worth a DLQ retry, of
// which this path currently has none.
func (h *Handler) Handle(ctx context.Context, topic string, payload []byte) error {
	if _, ok := parser.DeviceSerialFromTopic(topic); ok {
		observability.MessagesReceived.WithLabelValues("recognition").Inc()
		event, ok := h.parser.Parse(topic, payload)
		if !ok {
			observability.MessagesRejected.WithLabelValues("unparsable").Inc()
			return nil
		}
		if !h.writer.Write(ctx, event) {
			observability.MessagesRejected.WithLabelValues("unresolved").Inc()
		}
		return nil
	}

	observability.MessagesReceived.WithLabelValues("heartbeat").Inc()
	if !h.heartbeat.Process(ctx, payload) {
		observability.MessagesRejected.WithLabelValues("heartbeat").Inc()
	}
	return nil
}
