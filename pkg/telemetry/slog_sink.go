// Package telemetry provides connectors.TelemetrySink implementations: a
// default slog-based sink, and optional Prometheus and zap sinks a host
// can register in addition to or instead of it.
package telemetry

import (
	"log/slog"

	"github.com/ignitergo/connectors/connectors"
	"github.com/ignitergo/connectors/pkg/logger"
)

// SlogSink emits every event as a structured log line under the
// igniter.connectors.<eventType> name.
type SlogSink struct {
	log *slog.Logger
}

// NewSlogSink wraps log (or a freshly built logger.NewLogger() if nil) as a
// connectors.TelemetrySink.
func NewSlogSink(log *slog.Logger) *SlogSink {
	if log == nil {
		log = logger.NewLogger()
	}
	return &SlogSink{log: log}
}

func (s *SlogSink) Emit(evt connectors.Event) {
	attrs := []any{
		logger.Scope("telemetry"),
		slog.String("connector", evt.Connector),
		slog.String("scope", evt.Scope),
		slog.String("identity", evt.Identity),
	}
	name := "igniter.connectors." + string(evt.Type)

	if evt.Err != nil {
		s.log.Error(name, append(attrs, logger.Error(evt.Err))...)
		return
	}
	s.log.Info(name, attrs...)
}
