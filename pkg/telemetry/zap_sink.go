package telemetry

import (
	"go.uber.org/zap"

	"github.com/ignitergo/connectors/connectors"
)

// ZapSink adapts the bus to a zap.Logger, for hosts whose ambient logging
// stack is zap rather than slog.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps log, or zap.NewProduction()'s result if log is nil.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log, _ = zap.NewProduction()
	}
	return &ZapSink{log: log}
}

func (s *ZapSink) Emit(evt connectors.Event) {
	fields := []zap.Field{
		zap.String("connector", evt.Connector),
		zap.String("scope", evt.Scope),
		zap.String("identity", evt.Identity),
	}
	name := "igniter.connectors." + string(evt.Type)

	if evt.Err != nil {
		s.log.Error(name, append(fields, zap.Error(evt.Err))...)
		return
	}
	s.log.Info(name, fields...)
}
