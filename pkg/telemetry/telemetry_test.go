package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ignitergo/connectors/connectors"
)

func TestSlogSink_EmitDoesNotPanic(t *testing.T) {
	sink := NewSlogSink(nil)
	assert.NotPanics(t, func() {
		sink.Emit(connectors.Event{Type: connectors.EventConnectorConnected, Connector: "slack"})
		sink.Emit(connectors.Event{Type: connectors.EventErrorOccurred, Connector: "slack", Err: errors.New("boom")})
	})
}

func TestPrometheusSink_CountsEventsAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.Emit(connectors.Event{Type: connectors.EventConnectorConnected, Connector: "slack"})
	sink.Emit(connectors.Event{Type: connectors.EventErrorOccurred, Connector: "slack", Err: errors.New("boom")})

	families, err := reg.Gather()
	require.NoError(t, err)

	var events, errs float64
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch fam.GetName() {
			case "igniter_connectors_events_total":
				events += m.GetCounter().GetValue()
			case "igniter_connectors_errors_total":
				errs += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), events)
	assert.Equal(t, float64(1), errs)
}

func TestZapSink_EmitDoesNotPanic(t *testing.T) {
	sink := NewZapSink(zaptest.NewLogger(t))
	assert.NotPanics(t, func() {
		sink.Emit(connectors.Event{Type: connectors.EventConnectorConnected, Connector: "github"})
		sink.Emit(connectors.Event{Type: connectors.EventErrorOccurred, Connector: "github", Err: errors.New("boom")})
	})
}
