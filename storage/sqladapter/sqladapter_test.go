package sqladapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowToRecord_RoundTripsValue(t *testing.T) {
	now := time.Now()
	row := connectorRow{
		ID: "rec-1", Scope: "organization", Identity: "acme", Provider: "slack",
		Value: []byte(`{"config":{"botToken":"abc"}}`), Enabled: true,
		CreatedAt: now, UpdatedAt: now,
	}

	record, err := rowToRecord(row)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, "slack", record.Provider)
	assert.True(t, record.Enabled)
	config := record.Value["config"].(map[string]any)
	assert.Equal(t, "abc", config["botToken"])
}

func TestRowToRecord_InvalidJSON(t *testing.T) {
	_, err := rowToRecord(connectorRow{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestRowsToRecords(t *testing.T) {
	rows := []connectorRow{
		{ID: "a", Value: []byte(`{}`)},
		{ID: "b", Value: []byte(`{}`)},
	}
	records, err := rowsToRecords(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}

func TestRowsToRecords_PropagatesError(t *testing.T) {
	rows := []connectorRow{{ID: "a", Value: []byte("bad")}}
	_, err := rowsToRecords(rows)
	assert.Error(t, err)
}
