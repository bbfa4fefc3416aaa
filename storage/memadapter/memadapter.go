// Package memadapter implements connectors.Adapter entirely in memory. It
// is the default used by tests and by the demo host when no external
// database is configured; every record is lost on process exit.
package memadapter

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignitergo/connectors/connectors"
)

type key struct {
	scope, identity, provider string
}

// Adapter is a mutex-guarded map-backed connectors.Adapter.
type Adapter struct {
	mu      sync.RWMutex
	records map[key]connectors.ConnectorRecord
}

// New returns an empty Adapter.
func New() *Adapter {
	return &Adapter{records: make(map[key]connectors.ConnectorRecord)}
}

func (a *Adapter) Get(_ context.Context, scope, identity, provider string) (*connectors.ConnectorRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.records[key{scope, identity, provider}]
	if !ok {
		return nil, connectors.ErrRecordNotFound
	}
	cp := cloneRecord(rec)
	return &cp, nil
}

func (a *Adapter) List(_ context.Context, scope, identity string) ([]connectors.ConnectorRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []connectors.ConnectorRecord
	for k, rec := range a.records {
		if k.scope == scope && k.identity == identity {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (a *Adapter) Save(_ context.Context, scope, identity, provider string, value map[string]any, enabled bool) (*connectors.ConnectorRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{scope, identity, provider}
	existing, ok := a.records[k]

	record := connectors.ConnectorRecord{
		ID:        existing.ID,
		Scope:     scope,
		Identity:  identity,
		Provider:  provider,
		Value:     value,
		Enabled:   enabled,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if !ok {
		record.ID = uuid.NewString()
		record.CreatedAt = record.UpdatedAt
	}

	a.records[k] = record
	cp := cloneRecord(record)
	return &cp, nil
}

func (a *Adapter) Update(_ context.Context, scope, identity, provider string, update connectors.RecordUpdate) (*connectors.ConnectorRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{scope, identity, provider}
	existing, ok := a.records[k]
	if !ok {
		return nil, connectors.ErrRecordNotFound
	}

	if update.Value != nil {
		existing.Value = update.Value
	}
	if update.Enabled != nil {
		existing.Enabled = *update.Enabled
	}
	existing.UpdatedAt = time.Now()

	a.records[k] = existing
	cp := cloneRecord(existing)
	return &cp, nil
}

func (a *Adapter) Delete(_ context.Context, scope, identity, provider string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{scope, identity, provider}
	if _, ok := a.records[k]; !ok {
		return connectors.ErrRecordNotFound
	}
	delete(a.records, k)
	return nil
}

func (a *Adapter) Exists(_ context.Context, scope, identity, provider string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.records[key{scope, identity, provider}]
	return ok, nil
}

func (a *Adapter) CountConnections(_ context.Context, provider string) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for k := range a.records {
		if k.provider == provider {
			n++
		}
	}
	return n, nil
}

func (a *Adapter) FindByWebhookSecret(_ context.Context, provider, secret string) (*connectors.ConnectorRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for k, rec := range a.records {
		if k.provider != provider {
			continue
		}
		meta, _ := rec.Value["webhook"].(map[string]any)
		if meta == nil {
			continue
		}
		if s, _ := meta["secret"].(string); s == secret {
			cp := cloneRecord(rec)
			return &cp, nil
		}
	}
	return nil, connectors.ErrRecordNotFound
}

func (a *Adapter) UpdateWebhookMetadata(_ context.Context, provider, secret string, update connectors.WebhookMetadataUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, rec := range a.records {
		if k.provider != provider {
			continue
		}
		meta, _ := rec.Value["webhook"].(map[string]any)
		if meta == nil {
			continue
		}
		if s, _ := meta["secret"].(string); s != secret {
			continue
		}
		meta["lastEventAt"] = update.LastEventAt
		meta["lastEventResult"] = update.LastEventResult
		if update.Error != "" {
			meta["error"] = update.Error
		} else {
			delete(meta, "error")
		}
		rec.Value["webhook"] = meta
		rec.UpdatedAt = time.Now()
		a.records[k] = rec
		return nil
	}
	return connectors.ErrRecordNotFound
}

func cloneRecord(rec connectors.ConnectorRecord) connectors.ConnectorRecord {
	valueCopy := make(map[string]any, len(rec.Value))
	for k, v := range rec.Value {
		valueCopy[k] = v
	}
	rec.Value = valueCopy
	return rec
}
