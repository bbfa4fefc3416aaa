package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignitergo/connectors/pkg/crypto"
)

type memAdapterForTest struct {
	records map[string]ConnectorRecord
}

func newMemAdapterForTest() *memAdapterForTest {
	return &memAdapterForTest{records: map[string]ConnectorRecord{}}
}

func (a *memAdapterForTest) keyOf(scope, identity, provider string) string {
	return scope + "/" + identity + "/" + provider
}

func (a *memAdapterForTest) Get(_ context.Context, scope, identity, provider string) (*ConnectorRecord, error) {
	rec, ok := a.records[a.keyOf(scope, identity, provider)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := rec
	return &cp, nil
}

func (a *memAdapterForTest) List(_ context.Context, scope, identity string) ([]ConnectorRecord, error) {
	var out []ConnectorRecord
	for _, rec := range a.records {
		if rec.Scope == scope && rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (a *memAdapterForTest) Save(_ context.Context, scope, identity, provider string, value map[string]any, enabled bool) (*ConnectorRecord, error) {
	k := a.keyOf(scope, identity, provider)
	existing, ok := a.records[k]

	record := ConnectorRecord{
		ID: existing.ID, Scope: scope, Identity: identity, Provider: provider,
		Value: value, Enabled: enabled, CreatedAt: existing.CreatedAt, UpdatedAt: time.Now(),
	}
	if !ok {
		record.ID = a.keyOf(scope, identity, provider)
		record.CreatedAt = record.UpdatedAt
	}
	a.records[k] = record
	cp := record
	return &cp, nil
}

func (a *memAdapterForTest) Update(_ context.Context, scope, identity, provider string, update RecordUpdate) (*ConnectorRecord, error) {
	k := a.keyOf(scope, identity, provider)
	existing, ok := a.records[k]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if update.Value != nil {
		existing.Value = update.Value
	}
	if update.Enabled != nil {
		existing.Enabled = *update.Enabled
	}
	existing.UpdatedAt = time.Now()
	a.records[k] = existing
	cp := existing
	return &cp, nil
}

func (a *memAdapterForTest) Delete(_ context.Context, scope, identity, provider string) error {
	k := a.keyOf(scope, identity, provider)
	if _, ok := a.records[k]; !ok {
		return ErrRecordNotFound
	}
	delete(a.records, k)
	return nil
}

func (a *memAdapterForTest) Exists(_ context.Context, scope, identity, provider string) (bool, error) {
	_, ok := a.records[a.keyOf(scope, identity, provider)]
	return ok, nil
}

func (a *memAdapterForTest) CountConnections(_ context.Context, provider string) (int, error) {
	n := 0
	for _, rec := range a.records {
		if rec.Provider == provider {
			n++
		}
	}
	return n, nil
}

func (a *memAdapterForTest) FindByWebhookSecret(_ context.Context, provider, secret string) (*ConnectorRecord, error) {
	for _, rec := range a.records {
		if rec.Provider != provider {
			continue
		}
		meta, _ := rec.Value["webhook"].(map[string]any)
		if meta == nil {
			continue
		}
		if s, _ := meta["secret"].(string); s == secret {
			cp := rec
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (a *memAdapterForTest) UpdateWebhookMetadata(_ context.Context, provider, secret string, update WebhookMetadataUpdate) error {
	for k, rec := range a.records {
		if rec.Provider != provider {
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
		a.records[k] = rec
		return nil
	}
	return ErrRecordNotFound
}

func buildTestManager(t *testing.T, def ConnectorDefinition) (*Manager, *memAdapterForTest) {
	t.Helper()
	adapter := newMemAdapterForTest()
	r := NewRegistry(RegistryOptions{
		Adapter:          adapter,
		EncryptionSecret: "12345678901234567890123456789012",
		BaseURL:          "https://host.example.com",
	})
	r.RegisterScope(ScopeDefinition{Key: "organization", Required: true})
	r.RegisterConnector(def)
	mgr, err := r.Build()
	require.NoError(t, err)
	t.Cleanup(mgr.Close)
	return mgr, adapter
}

func TestScopedView_InstallAndAction(t *testing.T) {
	var gotConfig map[string]any
	def := ConnectorDefinition{
		Key:             "telegram",
		EncryptedFields: []string{"botToken"},
		Actions: map[string]ActionDefinition{
			"sendMessage": {
				Handler: func(ctx context.Context, call ActionCall) (any, error) {
					gotConfig = call.Config
					return map[string]any{"ok": true}, nil
				},
			},
		},
	}
	mgr, adapter := buildTestManager(t, def)

	view, err := mgr.Scope("organization", "acme")
	require.NoError(t, err)

	result, err := view.Install(context.Background(), nil, "telegram", map[string]any{"botToken": "123:ABC"}, "")
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	require.NotEmpty(t, result.Record.ID)

	stored, _ := adapter.Get(context.Background(), "organization", "acme", "telegram")
	config := stored.Value["config"].(map[string]any)
	assert.True(t, crypto.IsEncrypted(config["botToken"].(string)), "a declared encrypted field must be stored ciphertext-formatted")

	result, err := view.Action("telegram", "sendMessage").Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, result)
	assert.Equal(t, "123:ABC", gotConfig["botToken"], "the action handler must receive the decrypted config")
}

func TestScopedView_Action_NotConnected(t *testing.T) {
	def := ConnectorDefinition{
		Key: "telegram",
		Actions: map[string]ActionDefinition{
			"sendMessage": {Handler: func(ctx context.Context, call ActionCall) (any, error) { return nil, nil }},
		},
	}
	mgr, _ := buildTestManager(t, def)
	view, err := mgr.Scope("organization", "acme")
	require.NoError(t, err)

	_, err = view.Action("telegram", "sendMessage").Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConnectorNotConnected)
}

func TestScopedView_Action_UnknownAction(t *testing.T) {
	def := ConnectorDefinition{Key: "telegram", Actions: map[string]ActionDefinition{}}
	mgr, _ := buildTestManager(t, def)
	view, err := mgr.Scope("organization", "acme")
	require.NoError(t, err)
	_, err = view.Install(context.Background(), nil, "telegram", map[string]any{}, "")
	require.NoError(t, err)

	_, err = view.Action("telegram", "doesNotExist").Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestScopedView_DisconnectThenToggleFails(t *testing.T) {
	def := ConnectorDefinition{Key: "telegram"}
	mgr, _ := buildTestManager(t, def)
	view, err := mgr.Scope("organization", "acme")
	require.NoError(t, err)

	_, err = view.Install(context.Background(), nil, "telegram", map[string]any{}, "")
	require.NoError(t, err)

	require.NoError(t, view.Disconnect(context.Background(), "telegram"))

	_, err = view.Toggle(context.Background(), "telegram", false)
	assert.Error(t, err)
}

func TestScopedView_Toggle_DisabledConnectorRejectsActionCalls(t *testing.T) {
	def := ConnectorDefinition{
		Key: "telegram",
		Actions: map[string]ActionDefinition{
			"sendMessage": {Handler: func(ctx context.Context, call ActionCall) (any, error) { return "ok", nil }},
		},
	}
	mgr, _ := buildTestManager(t, def)
	view, err := mgr.Scope("organization", "acme")
	require.NoError(t, err)

	_, err = view.Install(context.Background(), nil, "telegram", map[string]any{}, "")
	require.NoError(t, err)

	_, err = view.Toggle(context.Background(), "telegram", false)
	require.NoError(t, err)

	_, err = view.Action("telegram", "sendMessage").Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConnectorNotConnected)
}

func TestManager_Scope_InvalidScopeKey(t *testing.T) {
	mgr, _ := buildTestManager(t, ConnectorDefinition{Key: "telegram"})
	_, err := mgr.Scope("unknown-scope", "acme")
	assert.ErrorIs(t, err, ErrScopeInvalid)
}

func TestManager_Scope_RequiredIdentityMissing(t *testing.T) {
	mgr, _ := buildTestManager(t, ConnectorDefinition{Key: "telegram"})
	_, err := mgr.Scope("organization", "")
	assert.ErrorIs(t, err, ErrScopeIdentifierRequired)
}
