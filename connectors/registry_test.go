package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct{}

func (fakeAdapter) Get(ctx context.Context, scope, identity, provider string) (*ConnectorRecord, error) {
	return nil, ErrRecordNotFound
}
func (fakeAdapter) List(ctx context.Context, scope, identity string) ([]ConnectorRecord, error) {
	return nil, nil
}
func (fakeAdapter) Save(ctx context.Context, scope, identity, provider string, value map[string]any, enabled bool) (*ConnectorRecord, error) {
	return &ConnectorRecord{Scope: scope, Identity: identity, Provider: provider, Value: value, Enabled: enabled}, nil
}
func (fakeAdapter) Update(ctx context.Context, scope, identity, provider string, update RecordUpdate) (*ConnectorRecord, error) {
	return nil, ErrRecordNotFound
}
func (fakeAdapter) Delete(ctx context.Context, scope, identity, provider string) error { return nil }
func (fakeAdapter) Exists(ctx context.Context, scope, identity, provider string) (bool, error) {
	return false, nil
}
func (fakeAdapter) CountConnections(ctx context.Context, provider string) (int, error) {
	return 0, nil
}
func (fakeAdapter) FindByWebhookSecret(ctx context.Context, provider, secret string) (*ConnectorRecord, error) {
	return nil, ErrRecordNotFound
}
func (fakeAdapter) UpdateWebhookMetadata(ctx context.Context, provider, secret string, update WebhookMetadataUpdate) error {
	return nil
}

func TestRegistry_Build_RequiresAdapter(t *testing.T) {
	r := NewRegistry(RegistryOptions{EncryptionSecret: "12345678901234567890123456789012"})
	r.RegisterScope(ScopeDefinition{Key: "organization", Required: true})
	r.RegisterConnector(ConnectorDefinition{Key: "slack"})

	_, err := r.Build()
	assert.ErrorIs(t, err, ErrBuildConfigRequired)
}

func TestRegistry_Build_RequiresScopes(t *testing.T) {
	r := NewRegistry(RegistryOptions{Adapter: fakeAdapter{}, EncryptionSecret: "12345678901234567890123456789012"})
	r.RegisterConnector(ConnectorDefinition{Key: "slack"})

	_, err := r.Build()
	assert.ErrorIs(t, err, ErrBuildScopesRequired)
}

func TestRegistry_Build_RequiresConnectors(t *testing.T) {
	r := NewRegistry(RegistryOptions{Adapter: fakeAdapter{}, EncryptionSecret: "12345678901234567890123456789012"})
	r.RegisterScope(ScopeDefinition{Key: "organization", Required: true})

	_, err := r.Build()
	assert.ErrorIs(t, err, ErrBuildConnectorsRequired)
}

func TestRegistry_Build_RequiresEncryptionSecretOrCipher(t *testing.T) {
	r := NewRegistry(RegistryOptions{Adapter: fakeAdapter{}})
	r.RegisterScope(ScopeDefinition{Key: "organization", Required: true})
	r.RegisterConnector(ConnectorDefinition{Key: "slack"})

	_, err := r.Build()
	assert.ErrorIs(t, err, ErrEncryptionSecretRequired)
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry(RegistryOptions{
		Adapter:          fakeAdapter{},
		EncryptionSecret: "12345678901234567890123456789012",
		BaseURL:          "https://host.example.com",
	})
	r.RegisterScope(ScopeDefinition{Key: "organization", Required: true})
	r.RegisterConnector(ConnectorDefinition{Key: "slack"})

	mgr, err := r.Build()
	require.NoError(t, err)
	require.NotNil(t, mgr)
	defer mgr.Close()

	entries, err := mgr.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	assert.Contains(t, keys, "slack")
}

func TestRegistry_Build_BuildsOAuthEngineForOAuthConnectors(t *testing.T) {
	r := NewRegistry(RegistryOptions{
		Adapter:          fakeAdapter{},
		EncryptionSecret: "12345678901234567890123456789012",
		BaseURL:          "https://host.example.com",
	})
	r.RegisterScope(ScopeDefinition{Key: "organization", Required: true})
	r.RegisterConnector(ConnectorDefinition{
		Key:   "slack",
		OAuth: &OAuthOptions{ClientID: "cid", AuthURL: "https://slack.com/oauth/authorize", TokenURL: "https://slack.com/api/oauth.v2.access"},
	})

	mgr, err := r.Build()
	require.NoError(t, err)
	defer mgr.Close()

	assert.Contains(t, mgr.oauthEngines, "slack")
}
