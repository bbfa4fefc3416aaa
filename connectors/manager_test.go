package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Handle_UnrecognizedPathIsNotFound(t *testing.T) {
	mgr, _ := buildTestManager(t, ConnectorDefinition{Key: "telegram"})
	req := httptest.NewRequest(http.MethodPost, "/not/a/connector/path", nil)
	result := mgr.Handle(httptest.NewRecorder(), req)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestManager_Handle_WebhookRoutesToHandler(t *testing.T) {
	var called bool
	def := ConnectorDefinition{
		Key: "github",
		Webhook: &WebhookDefinition{
			Handler: func(ctx context.Context, call WebhookCall) (any, error) {
				called = true
				return map[string]any{"received": true}, nil
			},
		},
	}
	mgr, adapter := buildTestManager(t, def)
	_, err := adapter.Save(context.Background(), "organization", "acme", "github",
		map[string]any{"webhook": map[string]any{"secret": "s3cr3t"}, "config": map[string]any{}}, true)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/connectors/github/webhook/s3cr3t", strings.NewReader(`{"hello":"world"}`))
	result := mgr.Handle(httptest.NewRecorder(), req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestManager_Handle_WebhookUnknownSecretIsUnauthorized(t *testing.T) {
	def := ConnectorDefinition{Key: "github", Webhook: &WebhookDefinition{
		Handler: func(ctx context.Context, call WebhookCall) (any, error) { return nil, nil },
	}}
	mgr, _ := buildTestManager(t, def)

	req := httptest.NewRequest(http.MethodPost, "/api/connectors/github/webhook/nope", strings.NewReader(`{}`))
	result := mgr.Handle(httptest.NewRecorder(), req)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
}

func TestManager_StartOAuth_PersistsStateAndEmitsEvent(t *testing.T) {
	def := ConnectorDefinition{
		Key: "slack",
		OAuth: &OAuthOptions{
			ClientID: "cid", ClientSecret: "secret",
			AuthURL: "https://slack.com/oauth/authorize", TokenURL: "https://slack.com/api/oauth.v2.access",
		},
	}
	mgr, _ := buildTestManager(t, def)

	var gotEvent Event
	mgr.bus.Subscribe(func(evt Event) {
		if evt.Type == EventOAuthStarted {
			gotEvent = evt
		}
	})

	rec := httptest.NewRecorder()
	authURL, err := mgr.StartOAuth(context.Background(), rec, "organization", "acme", "slack", nil, "/settings")
	require.NoError(t, err)
	assert.Contains(t, authURL, "slack.com/oauth/authorize")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	assert.NotEmpty(t, state)

	_, ok := mgr.states.states[state]
	assert.True(t, ok, "the state token returned in the auth URL must be persisted")

	assert.Equal(t, EventOAuthStarted, gotEvent.Type)
	assert.Equal(t, "slack", gotEvent.Connector)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "igniter_oauth_slack", cookies[0].Name)
}

func TestManager_StartOAuth_UnconfiguredConnector(t *testing.T) {
	mgr, _ := buildTestManager(t, ConnectorDefinition{Key: "telegram"})
	_, err := mgr.StartOAuth(context.Background(), nil, "organization", "acme", "telegram", nil, "")
	assert.ErrorIs(t, err, ErrOAuthNotConfigured)
}

func TestManager_HandleOAuthCallback_FullRoundTrip(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "bearer",
		})
	}))
	t.Cleanup(tokenServer.Close)

	def := ConnectorDefinition{
		Key: "slack",
		OAuth: &OAuthOptions{
			ClientID: "cid", ClientSecret: "secret",
			AuthURL: "https://slack.com/oauth/authorize", TokenURL: tokenServer.URL,
		},
	}
	mgr, adapter := buildTestManager(t, def)

	authURL, err := mgr.StartOAuth(context.Background(), nil, "organization", "acme", "slack", nil, "/settings")
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	callbackURL := "/api/connectors/slack/oauth/callback?state=" + state + "&code=abc123"
	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	rec := httptest.NewRecorder()

	result := mgr.Handle(rec, req)
	require.Equal(t, http.StatusFound, result.StatusCode)
	assert.Contains(t, result.RedirectURL, "status=success")
	assert.Contains(t, result.RedirectURL, "connector=slack")

	stored, err := adapter.Get(context.Background(), "organization", "acme", "slack")
	require.NoError(t, err)
	assert.Equal(t, "organization", stored.Scope)

	_, ok := mgr.states.states[state]
	assert.False(t, ok, "the state token must be single-use")
}

func TestManager_HandleOAuthCallback_InvalidState(t *testing.T) {
	def := ConnectorDefinition{
		Key: "slack",
		OAuth: &OAuthOptions{
			ClientID: "cid", AuthURL: "https://slack.com/oauth/authorize", TokenURL: "https://slack.com/api/oauth.v2.access",
		},
	}
	mgr, _ := buildTestManager(t, def)

	req := httptest.NewRequest(http.MethodGet, "/api/connectors/slack/oauth/callback?state=bogus&code=abc", nil)
	result := mgr.Handle(httptest.NewRecorder(), req)
	assert.Equal(t, http.StatusFound, result.StatusCode)
	assert.Contains(t, result.RedirectURL, "status=error")
}

func TestManager_HandleOAuthCallback_ProviderError(t *testing.T) {
	def := ConnectorDefinition{
		Key: "slack",
		OAuth: &OAuthOptions{
			ClientID: "cid", AuthURL: "https://slack.com/oauth/authorize", TokenURL: "https://slack.com/api/oauth.v2.access",
		},
	}
	mgr, _ := buildTestManager(t, def)

	req := httptest.NewRequest(http.MethodGet, "/api/connectors/slack/oauth/callback?error=access_denied", nil)
	result := mgr.Handle(httptest.NewRecorder(), req)
	assert.Equal(t, http.StatusFound, result.StatusCode)
	assert.Contains(t, result.RedirectURL, "status=error")
}
