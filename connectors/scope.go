package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ignitergo/connectors/pkg/logger"
)

// ScopedView binds a Manager to one (scope, identity) tenant bucket. All
// install/action/toggle operations a host performs on behalf of a tenant
// go through a ScopedView rather than the bare Manager.
type ScopedView struct {
	mgr      *Manager
	scope    string
	identity string
}

// Install creates or replaces a connector's config for this scope/identity.
// OAuth connectors never reach the save path here: install delegates to
// Manager.StartOAuth and returns its redirect, leaving the record to be
// written by the callback handler once tokens exist. w may be nil when the
// caller has no response to attach a recovery cookie to (non-OAuth
// connectors never need one); redirectURL is only consulted for OAuth
// connectors.
func (v *ScopedView) Install(ctx context.Context, w http.ResponseWriter, connectorKey string, config map[string]any, redirectURL string) (*InstallResult, error) {
	def, err := v.mgr.Get(connectorKey)
	if err != nil {
		return nil, err
	}

	if def.OAuth != nil {
		authURL, err := v.mgr.StartOAuth(ctx, w, v.scope, v.identity, connectorKey, nil, redirectURL)
		if err != nil {
			return nil, err
		}
		return &InstallResult{RedirectURL: authURL}, nil
	}

	if config == nil {
		if def.DefaultConfig == nil {
			return nil, ErrConnectorDefaultConfigRequired.WithMessage(connectorKey)
		}
		config = def.DefaultConfig
	}

	if def.ConfigSchema != nil {
		if err := def.ConfigSchema.Validate(config); err != nil {
			return nil, ErrConnectorConfigInvalid.WithInternal(err)
		}
	}
	if def.Hooks.OnValidate != nil {
		if err := def.Hooks.OnValidate(ctx, config); err != nil {
			return nil, ErrConnectorConfigInvalid.WithInternal(err)
		}
	}

	encrypted, err := encryptConfig(v.mgr.cipher, def, config)
	if err != nil {
		return nil, err
	}

	existing, _ := v.mgr.opts.Adapter.Get(ctx, v.scope, v.identity, connectorKey)

	value := map[string]any{"config": encrypted}
	if def.Webhook != nil {
		meta, err := v.ensureWebhookMetadata(existing)
		if err != nil {
			return nil, err
		}
		value["webhook"] = meta
	}

	saved, err := v.mgr.opts.Adapter.Save(ctx, v.scope, v.identity, connectorKey, value, true)
	if err != nil {
		return nil, ErrDatabaseFailed.WithInternal(err)
	}

	if def.Hooks.OnConnect != nil {
		if err := def.Hooks.OnConnect(ctx, saved); err != nil {
			v.mgr.log.Warn("connectors: OnConnect hook failed", logger.Scope("scope"), logger.Error(err))
		}
	}

	v.mgr.emit(newEvent(EventConnectorConnected, v.scope, v.identity, connectorKey, nil))
	return &InstallResult{Record: saved}, nil
}

// installOAuth is Install's OAuth counterpart, invoked from the callback
// handler with freshly exchanged tokens instead of a caller-supplied
// config map.
func (v *ScopedView) installOAuth(ctx context.Context, connectorKey string, tokens OAuthData) (*ConnectorRecord, error) {
	existing, _ := v.mgr.opts.Adapter.Get(ctx, v.scope, v.identity, connectorKey)

	oauthJSON, err := toMap(tokens)
	if err != nil {
		return nil, fmt.Errorf("connectors: marshal oauth tokens: %w", err)
	}
	if tok, _ := oauthJSON["accessToken"].(string); tok != "" {
		encryptedTok, err := v.mgr.cipher.Encrypt(tok)
		if err != nil {
			return nil, ErrEncryptFailed.WithInternal(err)
		}
		oauthJSON["accessToken"] = encryptedTok
	}
	if tok, _ := oauthJSON["refreshToken"].(string); tok != "" {
		encryptedTok, err := v.mgr.cipher.Encrypt(tok)
		if err != nil {
			return nil, ErrEncryptFailed.WithInternal(err)
		}
		oauthJSON["refreshToken"] = encryptedTok
	}

	value := map[string]any{"oauth": oauthJSON}

	def, err := v.mgr.Get(connectorKey)
	if err == nil && def.Webhook != nil {
		meta, werr := v.ensureWebhookMetadata(existing)
		if werr == nil {
			value["webhook"] = meta
		}
	}

	return v.mgr.opts.Adapter.Save(ctx, v.scope, v.identity, connectorKey, value, true)
}

// Disconnect removes a connector's record for this scope/identity.
func (v *ScopedView) Disconnect(ctx context.Context, connectorKey string) error {
	def, err := v.mgr.Get(connectorKey)
	if err != nil {
		return err
	}
	if err := v.mgr.opts.Adapter.Delete(ctx, v.scope, v.identity, connectorKey); err != nil {
		return ErrDatabaseFailed.WithInternal(err)
	}
	if def.Hooks.OnDisconnect != nil {
		if err := def.Hooks.OnDisconnect(ctx, v.scope, v.identity, connectorKey); err != nil {
			v.mgr.log.Warn("connectors: OnDisconnect hook failed", logger.Scope("scope"), logger.Error(err))
		}
	}
	v.mgr.emit(newEvent(EventConnectorDisconnected, v.scope, v.identity, connectorKey, nil))
	return nil
}

// Toggle flips a connector's Enabled flag without touching its stored
// config or tokens. When enabled is nil, the current value is read and
// flipped; otherwise the record is set to *enabled.
func (v *ScopedView) Toggle(ctx context.Context, connectorKey string, enabled bool) (*ConnectorRecord, error) {
	_, err := v.mgr.opts.Adapter.Get(ctx, v.scope, v.identity, connectorKey)
	if err != nil {
		return nil, ErrConnectorNotConnected.WithMessage(connectorKey)
	}

	saved, err := v.mgr.opts.Adapter.Update(ctx, v.scope, v.identity, connectorKey, RecordUpdate{Enabled: &enabled})
	if err != nil {
		return nil, ErrDatabaseFailed.WithInternal(err)
	}

	evt := EventConnectorDisabled
	if enabled {
		evt = EventConnectorEnabled
	}
	v.mgr.emit(newEvent(evt, v.scope, v.identity, connectorKey, map[string]any{"enabled": enabled}))
	return saved, nil
}

// Record returns the raw stored record (with ciphertext-formatted secrets
// untouched) for this scope/identity/connector.
func (v *ScopedView) Record(ctx context.Context, connectorKey string) (*ConnectorRecord, error) {
	record, err := v.mgr.opts.Adapter.Get(ctx, v.scope, v.identity, connectorKey)
	if err != nil {
		return nil, ErrConnectorNotConnected.WithMessage(connectorKey)
	}
	return record, nil
}

// Action prepares a callable action bound to this scope/identity.
func (v *ScopedView) Action(connectorKey, actionKey string) *ActionInvocation {
	return &ActionInvocation{view: v, connectorKey: connectorKey, actionKey: actionKey}
}

// ActionInvocation is the builder returned by ScopedView.Action; Call
// performs the actual dispatch.
type ActionInvocation struct {
	view         *ScopedView
	connectorKey string
	actionKey    string
}

// Call resolves the connector's stored config/tokens (refreshing an
// expiring OAuth token first, per spec.md's E3 scenario), validates input
// against the action's input schema, invokes the handler, and validates
// its output.
func (a *ActionInvocation) Call(ctx context.Context, input any) (any, error) {
	v := a.view
	def, err := v.mgr.Get(a.connectorKey)
	if err != nil {
		return nil, err
	}
	action, ok := def.Actions[a.actionKey]
	if !ok {
		return nil, ErrActionNotFound.WithMessage(fmt.Sprintf("%s.%s", a.connectorKey, a.actionKey))
	}

	record, err := v.mgr.opts.Adapter.Get(ctx, v.scope, v.identity, a.connectorKey)
	if err != nil {
		return nil, ErrConnectorNotConnected.WithMessage(a.connectorKey)
	}
	if !record.Enabled {
		return nil, ErrConnectorNotConnected.WithMessage(a.connectorKey + " is disabled")
	}

	if action.InputSchema != nil {
		if err := action.InputSchema.Validate(input); err != nil {
			return nil, ErrActionInputInvalid.WithInternal(err)
		}
	}

	config, oauthData, err := v.resolveCredentials(ctx, def, record)
	if err != nil {
		return nil, err
	}

	var hookCtx any
	if def.Hooks.OnContext != nil {
		hookCtx, err = def.Hooks.OnContext(ctx, config, v.scope, v.identity)
		if err != nil {
			return nil, err
		}
	}

	v.mgr.emit(newEvent(EventActionStarted, v.scope, v.identity, a.connectorKey, map[string]any{"action": a.actionKey}))
	start := now()

	result, err := action.Handler(ctx, ActionCall{
		Input:    input,
		Config:   config,
		Context:  hookCtx,
		OAuth:    oauthData,
		Scope:    v.scope,
		Identity: v.identity,
	})
	if err != nil {
		v.mgr.emit(errorEvent(v.scope, v.identity, a.connectorKey, err))
		v.mgr.emit(newEvent(EventActionFailed, v.scope, v.identity, a.connectorKey, map[string]any{
			"action": a.actionKey, "durationMs": time.Since(start).Milliseconds(),
		}))
		if def.Hooks.OnError != nil {
			def.Hooks.OnError(ctx, err, v.scope, v.identity, a.connectorKey)
		}
		return nil, ErrActionFailed.WithInternal(err)
	}

	if action.OutputSchema != nil {
		if err := action.OutputSchema.Validate(result); err != nil {
			return nil, ErrActionOutputInvalid.WithInternal(err)
		}
	}

	v.mgr.emit(newEvent(EventActionCompleted, v.scope, v.identity, a.connectorKey, map[string]any{
		"action": a.actionKey, "durationMs": time.Since(start).Milliseconds(),
	}))
	return result, nil
}

// resolveCredentials decrypts a record's config and, for OAuth connectors,
// refreshes an expiring access token before the handler runs.
func (v *ScopedView) resolveCredentials(ctx context.Context, def ConnectorDefinition, record *ConnectorRecord) (map[string]any, *OAuthData, error) {
	if def.OAuth == nil {
		config, err := v.mgr.decryptedConfig(record)
		if err != nil {
			return nil, nil, err
		}
		return config, nil, nil
	}

	oauthRaw, _ := record.Value["oauth"].(map[string]any)
	if oauthRaw == nil {
		return nil, nil, ErrConnectorNotConnected.WithMessage(record.Provider)
	}
	tokens, err := v.decryptOAuthData(oauthRaw)
	if err != nil {
		return nil, nil, err
	}

	bufferSec := def.OAuth.ExpiryBufferSec
	if isExpired(*tokens, bufferSec) {
		engine, ok := v.mgr.oauthEngines[record.Provider]
		if !ok {
			return nil, nil, ErrOAuthNotConfigured.WithMessage(record.Provider)
		}
		refreshed, err := engine.refresh(ctx, *tokens)
		if err != nil {
			v.mgr.emit(newEvent(EventOAuthFailed, v.scope, v.identity, record.Provider, nil))
			return nil, nil, ErrOAuthTokenExpired.WithInternal(err)
		}
		tokens = refreshed
		if err := v.persistRefreshedTokens(ctx, *record, *refreshed); err != nil {
			v.mgr.log.Warn("connectors: failed to persist refreshed token", logger.Scope("scope"), logger.Error(err))
		}
		v.mgr.emit(newEvent(EventOAuthRefreshed, v.scope, v.identity, record.Provider, nil))
	}

	return map[string]any{}, tokens, nil
}

func (v *ScopedView) decryptOAuthData(raw map[string]any) (*OAuthData, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var data OAuthData
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, err
	}
	if data.AccessToken != "" {
		pt, err := v.mgr.cipher.Decrypt(data.AccessToken)
		if err == nil {
			data.AccessToken = pt
		}
	}
	if data.RefreshToken != "" {
		pt, err := v.mgr.cipher.Decrypt(data.RefreshToken)
		if err == nil {
			data.RefreshToken = pt
		}
	}
	return &data, nil
}

func (v *ScopedView) persistRefreshedTokens(ctx context.Context, record ConnectorRecord, refreshed OAuthData) error {
	oauthJSON, err := toMap(refreshed)
	if err != nil {
		return err
	}
	if refreshed.AccessToken != "" {
		ct, err := v.mgr.cipher.Encrypt(refreshed.AccessToken)
		if err != nil {
			return err
		}
		oauthJSON["accessToken"] = ct
	}
	if refreshed.RefreshToken != "" {
		ct, err := v.mgr.cipher.Encrypt(refreshed.RefreshToken)
		if err != nil {
			return err
		}
		oauthJSON["refreshToken"] = ct
	}
	record.Value["oauth"] = oauthJSON
	_, err = v.mgr.opts.Adapter.Update(ctx, record.Scope, record.Identity, record.Provider, RecordUpdate{Value: record.Value})
	return err
}

func (v *ScopedView) ensureWebhookMetadata(existing *ConnectorRecord) (map[string]any, error) {
	if existing != nil {
		if meta, ok := existing.Value["webhook"].(map[string]any); ok {
			return meta, nil
		}
	}
	secret, err := generateWebhookSecret()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"secret":    secret,
		"createdAt": now(),
	}, nil
}

func toMap(v any) (map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}
