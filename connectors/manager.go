package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignitergo/connectors/pkg/crypto"
	"github.com/ignitergo/connectors/pkg/logger"
)

// Manager is the immutable, non-scoped entry point produced by
// Registry.Build. Most callers obtain a ScopedView via Manager.Scope and
// work against that instead; Manager itself exposes definition lookup,
// the framework-agnostic HTTP dispatch entry point, and OAuth flow
// initiation.
type Manager struct {
	opts         RegistryOptions
	scopes       map[string]ScopeDefinition
	connectors   map[string]ConnectorDefinition
	bus          *EventBus
	cipher       crypto.Cipher
	signingKey   []byte
	baseURL      string
	oauthEngines map[string]*oauthEngine
	states       *oauthStateStore
	stateSweeper *cron.Cron
	log          *slog.Logger
}

// ConnectorListEntry is one row of Manager.List / the result of
// Manager.Describe: the connector map's static shape plus, when asked for,
// a live connection count from the adapter.
type ConnectorListEntry struct {
	Key         string
	Type        string // "oauth" | "custom"
	Metadata    map[string]any
	Connections *int
}

// ListOptions filters and paginates Manager.List.
type ListOptions struct {
	WhereName        string // substring match against key or metadata["name"]
	Limit            int    // 0 means unbounded
	Offset           int
	CountConnections bool
}

// List returns the registered connector map as a stream of list entries,
// filtered by WhereName and paginated by Limit/Offset. Connections is
// populated from Adapter.CountConnections only when CountConnections is
// set, since it costs one adapter round trip per entry.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]ConnectorListEntry, error) {
	keys := make([]string, 0, len(m.connectors))
	for k := range m.connectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	needle := strings.ToLower(opts.WhereName)
	entries := make([]ConnectorListEntry, 0, len(keys))
	for _, key := range keys {
		def := m.connectors[key]
		if needle != "" && !matchesName(def, needle) {
			continue
		}
		entries = append(entries, m.toListEntry(def))
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			entries = nil
		} else {
			entries = entries[opts.Offset:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}

	if opts.CountConnections {
		for i := range entries {
			n, err := m.opts.Adapter.CountConnections(ctx, entries[i].Key)
			if err != nil {
				return nil, ErrDatabaseFailed.WithInternal(err)
			}
			entries[i].Connections = &n
		}
	}

	return entries, nil
}

func matchesName(def ConnectorDefinition, needle string) bool {
	if strings.Contains(strings.ToLower(def.Key), needle) {
		return true
	}
	if name, _ := def.Metadata["name"].(string); name != "" && strings.Contains(strings.ToLower(name), needle) {
		return true
	}
	return false
}

func (m *Manager) toListEntry(def ConnectorDefinition) ConnectorListEntry {
	kind := "custom"
	if def.OAuth != nil {
		kind = "oauth"
	}
	return ConnectorListEntry{Key: def.Key, Type: kind, Metadata: def.Metadata}
}

// Describe returns a single connector's list entry, or nil if connectorKey
// was never registered.
func (m *Manager) Describe(ctx context.Context, connectorKey string, countConnections bool) (*ConnectorListEntry, error) {
	def, ok := m.connectors[connectorKey]
	if !ok {
		return nil, nil
	}
	entry := m.toListEntry(def)
	if countConnections {
		n, err := m.opts.Adapter.CountConnections(ctx, connectorKey)
		if err != nil {
			return nil, ErrDatabaseFailed.WithInternal(err)
		}
		entry.Connections = &n
	}
	return &entry, nil
}

// Get returns the definition for connectorKey, or ErrConnectorNotFound.
func (m *Manager) Get(connectorKey string) (ConnectorDefinition, error) {
	def, ok := m.connectors[connectorKey]
	if !ok {
		return ConnectorDefinition{}, ErrConnectorNotFound.WithMessage(connectorKey)
	}
	return def, nil
}

// validateScope confirms scopeKey was registered and, if the scope is
// required, that identity is non-empty.
func (m *Manager) validateScope(scopeKey, identity string) error {
	def, ok := m.scopes[scopeKey]
	if !ok {
		return ErrScopeInvalid.WithMessage(scopeKey)
	}
	if def.Required && identity == "" {
		return ErrScopeIdentifierRequired.WithMessage(scopeKey)
	}
	return nil
}

// Scope binds the Manager to one (scopeKey, identity) tenant bucket,
// returning a ScopedView for install/action/toggle operations.
func (m *Manager) Scope(scopeKey, identity string) (*ScopedView, error) {
	if err := m.validateScope(scopeKey, identity); err != nil {
		return nil, err
	}
	return &ScopedView{mgr: m, scope: scopeKey, identity: identity}, nil
}

// Action prepares a callable action bound to the connector's defaultConfig
// rather than any stored, tenant-scoped record. It runs under scope
// "default" with no identity, and fails ErrConnectorDefaultConfigRequired
// if the connector was registered without a DefaultConfig.
func (m *Manager) Action(connectorKey, actionKey string) *ManagerActionInvocation {
	return &ManagerActionInvocation{mgr: m, connectorKey: connectorKey, actionKey: actionKey}
}

// ManagerActionInvocation is the builder returned by Manager.Action.
type ManagerActionInvocation struct {
	mgr          *Manager
	connectorKey string
	actionKey    string
}

const (
	defaultActionScope    = "default"
	defaultActionIdentity = ""
)

// Call invokes the action against the connector's defaultConfig, with no
// OAuth token resolution and nothing persisted.
func (a *ManagerActionInvocation) Call(ctx context.Context, input any) (any, error) {
	m := a.mgr
	def, err := m.Get(a.connectorKey)
	if err != nil {
		return nil, err
	}
	action, ok := def.Actions[a.actionKey]
	if !ok {
		return nil, ErrActionNotFound.WithMessage(fmt.Sprintf("%s.%s", a.connectorKey, a.actionKey))
	}
	if def.DefaultConfig == nil {
		return nil, ErrConnectorDefaultConfigRequired.WithMessage(a.connectorKey)
	}

	if action.InputSchema != nil {
		if err := action.InputSchema.Validate(input); err != nil {
			return nil, ErrActionInputInvalid.WithInternal(err)
		}
	}

	config := def.DefaultConfig
	var hookCtx any
	if def.Hooks.OnContext != nil {
		hookCtx, err = def.Hooks.OnContext(ctx, config, defaultActionScope, defaultActionIdentity)
		if err != nil {
			return nil, err
		}
	}

	m.emit(newEvent(EventActionStarted, defaultActionScope, defaultActionIdentity, a.connectorKey, map[string]any{"action": a.actionKey}))
	start := now()

	result, err := action.Handler(ctx, ActionCall{
		Input:    input,
		Config:   config,
		Context:  hookCtx,
		Scope:    defaultActionScope,
		Identity: defaultActionIdentity,
	})
	if err != nil {
		m.emit(errorEvent(defaultActionScope, defaultActionIdentity, a.connectorKey, err))
		m.emit(newEvent(EventActionFailed, defaultActionScope, defaultActionIdentity, a.connectorKey, map[string]any{
			"action": a.actionKey, "durationMs": time.Since(start).Milliseconds(),
		}))
		if def.Hooks.OnError != nil {
			def.Hooks.OnError(ctx, err, defaultActionScope, defaultActionIdentity, a.connectorKey)
		}
		return nil, ErrActionFailed.WithInternal(err)
	}

	if action.OutputSchema != nil {
		if err := action.OutputSchema.Validate(result); err != nil {
			return nil, ErrActionOutputInvalid.WithInternal(err)
		}
	}

	m.emit(newEvent(EventActionCompleted, defaultActionScope, defaultActionIdentity, a.connectorKey, map[string]any{
		"action": a.actionKey, "durationMs": time.Since(start).Milliseconds(),
	}))
	return result, nil
}

// Close stops background work (the pending-state sweeper) started by
// Build. Hosts should call it during shutdown.
func (m *Manager) Close() {
	if m.stateSweeper != nil {
		m.stateSweeper.Stop()
	}
}

// emit publishes evt on the bus and additionally fans it to each sink as
// igniter.connectors.<eventType> — the naming is applied by the default
// slog sink; custom sinks may choose their own naming from evt.Type.
func (m *Manager) emit(evt Event) {
	m.bus.Emit(evt)
}

// StartOAuth begins the authorization-code flow for connectorKey on behalf
// of (scope, identity), returning the URL the caller should redirect the
// end user to. It persists a PendingOAuthState and, if w is non-nil, also
// sets the igniter_oauth_<connector> recovery cookie, which carries
// redirectURL so the callback can send the browser back to it regardless
// of outcome. redirectURL defaults to "/" when empty.
func (m *Manager) StartOAuth(ctx context.Context, w http.ResponseWriter, scopeKey, identity, connectorKey string, custom map[string]any, redirectURL string) (string, error) {
	if redirectURL == "" {
		redirectURL = "/"
	}
	if err := m.validateScope(scopeKey, identity); err != nil {
		return "", err
	}
	def, err := m.Get(connectorKey)
	if err != nil {
		return "", err
	}
	if def.OAuth == nil {
		return "", ErrOAuthNotConfigured.WithMessage(connectorKey)
	}
	engine, ok := m.oauthEngines[connectorKey]
	if !ok {
		return "", ErrOAuthNotConfigured.WithMessage(connectorKey)
	}
	if engine.redirectURL == "" {
		baseURL, err := ResolveBaseURL(m.opts.BaseURL)
		if err != nil {
			return "", fmt.Errorf("connectors: cannot start oauth, no base URL resolved: %w", err)
		}
		m.baseURL = baseURL
		engine.redirectURL = BuildOAuthCallbackURL(baseURL, connectorKey)
	}

	token, err := m.states.put(PendingOAuthState{
		Scope:      scopeKey,
		Identity:   identity,
		Connector:  connectorKey,
		CustomData: custom,
	})
	if err != nil {
		return "", err
	}

	authURL, verifier := engine.generateAuthURL(token)
	if verifier != "" {
		m.states.mu.Lock()
		pending := m.states.states[token]
		pending.CodeVerifier = verifier
		m.states.states[token] = pending
		m.states.mu.Unlock()
	}

	if w != nil {
		if err := setOAuthCookie(w, m.signingKey, connectorKey, scopeKey, identity, token, redirectURL); err != nil {
			m.log.Warn("connectors: failed to set oauth recovery cookie", logger.Scope("manager"), logger.Error(err))
		}
	}

	m.emit(newEvent(EventOAuthStarted, scopeKey, identity, connectorKey, nil))

	return authURL, nil
}

// HandleResult is the outcome of Manager.Handle, letting the host decide
// how to render a response (redirect, JSON, etc.) without the core
// depending on any particular web framework.
type HandleResult struct {
	StatusCode  int
	RedirectURL string
	Body        any
}

// Handle dispatches an inbound HTTP request addressed at a webhook or
// OAuth callback URL built by BuildWebhookURL / BuildOAuthCallbackURL. It
// is the only point where the core touches http.ResponseWriter /
// *http.Request directly, and it never depends on a web framework: a host
// using Echo, chi, or net/http wires this into one handler.
func (m *Manager) Handle(w http.ResponseWriter, r *http.Request) HandleResult {
	parsed, err := ParseConnectorURL(r)
	if err != nil {
		return HandleResult{StatusCode: http.StatusNotFound, Body: errBody(err)}
	}

	switch parsed.Kind {
	case "oauth_callback":
		return m.handleOAuthCallback(w, r, parsed)
	case "webhook":
		return m.handleWebhook(r, parsed)
	default:
		return HandleResult{StatusCode: http.StatusNotFound}
	}
}

// handleOAuthCallback always resolves to a 302 toward the redirectURL
// recorded when the flow started, never a 5xx: every failure mode is
// reported to the end user via ?status=error&error=<msg> on that same
// redirect rather than a raw error response.
func (m *Manager) handleOAuthCallback(w http.ResponseWriter, r *http.Request, parsed *ParsedConnectorURL) HandleResult {
	ctx := r.Context()
	q := r.URL.Query()
	state := q.Get("state")
	code := q.Get("code")

	redirectURL := "/"
	if cookie, err := readOAuthCookie(r, m.signingKey, parsed.ConnectorKey); err == nil && cookie.RedirectURL != "" {
		redirectURL = cookie.RedirectURL
	}

	fail := func(scope, identity string, err error) HandleResult {
		clearOAuthCookie(w, parsed.ConnectorKey)
		m.emit(errorEvent(scope, identity, parsed.ConnectorKey, err))
		m.emit(newEvent(EventOAuthFailed, scope, identity, parsed.ConnectorKey, nil))
		return HandleResult{StatusCode: http.StatusFound, RedirectURL: appendOAuthStatus(redirectURL, parsed.ConnectorKey, err)}
	}

	if providerErr := q.Get("error"); providerErr != "" {
		return fail("", "", fmt.Errorf("oauth: provider returned error %q", providerErr))
	}

	pending, ok := m.states.takeIfValid(state)
	if !ok {
		return fail("", "", ErrOAuthStateInvalid)
	}

	engine, ok := m.oauthEngines[parsed.ConnectorKey]
	if !ok {
		return fail(pending.Scope, pending.Identity, ErrOAuthNotConfigured)
	}

	data, err := engine.exchangeCode(ctx, code, pending.CodeVerifier)
	if err != nil {
		return fail(pending.Scope, pending.Identity, err)
	}

	view, err := m.Scope(pending.Scope, pending.Identity)
	if err != nil {
		return fail(pending.Scope, pending.Identity, err)
	}

	record, err := view.installOAuth(ctx, parsed.ConnectorKey, *data)
	if err != nil {
		return fail(pending.Scope, pending.Identity, err)
	}

	clearOAuthCookie(w, parsed.ConnectorKey)
	m.emit(newEvent(EventOAuthCompleted, pending.Scope, pending.Identity, parsed.ConnectorKey, map[string]any{"recordId": record.ID}))
	m.emit(newEvent(EventConnectorConnected, pending.Scope, pending.Identity, parsed.ConnectorKey, nil))

	return HandleResult{StatusCode: http.StatusFound, RedirectURL: appendOAuthStatus(redirectURL, parsed.ConnectorKey, nil)}
}

// appendOAuthStatus adds ?status=success&connector=<k> or
// ?status=error&connector=<k>&error=<msg> to redirectURL, preserving
// whatever query parameters it already carries.
func appendOAuthStatus(redirectURL, connectorKey string, cause error) string {
	u, err := url.Parse(redirectURL)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("connector", connectorKey)
	if cause != nil {
		q.Set("status", "error")
		q.Set("error", cause.Error())
	} else {
		q.Set("status", "success")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *Manager) handleWebhook(r *http.Request, parsed *ParsedConnectorURL) HandleResult {
	ctx := r.Context()
	def, err := m.Get(parsed.ConnectorKey)
	if err != nil {
		return HandleResult{StatusCode: http.StatusNotFound, Body: errBody(err)}
	}
	if def.Webhook == nil {
		return HandleResult{StatusCode: http.StatusBadRequest, Body: errBody(ErrWebhookNotConfigured)}
	}

	record, err := m.findByWebhookSecret(ctx, parsed.ConnectorKey, parsed.Secret)
	if err != nil {
		return HandleResult{StatusCode: http.StatusUnauthorized, Body: errBody(ErrWebhookVerificationFailed)}
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return HandleResult{StatusCode: http.StatusBadRequest, Body: errBody(err)}
	}

	config, err := m.decryptedConfig(record)
	if err != nil {
		return HandleResult{StatusCode: http.StatusInternalServerError, Body: errBody(err)}
	}

	if def.Webhook.Verify != nil && !def.Webhook.Verify(r.Header, body, config) {
		m.recordWebhookResult(ctx, record, "error", "verification failed")
		m.emit(newEvent(EventWebhookFailed, record.Scope, record.Identity, parsed.ConnectorKey, map[string]any{"reason": "verification failed"}))
		return HandleResult{StatusCode: http.StatusUnauthorized, Body: errBody(ErrWebhookVerificationFailed)}
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return HandleResult{StatusCode: http.StatusBadRequest, Body: errBody(fmt.Errorf("connectors: invalid webhook JSON: %w", err))}
	}
	if def.Webhook.Schema != nil {
		if err := def.Webhook.Schema.Validate(payload); err != nil {
			m.recordWebhookResult(ctx, record, "error", "payload failed schema validation")
			m.emit(newEvent(EventWebhookFailed, record.Scope, record.Identity, parsed.ConnectorKey, map[string]any{"reason": "schema validation failed"}))
			return HandleResult{StatusCode: http.StatusBadRequest, Body: errBody(ErrWebhookValidationFailed.WithInternal(err))}
		}
	}

	var hookCtx any
	if def.Hooks.OnContext != nil {
		hookCtx, _ = def.Hooks.OnContext(ctx, config, record.Scope, record.Identity)
	}

	m.emit(newEvent(EventWebhookReceived, record.Scope, record.Identity, parsed.ConnectorKey, map[string]any{
		"method": r.Method, "path": r.URL.Path, "verified": def.Webhook.Verify != nil,
	}))

	result, err := def.Webhook.Handler(ctx, WebhookCall{
		Payload:  payload,
		Config:   config,
		Context:  hookCtx,
		Scope:    record.Scope,
		Identity: record.Identity,
		Headers:  r.Header,
	})
	if err != nil {
		m.recordWebhookResult(ctx, record, "error", err.Error())
		m.emit(errorEvent(record.Scope, record.Identity, parsed.ConnectorKey, err))
		m.emit(newEvent(EventWebhookFailed, record.Scope, record.Identity, parsed.ConnectorKey, nil))
		return HandleResult{StatusCode: http.StatusInternalServerError, Body: errBody(err)}
	}

	m.recordWebhookResult(ctx, record, "success", "")
	m.emit(newEvent(EventWebhookProcessed, record.Scope, record.Identity, parsed.ConnectorKey, nil))

	return HandleResult{StatusCode: http.StatusOK, Body: result}
}

func (m *Manager) decryptedConfig(record *ConnectorRecord) (map[string]any, error) {
	config, _ := record.Value["config"].(map[string]any)
	return decryptConfig(m.cipher, config)
}

func errBody(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
