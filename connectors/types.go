// Package connectors implements the multi-tenant third-party integration
// manager: connector registration, scoped install/action/toggle, the OAuth
// state machine, webhook routing and verification, and the field
// encryption pipeline that sits between all of them and the storage
// adapter.
package connectors

import (
	"context"
	"time"
)

// ScopeDefinition describes one tenant-bucket kind a host registers, e.g.
// {Key: "organization", Required: true}.
type ScopeDefinition struct {
	Key      string
	Required bool
}

// ConnectorRecord is the persisted row addressed by (Scope, Identity,
// Provider). Value holds a mix of clear and ciphertext-formatted strings
// depending on the connector's encryption policy.
type ConnectorRecord struct {
	ID        string
	Scope     string
	Identity  string
	Provider  string
	Value     map[string]any
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OAuthData lives under Value["oauth"] on records for OAuth connectors.
type OAuthData struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    *int64    `json:"expiresAt,omitempty"` // unix seconds
	ExpiresIn    *int64    `json:"expiresIn,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`
	UserInfo     *UserInfo `json:"userInfo,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// UserInfo is the normalized subset of a provider's user-info response.
type UserInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// WebhookMetadata lives under Value["webhook"] for webhook-enabled records.
type WebhookMetadata struct {
	Secret          string    `json:"secret"`
	CreatedAt       time.Time `json:"createdAt"`
	LastEventAt     time.Time `json:"lastEventAt,omitempty"`
	LastEventResult string    `json:"lastEventResult,omitempty"` // "success" | "error"
	Error           string    `json:"error,omitempty"`
}

// ActionDefinition is one named, schema-validated operation a connector
// exposes.
type ActionDefinition struct {
	Description  string
	InputSchema  Validator
	OutputSchema Validator
	Handler      ActionHandler
}

// ActionHandler receives the per-invocation context and returns an
// arbitrary JSON-serializable result or an error.
type ActionHandler func(ctx context.Context, call ActionCall) (any, error)

// ActionCall is the argument bundle passed to an ActionHandler.
type ActionCall struct {
	Input    any
	Config   map[string]any
	Context  any
	OAuth    *OAuthData
	Scope    string
	Identity string
}

// WebhookDefinition configures inbound webhook handling for a connector.
type WebhookDefinition struct {
	Schema  Validator
	Handler WebhookHandler
	Verify  WebhookVerifier // optional
}

// WebhookHandler processes a verified, schema-validated webhook payload.
type WebhookHandler func(ctx context.Context, call WebhookCall) (any, error)

// WebhookCall is the argument bundle passed to a WebhookHandler.
type WebhookCall struct {
	Payload  any
	Config   map[string]any
	Context  any
	Scope    string
	Identity string
	Headers  map[string][]string
}

// WebhookVerifier inspects the raw request and decrypted config and
// reports whether the request is authentic.
type WebhookVerifier func(headers map[string][]string, body []byte, config map[string]any) bool

// Hooks are lifecycle callbacks a connector may register. Hook failures
// surface to the caller (they are not fault-isolated, unlike subscribers).
type Hooks struct {
	OnContext    func(ctx context.Context, config map[string]any, scope, identity string) (any, error)
	OnValidate   func(ctx context.Context, config map[string]any) error
	OnConnect    func(ctx context.Context, record *ConnectorRecord) error
	OnDisconnect func(ctx context.Context, scope, identity, provider string) error
	OnError      func(ctx context.Context, err error, scope, identity, provider string)
}

// ConnectorDefinition is the in-memory, immutable description of a
// registered connector.
type ConnectorDefinition struct {
	Key            string
	ConfigSchema   Validator
	MetadataSchema Validator
	Metadata       map[string]any
	DefaultConfig  map[string]any
	OAuth          *OAuthOptions
	Webhook        *WebhookDefinition
	Actions        map[string]ActionDefinition
	Hooks          Hooks

	// EncryptedFields lists the dot-path keys within a config map that must
	// be stored ciphertext-formatted. If empty, every string-valued leaf
	// whose key matches a sensitive-looking name (see maskSensitiveKey) is
	// encrypted by default.
	EncryptedFields []string
}

// OAuthOptions configures one connector's OAuth flow.
type OAuthOptions struct {
	ClientID        string
	ClientSecret    string
	AuthURL         string
	TokenURL        string
	UserInfoURL     string // optional
	Scopes          []string
	PKCE            bool
	ExtraAuthParams map[string]string

	// ParseTokenResponse overrides the built-in multi-alias auto-detection.
	ParseTokenResponse func(body []byte) (*OAuthData, error)
	// ParseUserInfo overrides the built-in multi-alias auto-detection.
	ParseUserInfo func(body []byte) (*UserInfo, error)

	ExpiryBufferSec int64 // default 60
}

// PendingOAuthState is the in-memory record created by GenerateAuthURL and
// consumed exactly once by a matching callback.
type PendingOAuthState struct {
	Scope        string
	Identity     string
	Connector    string
	CodeVerifier string
	CreatedAt    time.Time
	CustomData   map[string]any
}

// InstallResult is the outcome of ScopedView.Install. Exactly one of Record
// or RedirectURL is set: OAuth connectors delegate to Manager.StartOAuth and
// return a RedirectURL with no record written yet; non-OAuth connectors
// persist immediately and return Record.
type InstallResult struct {
	Record      *ConnectorRecord
	RedirectURL string
}

// RecordUpdate describes a partial update to an existing ConnectorRecord.
// A nil Value or Enabled leaves that field unchanged.
type RecordUpdate struct {
	Value   map[string]any
	Enabled *bool
}

// WebhookMetadataUpdate is the bookkeeping written after a webhook delivery
// attempt, addressed by (provider, secret) rather than by record so the
// adapter need not be handed a decrypted record to record the outcome.
type WebhookMetadataUpdate struct {
	LastEventAt     time.Time
	LastEventResult string // "success" | "error"
	Error           string
}
