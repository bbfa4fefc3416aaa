package connectors

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ignitergo/connectors/pkg/crypto"
	"github.com/ignitergo/connectors/pkg/logger"
)

// RegistryOptions configures a Registry before any scopes or connectors
// are registered. Adapter is the only required field; everything else has
// a workable default.
type RegistryOptions struct {
	Adapter Adapter

	// BaseURL, when empty, is resolved lazily via ResolveBaseURL from the
	// environment the first time a callback/webhook URL is built.
	BaseURL string

	// EncryptionSecret builds the default AEAD cipher. Cipher, if set,
	// takes precedence and lets a host supply a KMS-backed implementation
	// instead (see pkg/crypto.FuncCipher).
	EncryptionSecret string
	Cipher           crypto.Cipher

	// CookieSigningKey signs the igniter_oauth_<connector> recovery
	// cookie. Defaults to EncryptionSecret if unset.
	CookieSigningKey []byte

	Logger *slog.Logger

	// StateSweepCron, when non-empty, schedules periodic cleanup of
	// expired pending OAuth states via robfig/cron. Defaults to "@every 5m".
	StateSweepCron string
}

// Registry is a builder: a host calls RegisterScope and RegisterConnector
// any number of times, then Build() once to produce an immutable Manager.
type Registry struct {
	opts       RegistryOptions
	scopes     map[string]ScopeDefinition
	connectors map[string]ConnectorDefinition
	bus        *EventBus
}

// NewRegistry begins building a Manager. opts.Adapter must be set before
// Build is called.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger()
	}
	return &Registry{
		opts:       opts,
		scopes:     make(map[string]ScopeDefinition),
		connectors: make(map[string]ConnectorDefinition),
		bus:        newEventBus(opts.Logger),
	}
}

// RegisterScope adds a tenant-bucket kind, e.g. {Key: "organization"}.
func (r *Registry) RegisterScope(def ScopeDefinition) *Registry {
	r.scopes[def.Key] = def
	return r
}

// RegisterConnector adds a connector definition keyed by def.Key,
// overwriting any prior registration under the same key.
func (r *Registry) RegisterConnector(def ConnectorDefinition) *Registry {
	r.connectors[def.Key] = def
	return r
}

// Subscribe registers a Subscriber on the bus that the built Manager will
// use, before Build is called.
func (r *Registry) Subscribe(fn Subscriber) *Registry {
	r.bus.Subscribe(fn)
	return r
}

// AddSink registers a TelemetrySink on the bus that the built Manager will
// use, before Build is called.
func (r *Registry) AddSink(sink TelemetrySink) *Registry {
	r.bus.AddSink(sink)
	return r
}

// Build validates the accumulated registration and produces an immutable
// Manager, instantiating one oauthEngine per OAuth-enabled connector and
// starting the pending-state sweep.
func (r *Registry) Build() (*Manager, error) {
	if r.opts.Adapter == nil {
		return nil, ErrBuildConfigRequired
	}
	if len(r.scopes) == 0 {
		return nil, ErrBuildScopesRequired
	}
	if len(r.connectors) == 0 {
		return nil, ErrBuildConnectorsRequired
	}

	cipher := r.opts.Cipher
	if cipher == nil {
		if r.opts.EncryptionSecret == "" {
			return nil, ErrEncryptionSecretRequired
		}
		aead, err := crypto.NewAEADCipher(r.opts.EncryptionSecret)
		if err != nil {
			return nil, fmt.Errorf("connectors: build cipher: %w", err)
		}
		cipher = aead
	}

	signingKey := r.opts.CookieSigningKey
	if len(signingKey) == 0 {
		signingKey = []byte(r.opts.EncryptionSecret)
	}

	baseURL, err := ResolveBaseURL(r.opts.BaseURL)
	if err != nil {
		r.opts.Logger.Warn("connectors: base URL not resolved at build time, will retry lazily", logger.Scope("registry"))
	}

	engines := make(map[string]*oauthEngine, len(r.connectors))
	for key, def := range r.connectors {
		if def.OAuth == nil {
			continue
		}
		callback := ""
		if baseURL != "" {
			callback = BuildOAuthCallbackURL(baseURL, key)
		}
		engines[key] = newOAuthEngine(key, callback, *def.OAuth)
	}

	states := newOAuthStateStore()

	mgr := &Manager{
		opts:         r.opts,
		scopes:       r.scopes,
		connectors:   r.connectors,
		bus:          r.bus,
		cipher:       cipher,
		signingKey:   signingKey,
		baseURL:      baseURL,
		oauthEngines: engines,
		states:       states,
		log:          r.opts.Logger,
	}

	mgr.startStateSweep()

	return mgr, nil
}

func (m *Manager) startStateSweep() {
	spec := m.opts.StateSweepCron
	if spec == "" {
		spec = "@every 5m"
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		removed := m.states.sweep()
		if removed > 0 {
			m.log.Debug("connectors: swept expired oauth states",
				logger.Scope("registry"), slog.Int("removed", removed))
		}
	})
	if err != nil {
		m.log.Error("connectors: invalid state sweep cron spec, sweeping disabled",
			logger.Scope("registry"), logger.Error(err))
		return
	}
	c.Start()
	m.stateSweeper = c
}
