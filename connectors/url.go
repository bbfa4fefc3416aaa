package connectors

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// baseURLEnvPriority is the ordered list of environment variables consulted
// by ResolveBaseURL when a host does not pass an explicit base URL to the
// registry. The first non-empty value wins.
var baseURLEnvPriority = []string{
	"IGNITER_BASE_URL",
	"NEXT_PUBLIC_IGNITER_BASE_URL",
	"NEXT_PUBLIC_APP_URL",
	"REACT_APP_BASE_URL",
	"VITE_BASE_URL",
	"BASE_URL",
	"APP_URL",
	"VERCEL_URL",
}

// ResolveBaseURL determines the externally reachable base URL used to build
// OAuth callback and webhook URLs. explicit, when non-empty, always wins.
// Otherwise the environment is consulted in baseURLEnvPriority order; a
// bare host:port value (no scheme) is assumed https. Returns an error only
// if nothing resolves.
func ResolveBaseURL(explicit string) (string, error) {
	if explicit != "" {
		return normalizeBaseURL(explicit)
	}
	for _, key := range baseURLEnvPriority {
		if v := os.Getenv(key); v != "" {
			return normalizeBaseURL(v)
		}
	}
	return "", fmt.Errorf("connectors: no base URL configured (set IGNITER_BASE_URL or pass one explicitly)")
}

func normalizeBaseURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("connectors: invalid base URL %q: %w", raw, err)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BuildOAuthCallbackURL returns the callback URL a provider should redirect
// to after an authorization grant, e.g.
// https://host/api/connectors/slack/oauth/callback.
func BuildOAuthCallbackURL(baseURL, connectorKey string) string {
	return fmt.Sprintf("%s/api/connectors/%s/oauth/callback", strings.TrimRight(baseURL, "/"), connectorKey)
}

// BuildWebhookURL returns the URL-addressable per-connection webhook
// endpoint for a connector record, keyed by its opaque secret.
func BuildWebhookURL(baseURL, connectorKey, secret string) string {
	return fmt.Sprintf("%s/api/connectors/%s/webhook/%s", strings.TrimRight(baseURL, "/"), connectorKey, secret)
}

// ParsedConnectorURL is the result of parsing a webhook or OAuth callback
// path, as dispatched by Manager.Handle.
type ParsedConnectorURL struct {
	ConnectorKey string
	Kind         string // "webhook" | "oauth_callback"
	Secret       string // only set for Kind == "webhook"
}

// ParseConnectorURL extracts the connector key, request kind, and (for
// webhooks) opaque secret from an inbound request path. It expects the
// path shape produced by BuildWebhookURL / BuildOAuthCallbackURL, mounted
// under an arbitrary prefix by the host.
func ParseConnectorURL(r *http.Request) (*ParsedConnectorURL, error) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "connectors" || i+2 >= len(segments) {
			continue
		}
		connectorKey := segments[i+1]
		switch segments[i+2] {
		case "webhook":
			if i+3 >= len(segments) {
				return nil, fmt.Errorf("connectors: webhook URL missing secret")
			}
			return &ParsedConnectorURL{ConnectorKey: connectorKey, Kind: "webhook", Secret: segments[i+3]}, nil
		case "oauth":
			if i+3 < len(segments) && segments[i+3] == "callback" {
				return &ParsedConnectorURL{ConnectorKey: connectorKey, Kind: "oauth_callback"}, nil
			}
		}
	}
	return nil, fmt.Errorf("connectors: could not parse connector URL %q", r.URL.Path)
}

// generateWebhookSecret returns a 32-hex-character opaque secret, matched
// byte-for-byte (never hashed) against the stored WebhookMetadata.Secret.
func generateWebhookSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("connectors: generate webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
