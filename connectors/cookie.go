package connectors

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// oauthCookieTTL bounds how long a recovery cookie remains valid, matching
// the pending-state TTL it shadows.
const oauthCookieTTL = oauthStateTTL

// oauthCookieClaims is embedded in the igniter_oauth_<connector> cookie set
// before redirecting to the provider, so a callback that arrives without a
// session (some providers drop query params across redirects) can still
// recover which scope/identity initiated the flow.
type oauthCookieClaims struct {
	jwt.RegisteredClaims
	Scope       string `json:"scope"`
	Identity    string `json:"identity"`
	Connector   string `json:"connector"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
}

func oauthCookieName(connectorKey string) string {
	return fmt.Sprintf("igniter_oauth_%s", connectorKey)
}

// setOAuthCookie signs and attaches the recovery cookie to w.
func setOAuthCookie(w http.ResponseWriter, signingKey []byte, connectorKey, scope, identity, state, redirectURL string) error {
	claims := oauthCookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(oauthCookieTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Scope:       scope,
		Identity:    identity,
		Connector:   connectorKey,
		State:       state,
		RedirectURL: redirectURL,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return fmt.Errorf("connectors: sign oauth cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthCookieName(connectorKey),
		Value:    signed,
		Path:     "/",
		MaxAge:   int(oauthCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// readOAuthCookie verifies and decodes the recovery cookie for connectorKey,
// if present on r.
func readOAuthCookie(r *http.Request, signingKey []byte, connectorKey string) (*oauthCookieClaims, error) {
	c, err := r.Cookie(oauthCookieName(connectorKey))
	if err != nil {
		return nil, err
	}

	claims := &oauthCookieClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("connectors: invalid oauth cookie: %w", err)
	}
	return claims, nil
}

func clearOAuthCookie(w http.ResponseWriter, connectorKey string) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthCookieName(connectorKey),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
