package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const defaultExpiryBufferSec = 60

// oauthEngine drives one connector's authorization-code (optionally PKCE)
// flow. Authorization-URL construction is delegated to golang.org/x/oauth2,
// which models that half of the flow faithfully; token exchange, refresh
// and user-info fetch are hand-rolled against net/http because oauth2.Token
// cannot represent the spec's caller-pluggable multi-alias response
// auto-detection (access_token / accessToken / token, etc.) that arbitrary
// non-OIDC providers return.
type oauthEngine struct {
	connectorKey string
	opts         OAuthOptions
	redirectURL  string
	httpClient   *http.Client
}

func newOAuthEngine(connectorKey, redirectURL string, opts OAuthOptions) *oauthEngine {
	if opts.ExpiryBufferSec == 0 {
		opts.ExpiryBufferSec = defaultExpiryBufferSec
	}
	return &oauthEngine{
		connectorKey: connectorKey,
		opts:         opts,
		redirectURL:  redirectURL,
		httpClient:   http.DefaultClient,
	}
}

func (e *oauthEngine) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.opts.ClientID,
		ClientSecret: e.opts.ClientSecret,
		RedirectURL:  e.redirectURL,
		Scopes:       e.opts.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  e.opts.AuthURL,
			TokenURL: e.opts.TokenURL,
		},
	}
}

// generateAuthURL builds the provider authorization URL and, for PKCE
// connectors, a code verifier that must be persisted alongside the state
// token and replayed during exchangeCode.
func (e *oauthEngine) generateAuthURL(state string) (authURL string, codeVerifier string) {
	cfg := e.config()

	var opts []oauth2.AuthCodeOption
	for k, v := range e.opts.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	if e.opts.PKCE {
		codeVerifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(codeVerifier))
	}

	return cfg.AuthCodeURL(state, opts...), codeVerifier
}

// exchangeCode trades an authorization code for tokens. It always speaks
// net/http directly (rather than cfg.Exchange) so the response body can be
// run through parseTokenResponse's multi-alias auto-detection regardless
// of whether the provider returns OAuth-standard field names.
func (e *oauthEngine) exchangeCode(ctx context.Context, code, codeVerifier string) (*OAuthData, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {e.redirectURL},
		"client_id":     {e.opts.ClientID},
		"client_secret": {e.opts.ClientSecret},
	}
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	body, err := e.postForm(ctx, e.opts.TokenURL, form)
	if err != nil {
		return nil, ErrOAuthTokenFailed.WithInternal(err)
	}

	data, err := e.parseTokenResponse(body)
	if err != nil {
		return nil, err
	}
	data.ConnectedAt = time.Now()

	if e.opts.UserInfoURL != "" {
		info, err := e.fetchUserInfo(ctx, data.AccessToken)
		if err == nil {
			data.UserInfo = info
		}
	}

	return data, nil
}

// refresh exchanges a refresh token for a new access token. Per spec.md,
// if the provider's response omits a new refresh token the existing one is
// preserved rather than dropped.
func (e *oauthEngine) refresh(ctx context.Context, existing OAuthData) (*OAuthData, error) {
	if existing.RefreshToken == "" {
		return nil, ErrOAuthRefreshFailed.WithMessage("no refresh token on record")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {existing.RefreshToken},
		"client_id":     {e.opts.ClientID},
		"client_secret": {e.opts.ClientSecret},
	}

	body, err := e.postForm(ctx, e.opts.TokenURL, form)
	if err != nil {
		return nil, ErrOAuthRefreshFailed.WithInternal(err)
	}

	data, err := e.parseTokenResponse(body)
	if err != nil {
		return nil, err
	}
	if data.RefreshToken == "" {
		data.RefreshToken = existing.RefreshToken
	}
	data.UserInfo = existing.UserInfo
	data.ConnectedAt = existing.ConnectedAt
	return data, nil
}

func (e *oauthEngine) postForm(ctx context.Context, target string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("oauth: provider returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (e *oauthEngine) fetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.opts.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("oauth: userinfo returned %d", resp.StatusCode)
	}

	if e.opts.ParseUserInfo != nil {
		return e.opts.ParseUserInfo(body)
	}
	return parseUserInfoAliases(body)
}

func (e *oauthEngine) parseTokenResponse(body []byte) (*OAuthData, error) {
	if e.opts.ParseTokenResponse != nil {
		data, err := e.opts.ParseTokenResponse(body)
		if err != nil {
			return nil, ErrOAuthParseTokenFailed.WithInternal(err)
		}
		return data, nil
	}
	data, err := parseTokenAliases(body)
	if err != nil {
		return nil, ErrOAuthParseTokenFailed.WithInternal(err)
	}
	return data, nil
}

// accessTokenAliases / refreshTokenAliases / expiresInAliases enumerate the
// field names real providers use in place of the OAuth-standard
// access_token / refresh_token / expires_in, in the order they are tried.
var (
	accessTokenAliases  = []string{"access_token", "accessToken", "token"}
	refreshTokenAliases = []string{"refresh_token", "refreshToken"}
	expiresInAliases    = []string{"expires_in", "expiresIn", "expires"}
	tokenTypeAliases    = []string{"token_type", "tokenType"}
)

func parseTokenAliases(body []byte) (*OAuthData, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	access := firstStringAlias(raw, accessTokenAliases)
	if access == "" {
		return nil, fmt.Errorf("token response missing access token (tried %v)", accessTokenAliases)
	}

	data := &OAuthData{
		AccessToken:  access,
		RefreshToken: firstStringAlias(raw, refreshTokenAliases),
		TokenType:    firstStringAlias(raw, tokenTypeAliases),
	}

	if expiresIn, ok := firstNumberAlias(raw, expiresInAliases); ok {
		expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second).Unix()
		data.ExpiresIn = &expiresIn
		data.ExpiresAt = &expiresAt
	}

	return data, nil
}

var (
	userIDAliases     = []string{"id", "sub", "user_id", "userId", "uid"}
	userNameAliases   = []string{"name", "displayName", "display_name", "username", "full_name", "fullName"}
	userEmailAliases  = []string{"email", "emailAddress", "email_address", "mail"}
	userAvatarAliases = []string{"avatar", "picture", "avatar_url", "photo", "image", "profile_image"}
)

func parseUserInfoAliases(body []byte) (*UserInfo, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	return &UserInfo{
		ID:     firstStringAlias(raw, userIDAliases),
		Name:   firstStringAlias(raw, userNameAliases),
		Email:  firstStringAlias(raw, userEmailAliases),
		Avatar: firstStringAlias(raw, userAvatarAliases),
	}, nil
}

func firstStringAlias(raw map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			switch t := v.(type) {
			case string:
				return t
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstNumberAlias(raw map[string]any, aliases []string) (int64, bool) {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			switch t := v.(type) {
			case float64:
				return int64(t), true
			case string:
				if n, err := strconv.ParseInt(t, 10, 64); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

// isExpired reports whether tokens should be treated as expired, applying
// a safety buffer (default 60s) so a token that is about to expire is
// refreshed proactively rather than failing mid-call.
func isExpired(tokens OAuthData, bufferSec int64) bool {
	if tokens.ExpiresAt == nil {
		return false
	}
	if bufferSec == 0 {
		bufferSec = defaultExpiryBufferSec
	}
	return time.Now().Unix()+bufferSec >= *tokens.ExpiresAt
}
