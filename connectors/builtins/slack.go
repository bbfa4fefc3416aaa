// Package builtins provides example connector definitions exercising
// OAuth, webhooks and actions end to end: Slack (OAuth + action),
// Mailchimp (OAuth + action), Telegram (bot-token config + webhook) and
// GitHub App (OAuth + signed webhook).
package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ignitergo/connectors/connectors"
)

// Slack returns a connector definition for Slack OAuth apps, exposing a
// postMessage action against the chat.postMessage Web API method.
func Slack(clientID, clientSecret string) connectors.ConnectorDefinition {
	return connectors.ConnectorDefinition{
		Key: "slack",
		OAuth: &connectors.OAuthOptions{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			AuthURL:      "https://slack.com/oauth/v2/authorize",
			TokenURL:     "https://slack.com/api/oauth.v2.access",
			UserInfoURL:  "https://slack.com/api/users.identity",
			Scopes:       []string{"chat:write", "channels:read"},
		},
		Actions: map[string]connectors.ActionDefinition{
			"postMessage": {
				Description: "Post a message to a Slack channel",
				InputSchema: connectors.MustJSONSchema(map[string]any{
					"type":     "object",
					"required": []any{"channel", "text"},
					"properties": map[string]any{
						"channel": map[string]any{"type": "string"},
						"text":    map[string]any{"type": "string"},
					},
				}),
				Handler: postMessage,
			},
		},
	}
}

func postMessage(ctx context.Context, call connectors.ActionCall) (any, error) {
	input, _ := call.Input.(map[string]any)
	if call.OAuth == nil {
		return nil, fmt.Errorf("slack: postMessage requires a connected OAuth token")
	}

	body, _ := json.Marshal(map[string]any{
		"channel": input["channel"],
		"text":    input["text"],
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://slack.com/api/chat.postMessage", bytesReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+call.OAuth.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: postMessage request: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("slack: decode response: %w", err)
	}
	if ok, _ := result["ok"].(bool); !ok {
		return nil, fmt.Errorf("slack: api error: %v", result["error"])
	}
	return result, nil
}
