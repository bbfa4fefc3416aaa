package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ignitergo/connectors/connectors"
)

// Mailchimp returns a connector definition for Mailchimp OAuth apps,
// exposing an addSubscriber action. Mailchimp's API root is per-account
// (the "dc" datacenter suffix returned by its metadata endpoint), so the
// action resolves it from the user-info fetch performed during OAuth
// rather than hardcoding a single host.
func Mailchimp(clientID, clientSecret string) connectors.ConnectorDefinition {
	return connectors.ConnectorDefinition{
		Key: "mailchimp",
		OAuth: &connectors.OAuthOptions{
			ClientID:      clientID,
			ClientSecret:  clientSecret,
			AuthURL:       "https://login.mailchimp.com/oauth2/authorize",
			TokenURL:      "https://login.mailchimp.com/oauth2/token",
			UserInfoURL:   "https://login.mailchimp.com/oauth2/metadata",
			ParseUserInfo: parseMailchimpMetadata,
		},
		Actions: map[string]connectors.ActionDefinition{
			"addSubscriber": {
				Description: "Add an email address to a Mailchimp audience",
				InputSchema: connectors.MustJSONSchema(map[string]any{
					"type":     "object",
					"required": []any{"listId", "email"},
					"properties": map[string]any{
						"listId": map[string]any{"type": "string"},
						"email":  map[string]any{"type": "string"},
					},
				}),
				Handler: addSubscriber,
			},
		},
	}
}

func parseMailchimpMetadata(body []byte) (*connectors.UserInfo, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	dc, _ := raw["dc"].(string)
	accountID, _ := raw["login"].(map[string]any)["login_id"].(string)
	return &connectors.UserInfo{ID: accountID, Name: dc}, nil
}

func addSubscriber(ctx context.Context, call connectors.ActionCall) (any, error) {
	input, _ := call.Input.(map[string]any)
	if call.OAuth == nil || call.OAuth.UserInfo == nil {
		return nil, fmt.Errorf("mailchimp: addSubscriber requires a connected account")
	}
	dc := call.OAuth.UserInfo.Name
	listID, _ := input["listId"].(string)
	email, _ := input["email"].(string)

	body, _ := json.Marshal(map[string]any{
		"email_address": email,
		"status":        "subscribed",
	})
	url := fmt.Sprintf("https://%s.api.mailchimp.com/3.0/lists/%s/members", dc, listID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytesReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+call.OAuth.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mailchimp: addSubscriber request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("mailchimp: api returned %d", resp.StatusCode)
	}
	var result map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return result, nil
}
