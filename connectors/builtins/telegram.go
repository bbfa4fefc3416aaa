package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ignitergo/connectors/connectors"
)

// Telegram returns a connector definition for Telegram bots. Unlike
// Slack/Mailchimp it authenticates with a long-lived bot token supplied at
// install time rather than OAuth, and it receives inbound messages via a
// webhook the host registers with Telegram's setWebhook API out of band.
func Telegram() connectors.ConnectorDefinition {
	return connectors.ConnectorDefinition{
		Key: "telegram",
		ConfigSchema: connectors.MustJSONSchema(map[string]any{
			"type":     "object",
			"required": []any{"botToken"},
			"properties": map[string]any{
				"botToken": map[string]any{"type": "string", "title": "Bot Token"},
			},
		}),
		EncryptedFields: []string{"botToken"},
		Webhook: &connectors.WebhookDefinition{
			Schema: connectors.MustJSONSchema(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"update_id": map[string]any{"type": "integer"},
				},
			}),
			Handler: handleTelegramUpdate,
		},
		Actions: map[string]connectors.ActionDefinition{
			"sendMessage": {
				Description: "Send a message to a Telegram chat",
				InputSchema: connectors.MustJSONSchema(map[string]any{
					"type":     "object",
					"required": []any{"chatId", "text"},
					"properties": map[string]any{
						"chatId": map[string]any{"type": "string"},
						"text":   map[string]any{"type": "string"},
					},
				}),
				Handler: sendTelegramMessage,
			},
		},
	}
}

func handleTelegramUpdate(ctx context.Context, call connectors.WebhookCall) (any, error) {
	return map[string]any{"received": true}, nil
}

func sendTelegramMessage(ctx context.Context, call connectors.ActionCall) (any, error) {
	input, _ := call.Input.(map[string]any)
	botToken, _ := call.Config["botToken"].(string)
	if botToken == "" {
		return nil, fmt.Errorf("telegram: missing botToken in config")
	}

	body, _ := json.Marshal(map[string]any{
		"chat_id": input["chatId"],
		"text":    input["text"],
	})
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytesReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: sendMessage request: %w", err)
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("telegram: decode response: %w", err)
	}
	if ok, _ := result["ok"].(bool); !ok {
		return nil, fmt.Errorf("telegram: api error: %v", result["description"])
	}
	return result, nil
}
