// Package notify implements an example lifecycle-hook notifier: wire it
// into a connectors.Hooks.OnConnect / OnError to email an operator when a
// tenant connects or breaks an integration.
package notify

import (
	"context"
	"fmt"

	"github.com/aymerick/raymond"
	"github.com/mailgun/mailgun-go/v4"

	"github.com/ignitergo/connectors/connectors"
)

const (
	connectTemplate = `{{identity}} connected {{connector}} in scope {{scope}}.`
	errorTemplate   = `{{connector}} failed for {{identity}} ({{scope}}): {{error}}`
)

// Notifier sends lifecycle notifications through Mailgun, rendering
// subject/body from small raymond (Handlebars) templates.
type Notifier struct {
	mg   *mailgun.MailgunImpl
	from string
	to   []string
}

// New builds a Notifier against the given Mailgun domain/API key.
func New(domain, apiKey, from string, to []string) *Notifier {
	return &Notifier{mg: mailgun.NewMailgun(domain, apiKey), from: from, to: to}
}

// OnConnect is wired as a connectors.Hooks.OnConnect callback.
func (n *Notifier) OnConnect(ctx context.Context, record *connectors.ConnectorRecord) error {
	body, err := renderConnectBody(record.Identity, record.Provider, record.Scope)
	if err != nil {
		return fmt.Errorf("notify: render connect template: %w", err)
	}
	return n.send(ctx, fmt.Sprintf("%s connected", record.Provider), body)
}

// OnError is wired as a connectors.Hooks.OnError callback.
func (n *Notifier) OnError(ctx context.Context, cause error, scope, identity, provider string) {
	body, err := renderErrorBody(identity, provider, scope, cause)
	if err != nil {
		return
	}
	_ = n.send(ctx, fmt.Sprintf("%s error", provider), body)
}

func renderConnectBody(identity, connector, scope string) (string, error) {
	return raymond.Render(connectTemplate, map[string]any{
		"identity":  identity,
		"connector": connector,
		"scope":     scope,
	})
}

func renderErrorBody(identity, connector, scope string, cause error) (string, error) {
	return raymond.Render(errorTemplate, map[string]any{
		"identity":  identity,
		"connector": connector,
		"scope":     scope,
		"error":     cause.Error(),
	})
}

func (n *Notifier) send(ctx context.Context, subject, body string) error {
	msg := n.mg.NewMessage(n.from, subject, body, n.to...)
	_, _, err := n.mg.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: send mailgun message: %w", err)
	}
	return nil
}
