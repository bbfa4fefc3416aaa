package connectors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ignitergo/connectors/pkg/logger"
)

// findByWebhookSecret resolves an inbound webhook's opaque secret back to
// the record it belongs to, delegating the lookup to the adapter so
// backends with a secondary index (SQL, S3 prefix scans) aren't forced
// through an in-process scan.
func (m *Manager) findByWebhookSecret(ctx context.Context, connectorKey, secret string) (*ConnectorRecord, error) {
	record, err := m.opts.Adapter.FindByWebhookSecret(ctx, connectorKey, secret)
	if err != nil {
		if err == ErrRecordNotFound {
			return nil, ErrConnectorNotFound.WithMessage("no connector matches webhook secret")
		}
		return nil, ErrDatabaseFailed.WithInternal(err)
	}
	return record, nil
}

// recordWebhookResult updates a record's WebhookMetadata bookkeeping after
// a delivery attempt. Failures to persist are logged, not propagated: the
// webhook response already went out, so surfacing a storage error here
// would only confuse the caller.
func (m *Manager) recordWebhookResult(ctx context.Context, record *ConnectorRecord, result, errMsg string) {
	meta, _ := record.Value["webhook"].(map[string]any)
	secret, _ := meta["secret"].(string)

	update := WebhookMetadataUpdate{LastEventAt: now(), LastEventResult: result, Error: errMsg}
	if err := m.opts.Adapter.UpdateWebhookMetadata(ctx, record.Provider, secret, update); err != nil {
		m.log.Warn("connectors: failed to persist webhook metadata", logger.Scope("manager"), logger.Error(err))
	}
}

// readAndRestoreBody reads r.Body fully and replaces it with a fresh
// reader so downstream signature verification and JSON decoding can each
// consume the same bytes.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("connectors: read webhook body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
