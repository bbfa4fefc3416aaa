package connectors

import "context"

// Adapter is the storage boundary the core depends on. It addresses
// records by (scope, identity, provider) and stores the encrypted-at-rest
// Value map produced by the crypto layer; it never sees plaintext secrets
// or makes policy decisions — those live entirely in this package. Which
// concrete Adapter a host wires in (in-memory, SQL, S3, ...) is explicitly
// out of scope for the core.
type Adapter interface {
	Get(ctx context.Context, scope, identity, provider string) (*ConnectorRecord, error)
	List(ctx context.Context, scope, identity string) ([]ConnectorRecord, error)

	// Save upserts a record, returning the final record with timestamps set.
	Save(ctx context.Context, scope, identity, provider string, value map[string]any, enabled bool) (*ConnectorRecord, error)

	// Update applies a partial update and fails with ErrRecordNotFound if no
	// record exists for (scope, identity, provider).
	Update(ctx context.Context, scope, identity, provider string, update RecordUpdate) (*ConnectorRecord, error)

	Delete(ctx context.Context, scope, identity, provider string) error
	Exists(ctx context.Context, scope, identity, provider string) (bool, error)

	// CountConnections returns how many records exist for provider across
	// all scopes and identities.
	CountConnections(ctx context.Context, provider string) (int, error)

	// FindByWebhookSecret resolves an inbound webhook's opaque secret back
	// to the record it belongs to. Returns ErrRecordNotFound on no match.
	FindByWebhookSecret(ctx context.Context, provider, secret string) (*ConnectorRecord, error)

	// UpdateWebhookMetadata records the outcome of a webhook delivery
	// attempt without requiring the caller to read-modify-write the whole
	// record.
	UpdateWebhookMetadata(ctx context.Context, provider, secret string, update WebhookMetadataUpdate) error
}

// ErrRecordNotFound is returned by Adapter methods when no record matches
// the given address. Core callers translate it to ErrConnectorNotFound /
// ErrConnectorNotConnected depending on context.
var ErrRecordNotFound = recordNotFoundSentinel{}

type recordNotFoundSentinel struct{}

func (recordNotFoundSentinel) Error() string { return "connectors: record not found" }
