// Package sqladapter implements connectors.Adapter on top of Postgres via
// pgx and bun, the same pool-then-ORM layering the host application uses
// for its own domain storage.
package sqladapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/ignitergo/connectors/connectors"
)

// connectorRow is the bun model backing the connectors table; Value is
// stored as jsonb and round-tripped through ConnectorRecord.Value.
type connectorRow struct {
	bun.BaseModel `bun:"table:connectors,alias:c"`

	ID        string    `bun:"id,pk"`
	Scope     string    `bun:"scope,notnull"`
	Identity  string    `bun:"identity,notnull"`
	Provider  string    `bun:"provider,notnull"`
	Value     []byte    `bun:"value,type:jsonb,notnull"`
	Enabled   bool      `bun:"enabled,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Adapter is a bun-backed connectors.Adapter.
type Adapter struct {
	db *bun.DB
}

// New opens a pgx pool at dsn and wraps it in a bun.DB using the
// database/sql bridge, mirroring the pool-then-ORM pattern the host uses
// for its own tables.
func New(ctx context.Context, dsn string) (*Adapter, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("sqladapter: ping: %w", err)
	}

	sqldb := stdlib.OpenDBFromPool(pool)
	db := bun.NewDB(sqldb, pgdialect.New())

	return &Adapter{db: db}, nil
}

// NewFromSQLDB wraps an already-open *sql.DB, for hosts that prefer the
// pgdriver connector directly instead of pgx.
func NewFromSQLDB(sqldb *sql.DB) *Adapter {
	return &Adapter{db: bun.NewDB(sqldb, pgdialect.New())}
}

// NewWithPgdriver opens a connection using bun's native pgdriver, an
// alternative to the pgx bridge for hosts that don't otherwise need pgx.
func NewWithPgdriver(dsn string) *Adapter {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewFromSQLDB(sqldb)
}

func (a *Adapter) Get(ctx context.Context, scope, identity, provider string) (*connectors.ConnectorRecord, error) {
	var row connectorRow
	err := a.db.NewSelect().Model(&row).
		Where("scope = ?", scope).
		Where("identity = ?", identity).
		Where("provider = ?", provider).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, connectors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqladapter: get: %w", err)
	}
	return rowToRecord(row)
}

func (a *Adapter) List(ctx context.Context, scope, identity string) ([]connectors.ConnectorRecord, error) {
	var rows []connectorRow
	err := a.db.NewSelect().Model(&rows).
		Where("scope = ?", scope).
		Where("identity = ?", identity).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: list: %w", err)
	}
	return rowsToRecords(rows)
}

func (a *Adapter) Save(ctx context.Context, scope, identity, provider string, value map[string]any, enabled bool) (*connectors.ConnectorRecord, error) {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: marshal value: %w", err)
	}

	now := time.Now()
	row := connectorRow{
		ID:        uuid.NewString(),
		Scope:     scope,
		Identity:  identity,
		Provider:  provider,
		Value:     valueJSON,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = a.db.NewInsert().Model(&row).
		On("CONFLICT (scope, identity, provider) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("enabled = EXCLUDED.enabled").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: save: %w", err)
	}
	return rowToRecord(row)
}

func (a *Adapter) Update(ctx context.Context, scope, identity, provider string, update connectors.RecordUpdate) (*connectors.ConnectorRecord, error) {
	existing, err := a.Get(ctx, scope, identity, provider)
	if err != nil {
		return nil, err
	}

	if update.Value != nil {
		existing.Value = update.Value
	}
	if update.Enabled != nil {
		existing.Enabled = *update.Enabled
	}

	valueJSON, err := json.Marshal(existing.Value)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: marshal value: %w", err)
	}
	existing.UpdatedAt = time.Now()

	_, err = a.db.NewUpdate().Model((*connectorRow)(nil)).
		Set("value = ?", valueJSON).
		Set("enabled = ?", existing.Enabled).
		Set("updated_at = ?", existing.UpdatedAt).
		Where("scope = ?", scope).
		Where("identity = ?", identity).
		Where("provider = ?", provider).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqladapter: update: %w", err)
	}
	return existing, nil
}

func (a *Adapter) Delete(ctx context.Context, scope, identity, provider string) error {
	res, err := a.db.NewDelete().Model((*connectorRow)(nil)).
		Where("scope = ?", scope).
		Where("identity = ?", identity).
		Where("provider = ?", provider).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqladapter: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return connectors.ErrRecordNotFound
	}
	return nil
}

func (a *Adapter) Exists(ctx context.Context, scope, identity, provider string) (bool, error) {
	exists, err := a.db.NewSelect().Model((*connectorRow)(nil)).
		Where("scope = ?", scope).
		Where("identity = ?", identity).
		Where("provider = ?", provider).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("sqladapter: exists: %w", err)
	}
	return exists, nil
}

func (a *Adapter) CountConnections(ctx context.Context, provider string) (int, error) {
	n, err := a.db.NewSelect().Model((*connectorRow)(nil)).
		Where("provider = ?", provider).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqladapter: count connections: %w", err)
	}
	return n, nil
}

// FindByWebhookSecret matches against the jsonb value column directly
// rather than pulling every row for provider into the process.
func (a *Adapter) FindByWebhookSecret(ctx context.Context, provider, secret string) (*connectors.ConnectorRecord, error) {
	var row connectorRow
	err := a.db.NewSelect().Model(&row).
		Where("provider = ?", provider).
		Where("value #>> '{webhook,secret}' = ?", secret).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, connectors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqladapter: find by webhook secret: %w", err)
	}
	return rowToRecord(row)
}

func (a *Adapter) UpdateWebhookMetadata(ctx context.Context, provider, secret string, update connectors.WebhookMetadataUpdate) error {
	record, err := a.FindByWebhookSecret(ctx, provider, secret)
	if err != nil {
		return err
	}

	meta, _ := record.Value["webhook"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["lastEventAt"] = update.LastEventAt
	meta["lastEventResult"] = update.LastEventResult
	if update.Error != "" {
		meta["error"] = update.Error
	} else {
		delete(meta, "error")
	}
	record.Value["webhook"] = meta

	valueJSON, err := json.Marshal(record.Value)
	if err != nil {
		return fmt.Errorf("sqladapter: marshal value: %w", err)
	}

	_, err = a.db.NewUpdate().Model((*connectorRow)(nil)).
		Set("value = ?", valueJSON).
		Set("updated_at = ?", time.Now()).
		Where("scope = ?", record.Scope).
		Where("identity = ?", record.Identity).
		Where("provider = ?", record.Provider).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqladapter: update webhook metadata: %w", err)
	}
	return nil
}

func rowToRecord(row connectorRow) (*connectors.ConnectorRecord, error) {
	var value map[string]any
	if err := json.Unmarshal(row.Value, &value); err != nil {
		return nil, fmt.Errorf("sqladapter: unmarshal value: %w", err)
	}
	return &connectors.ConnectorRecord{
		ID: row.ID, Scope: row.Scope, Identity: row.Identity, Provider: row.Provider,
		Value: value, Enabled: row.Enabled, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

func rowsToRecords(rows []connectorRow) ([]connectors.ConnectorRecord, error) {
	out := make([]connectors.ConnectorRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}
