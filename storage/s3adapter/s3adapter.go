// Package s3adapter implements connectors.Adapter on top of an S3-compatible
// object store: one JSON object per record, keyed by scope/identity/provider,
// plus a flat per-provider listing built by scanning the provider prefix.
// This trades list performance for zero external dependency on a database,
// useful for small deployments that already have an S3 bucket but no SQL
// instance.
package s3adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/ignitergo/connectors/connectors"
)

// Adapter stores each ConnectorRecord as one JSON object under
// connectors/<provider>/<scope>/<identity>.json.
type Adapter struct {
	client *s3.Client
	bucket string
}

// New loads the default AWS config chain (env vars, shared config,
// instance role) and returns an Adapter writing to bucket.
func New(ctx context.Context, bucket string) (*Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3adapter: load aws config: %w", err)
	}
	return &Adapter{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewWithStaticCredentials opens an Adapter against an S3-compatible
// endpoint (e.g. MinIO, R2) using a fixed access/secret key pair instead
// of the default AWS config chain, for hosts that don't run on AWS
// infrastructure and so have no IAM role or shared config to load.
func NewWithStaticCredentials(ctx context.Context, bucket, region, endpoint, accessKeyID, secretAccessKey string) (*Adapter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3adapter: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = endpoint != ""
	})
	return &Adapter{client: client, bucket: bucket}, nil
}

func objectKey(scope, identity, provider string) string {
	return fmt.Sprintf("connectors/%s/%s/%s.json", provider, scope, identity)
}

func providerPrefix(provider string) string {
	return fmt.Sprintf("connectors/%s/", provider)
}

func (a *Adapter) Get(ctx context.Context, scope, identity, provider string) (*connectors.ConnectorRecord, error) {
	record, err := a.getByKey(ctx, objectKey(scope, identity, provider))
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, connectors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("s3adapter: get object: %w", err)
	}
	return record, nil
}

func (a *Adapter) List(ctx context.Context, scope, identity string) ([]connectors.ConnectorRecord, error) {
	// No single prefix covers (scope, identity) across providers without a
	// secondary index, so List scans the full connectors/ prefix and
	// filters client-side. Acceptable for the bucket sizes this adapter
	// targets; a host with heavy List traffic should use sqladapter instead.
	var out []connectors.ConnectorRecord
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String("connectors/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3adapter: list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if !strings.HasSuffix(*obj.Key, fmt.Sprintf("/%s/%s.json", scope, identity)) {
				continue
			}
			rec, err := a.getByKey(ctx, *obj.Key)
			if err != nil {
				continue
			}
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (a *Adapter) listByProvider(ctx context.Context, provider string) ([]connectors.ConnectorRecord, error) {
	var out []connectors.ConnectorRecord
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(providerPrefix(provider)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3adapter: list objects: %w", err)
		}
		for _, obj := range page.Contents {
			rec, err := a.getByKey(ctx, *obj.Key)
			if err != nil {
				continue
			}
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (a *Adapter) getByKey(ctx context.Context, key string) (*connectors.ConnectorRecord, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(a.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	var record connectors.ConnectorRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (a *Adapter) putRecord(ctx context.Context, record connectors.ConnectorRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("s3adapter: marshal record: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey(record.Scope, record.Identity, record.Provider)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3adapter: put object: %w", err)
	}
	return nil
}

func (a *Adapter) Save(ctx context.Context, scope, identity, provider string, value map[string]any, enabled bool) (*connectors.ConnectorRecord, error) {
	existing, err := a.Get(ctx, scope, identity, provider)
	if err != nil && err != connectors.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now()
	record := connectors.ConnectorRecord{
		ID:        uuid.NewString(),
		Scope:     scope,
		Identity:  identity,
		Provider:  provider,
		Value:     value,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}

	if err := a.putRecord(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
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
	existing.UpdatedAt = time.Now()

	if err := a.putRecord(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (a *Adapter) Delete(ctx context.Context, scope, identity, provider string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(scope, identity, provider)),
	})
	if err != nil {
		return fmt.Errorf("s3adapter: delete object: %w", err)
	}
	return nil
}

func (a *Adapter) Exists(ctx context.Context, scope, identity, provider string) (bool, error) {
	_, err := a.Get(ctx, scope, identity, provider)
	if err == connectors.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) CountConnections(ctx context.Context, provider string) (int, error) {
	records, err := a.listByProvider(ctx, provider)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (a *Adapter) FindByWebhookSecret(ctx context.Context, provider, secret string) (*connectors.ConnectorRecord, error) {
	records, err := a.listByProvider(ctx, provider)
	if err != nil {
		return nil, err
	}
	for i := range records {
		meta, _ := records[i].Value["webhook"].(map[string]any)
		if meta == nil {
			continue
		}
		if s, _ := meta["secret"].(string); s == secret {
			return &records[i], nil
		}
	}
	return nil, connectors.ErrRecordNotFound
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
	record.UpdatedAt = time.Now()

	return a.putRecord(ctx, *record)
}
