package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// FeatureTable stores feature values in the feature_records table.
type FeatureTable struct {
	db DB
}

var _ feature.Table = (*FeatureTable)(nil)

// NewFeatureTable returns a table over db. Run Migrate first.
func NewFeatureTable(db DB) *FeatureTable {
	return &FeatureTable{db: db}
}

const findRecords = `
SELECT r.name, r.scope, r.value::text, r.expires_at
FROM feature_records r
JOIN unnest($1::text[], $2::text[]) AS k(name, scope)
  ON r.name = k.name AND r.scope = k.scope`

func (t *FeatureTable) Find(ctx context.Context, keys []feature.RecordKey) ([]feature.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	names, scopes := splitKeys(keys)
	rows, err := t.db.Query(ctx, findRecords, names, scopes)
	if err != nil {
		return nil, fmt.Errorf("find feature records: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("find feature records: %w", err)
	}
	return records, nil
}

const insertRecord = `
INSERT INTO feature_records (name, scope, value, expires_at)
VALUES ($1, $2, $3::jsonb, $4)`

// Insert writes all records in one transaction. A unique violation on any
// row rolls back the whole batch and is reported as feature.ErrUniqueViolation.
func (t *FeatureTable) Insert(ctx context.Context, records []feature.Record) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			raw, err := encodeValue(r.Value)
			if err != nil {
				return err
			}
			batch.Queue(insertRecord, r.Name, r.Scope, raw, expiresAt(r))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if IsDuplicateKeyError(err) {
		return errors.Join(feature.ErrUniqueViolation, err)
	}
	if err != nil {
		return fmt.Errorf("insert feature records: %w", err)
	}
	return nil
}

const upsertRecord = `
INSERT INTO feature_records (name, scope, value, expires_at)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (name, scope) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`

func (t *FeatureTable) Upsert(ctx context.Context, r feature.Record) error {
	raw, err := encodeValue(r.Value)
	if err != nil {
		return err
	}
	if _, err := t.db.Exec(ctx, upsertRecord, r.Name, r.Scope, raw, expiresAt(r)); err != nil {
		return fmt.Errorf("upsert feature record: %w", err)
	}
	return nil
}

const deleteRecords = `
DELETE FROM feature_records r
USING unnest($1::text[], $2::text[]) AS k(name, scope)
WHERE r.name = k.name AND r.scope = k.scope`

func (t *FeatureTable) Delete(ctx context.Context, keys []feature.RecordKey) error {
	if len(keys) == 0 {
		return nil
	}
	names, scopes := splitKeys(keys)
	if _, err := t.db.Exec(ctx, deleteRecords, names, scopes); err != nil {
		return fmt.Errorf("delete feature records: %w", err)
	}
	return nil
}

func (t *FeatureTable) DeleteNames(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := t.db.Exec(ctx, `DELETE FROM feature_records WHERE name = ANY($1)`, names); err != nil {
		return fmt.Errorf("delete features: %w", err)
	}
	return nil
}

func (t *FeatureTable) DeleteAll(ctx context.Context) error {
	if _, err := t.db.Exec(ctx, `DELETE FROM feature_records`); err != nil {
		return fmt.Errorf("delete all features: %w", err)
	}
	return nil
}

func (t *FeatureTable) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := t.db.Exec(ctx, `DELETE FROM feature_records WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired features: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (t *FeatureTable) Names(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := t.db.Query(ctx, `
SELECT DISTINCT name FROM feature_records
WHERE expires_at IS NULL OR expires_at > $1
ORDER BY name`, now)
	if err != nil {
		return nil, fmt.Errorf("list stored features: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list stored features: %w", err)
	}
	return names, nil
}

func scanRecord(row pgx.CollectableRow) (feature.Record, error) {
	var (
		r   feature.Record
		raw string
		exp *time.Time
	)
	if err := row.Scan(&r.Name, &r.Scope, &raw, &exp); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(raw), &r.Value); err != nil {
		return r, fmt.Errorf("decode value of %s: %w", r.Name, err)
	}
	if exp != nil {
		r.ExpiresAt = *exp
	}
	return r, nil
}

func splitKeys(keys []feature.RecordKey) ([]string, []string) {
	names := make([]string, len(keys))
	scopes := make([]string, len(keys))
	for i, k := range keys {
		names[i], scopes[i] = k.Name, k.Scope
	}
	return names, scopes
}

func encodeValue(v feature.Value) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode feature value: %w", err)
	}
	return string(raw), nil
}

func expiresAt(r feature.Record) *time.Time {
	if r.ExpiresAt.IsZero() {
		return nil
	}
	return &r.ExpiresAt
}
