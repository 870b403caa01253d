package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// GroupRepository stores feature groups in the feature_groups table.
type GroupRepository struct {
	db  DB
	now func() time.Time
}

var _ feature.GroupStore = (*GroupRepository)(nil)

// NewGroupRepository returns a group store over db. Run Migrate first.
func NewGroupRepository(db DB) *GroupRepository {
	return &GroupRepository{db: db, now: time.Now}
}

const groupColumns = `name, features, metadata::text, created_at, updated_at`

func (r *GroupRepository) Define(ctx context.Context, name string, features []string, metadata map[string]any) (feature.Group, error) {
	if name == "" {
		return feature.Group{}, feature.ErrInvalidDefinition
	}
	meta, err := encodeJSON(nonNilMap(metadata))
	if err != nil {
		return feature.Group{}, err
	}
	row := r.db.QueryRow(ctx, `
INSERT INTO feature_groups (name, features, metadata, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, $4, $4)
ON CONFLICT (name) DO UPDATE
SET features = EXCLUDED.features, metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at
RETURNING `+groupColumns, name, feature.NormalizeFeatures(features), meta, r.now())
	g, err := scanGroup(row)
	if err != nil {
		return feature.Group{}, fmt.Errorf("define group %s: %w", name, err)
	}
	return g, nil
}

func (r *GroupRepository) Get(ctx context.Context, name string) (feature.Group, error) {
	return r.get(ctx, r.db, name, "")
}

func (r *GroupRepository) List(ctx context.Context) ([]feature.Group, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM feature_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (feature.Group, error) {
		return scanGroup(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) Update(ctx context.Context, name string, features []string) (feature.Group, error) {
	return r.modify(ctx, name, func(feature.Group) []string { return feature.NormalizeFeatures(features) })
}

func (r *GroupRepository) AddFeatures(ctx context.Context, name string, features ...string) (feature.Group, error) {
	return r.modify(ctx, name, func(g feature.Group) []string { return g.WithFeatures(features...) })
}

func (r *GroupRepository) RemoveFeatures(ctx context.Context, name string, features ...string) (feature.Group, error) {
	return r.modify(ctx, name, func(g feature.Group) []string { return g.WithoutFeatures(features...) })
}

func (r *GroupRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM feature_groups WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete group %s: %w", name, err)
	}
	return nil
}

// modify locks the group row and replaces its features with change(group).
func (r *GroupRepository) modify(ctx context.Context, name string, change func(feature.Group) []string) (feature.Group, error) {
	var out feature.Group
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		g, err := r.get(ctx, tx, name, " FOR UPDATE")
		if err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
UPDATE feature_groups SET features = $2, updated_at = $3
WHERE name = $1
RETURNING `+groupColumns, name, change(g), r.now())
		out, err = scanGroup(row)
		return err
	})
	if err != nil {
		return feature.Group{}, fmt.Errorf("update group %s: %w", name, err)
	}
	return out, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *GroupRepository) get(ctx context.Context, q querier, name, lock string) (feature.Group, error) {
	g, err := scanGroup(q.QueryRow(ctx, `SELECT `+groupColumns+` FROM feature_groups WHERE name = $1`+lock, name))
	if IsNotFoundError(err) {
		return feature.Group{}, fmt.Errorf("%w: %s", feature.ErrGroupNotFound, name)
	}
	if err != nil {
		return feature.Group{}, fmt.Errorf("get group %s: %w", name, err)
	}
	return g, nil
}

func scanGroup(row pgx.Row) (feature.Group, error) {
	var (
		g    feature.Group
		meta string
	)
	if err := row.Scan(&g.Name, &g.Features, &meta, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return g, err
	}
	if err := json.Unmarshal([]byte(meta), &g.Metadata); err != nil {
		return g, fmt.Errorf("decode group metadata: %w", err)
	}
	if g.Features == nil {
		g.Features = []string{}
	}
	return g, nil
}
