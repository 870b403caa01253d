package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// FeatureTable stores feature records in a collection with a unique
// (name, scope) index.
//
// Insert is ordered and stops at the first duplicate. Documents the batch
// wrote before the duplicate are then deleted, so for a short window other
// readers may observe them.
type FeatureTable struct {
	coll *mongo.Collection
}

var _ feature.Table = (*FeatureTable)(nil)

type recordDoc struct {
	Name      string     `bson:"name"`
	Scope     string     `bson:"scope"`
	Value     string     `bson:"value"` // JSON encoded feature.Value
	ExpiresAt *time.Time `bson:"expires_at"`
	Batch     string     `bson:"batch,omitempty"`
}

// NewFeatureTable ensures the unique index and returns the table.
func NewFeatureTable(ctx context.Context, coll *mongo.Collection) (*FeatureTable, error) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "scope", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_scope_unique"),
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToCreateIndex, err)
	}
	return &FeatureTable{coll: coll}, nil
}

func (t *FeatureTable) Find(ctx context.Context, keys []feature.RecordKey) ([]feature.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	or := make(bson.A, len(keys))
	for i, k := range keys {
		or[i] = keyFilter(k)
	}
	cur, err := t.coll.Find(ctx, bson.D{{Key: "$or", Value: or}})
	if err != nil {
		return nil, fmt.Errorf("find feature records: %w", err)
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find feature records: %w", err)
	}
	records := make([]feature.Record, 0, len(docs))
	for _, d := range docs {
		r, err := d.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (t *FeatureTable) Insert(ctx context.Context, records []feature.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := uuid.NewString()
	docs := make([]any, len(records))
	for i, r := range records {
		d, err := newRecordDoc(r)
		if err != nil {
			return err
		}
		d.Batch = batch
		docs[i] = d
	}

	_, err := t.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert feature records: %w", err)
	}
	if _, derr := t.coll.DeleteMany(context.WithoutCancel(ctx), bson.D{{Key: "batch", Value: batch}}); derr != nil {
		return errors.Join(feature.ErrUniqueViolation, err, fmt.Errorf("roll back partial insert: %w", derr))
	}
	return errors.Join(feature.ErrUniqueViolation, err)
}

func (t *FeatureTable) Upsert(ctx context.Context, r feature.Record) error {
	d, err := newRecordDoc(r)
	if err != nil {
		return err
	}
	_, err = t.coll.ReplaceOne(ctx, keyFilter(r.Key()), d, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert feature record: %w", err)
	}
	return nil
}

func (t *FeatureTable) Delete(ctx context.Context, keys []feature.RecordKey) error {
	if len(keys) == 0 {
		return nil
	}
	or := make(bson.A, len(keys))
	for i, k := range keys {
		or[i] = keyFilter(k)
	}
	if _, err := t.coll.DeleteMany(ctx, bson.D{{Key: "$or", Value: or}}); err != nil {
		return fmt.Errorf("delete feature records: %w", err)
	}
	return nil
}

func (t *FeatureTable) DeleteNames(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	filter := bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: names}}}}
	if _, err := t.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("delete features: %w", err)
	}
	return nil
}

func (t *FeatureTable) DeleteAll(ctx context.Context) error {
	if _, err := t.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete all features: %w", err)
	}
	return nil
}

func (t *FeatureTable) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := t.coll.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: now}}}})
	if err != nil {
		return 0, fmt.Errorf("delete expired features: %w", err)
	}
	return res.DeletedCount, nil
}

func (t *FeatureTable) Names(ctx context.Context, now time.Time) ([]string, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "expires_at", Value: nil}},
		bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now}}}},
	}}}
	var names []string
	if err := t.coll.Distinct(ctx, "name", filter).Decode(&names); err != nil {
		return nil, fmt.Errorf("list stored features: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func keyFilter(k feature.RecordKey) bson.D {
	return bson.D{{Key: "name", Value: k.Name}, {Key: "scope", Value: k.Scope}}
}

func newRecordDoc(r feature.Record) (recordDoc, error) {
	raw, err := json.Marshal(r.Value)
	if err != nil {
		return recordDoc{}, fmt.Errorf("encode feature value: %w", err)
	}
	d := recordDoc{Name: r.Name, Scope: r.Scope, Value: string(raw)}
	if !r.ExpiresAt.IsZero() {
		exp := r.ExpiresAt
		d.ExpiresAt = &exp
	}
	return d, nil
}

func (d recordDoc) record() (feature.Record, error) {
	r := feature.Record{Name: d.Name, Scope: d.Scope}
	if err := json.Unmarshal([]byte(d.Value), &r.Value); err != nil {
		return r, fmt.Errorf("decode value of %s: %w", d.Name, err)
	}
	if d.ExpiresAt != nil {
		r.ExpiresAt = *d.ExpiresAt
	}
	return r, nil
}
