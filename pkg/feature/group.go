package feature

import (
	"context"
	"slices"
	"time"
)

// Group is a named, ordered set of features.
type Group struct {
	Name      string
	Features  []string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupStore persists feature groups.
type GroupStore interface {
	// Define creates the group or replaces its features and metadata in place.
	Define(ctx context.Context, name string, features []string, metadata map[string]any) (Group, error)
	// Get returns ErrGroupNotFound when the group does not exist.
	Get(ctx context.Context, name string) (Group, error)
	// List returns all groups ordered by name.
	List(ctx context.Context) ([]Group, error)
	// Update replaces the feature set of an existing group.
	Update(ctx context.Context, name string, features []string) (Group, error)
	AddFeatures(ctx context.Context, name string, features ...string) (Group, error)
	RemoveFeatures(ctx context.Context, name string, features ...string) (Group, error)
	// Delete removes the group. Missing groups are ignored.
	Delete(ctx context.Context, name string) error
}

// NormalizeFeatures drops empty and repeated names, keeping first occurrences in order.
func NormalizeFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// WithFeatures returns the group's features with features appended.
func (g Group) WithFeatures(features ...string) []string {
	return NormalizeFeatures(append(slices.Clone(g.Features), features...))
}

// WithoutFeatures returns the group's features without features.
func (g Group) WithoutFeatures(features ...string) []string {
	return slices.DeleteFunc(slices.Clone(g.Features), func(f string) bool {
		return slices.Contains(features, f)
	})
}

// Has reports whether the group contains feature.
func (g Group) Has(feature string) bool {
	return slices.Contains(g.Features, feature)
}

// ResolveGroup resolves every feature of the named group for scope.
func ResolveGroup(ctx context.Context, store Store, groups GroupStore, name string, scope Scope) (map[string]Value, error) {
	g, err := groups.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	req := make(map[string][]Scope, len(g.Features))
	for _, f := range g.Features {
		req[f] = []Scope{scope}
	}
	res, err := store.ResolveMany(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Value, len(res))
	for f, values := range res {
		out[f] = values[0]
	}
	return out, nil
}
