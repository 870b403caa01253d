package feature

import (
	"fmt"
	"strconv"
)

// NullScopeKey is the key of a scope without an identifier.
const NullScopeKey = "__null"

// Identifiable is implemented by domain entities that can own feature values.
type Identifiable interface {
	ScopeID() any
}

// Scope is the entity a feature value belongs to: a kind ("user", "team")
// plus an identifier. ID accepts strings and integers. When ID is nil the
// identifier is taken from Source, if set.
type Scope struct {
	Kind   string
	ID     any
	Source Identifiable
}

// NewScope returns a scope for kind and id.
func NewScope(kind string, id any) Scope {
	return Scope{Kind: kind, ID: id}
}

// ScopeOf returns a scope backed by an Identifiable entity.
func ScopeOf(kind string, src Identifiable) Scope {
	return Scope{Kind: kind, Source: src}
}

// GlobalScope returns the scope without an identifier.
func GlobalScope() Scope {
	return Scope{}
}

func (s Scope) id() any {
	if s.ID != nil {
		return s.ID
	}
	if s.Source != nil {
		return s.Source.ScopeID()
	}
	return nil
}

// IDString returns the identifier as a string, or "" when there is none.
func (s Scope) IDString() string {
	switch v := s.id().(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Key returns the storage key "kind|id", or NullScopeKey without an identifier.
func (s Scope) Key() string {
	if s.id() == nil {
		return NullScopeKey
	}
	return s.Kind + "|" + s.IDString()
}

func (s Scope) String() string {
	return s.Key()
}
