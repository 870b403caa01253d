package logger

import (
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under the key "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Feature records a feature name under the key "feature".
func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}

// Features records a list of feature names under the key "features".
func Features(names []string) slog.Attr {
	return slog.Any("features", names)
}

// Scope records a scope key under the key "scope".
func Scope(key string) slog.Attr {
	return slog.String("scope", key)
}

// SnapshotID records a snapshot identifier under the key "snapshot_id".
func SnapshotID(id string) slog.Attr {
	return slog.String("snapshot_id", id)
}

// Store records the storage backend name under the key "store".
func Store(name string) slog.Attr {
	return slog.String("store", name)
}

// Actor records who performed an action under the key "actor".
// Empty values yield an empty Attr.
func Actor(kind, id string) slog.Attr {
	if kind == "" && id == "" {
		return slog.Attr{}
	}
	return Group("actor", slog.String("type", kind), slog.String("id", id))
}

// RetryCount records the retry attempt under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Count records a number of affected items under the key "count".
func Count(n int64) slog.Attr {
	return slog.Int64("count", n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
