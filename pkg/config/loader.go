package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	mu    sync.Mutex
	cache = make(map[string]*entry)

	defaultEnvLoaded sync.Once
)

// Option adjusts how a configuration struct is parsed.
type Option func(*options)

type options struct {
	prefix string
}

// WithPrefix prepends prefix to every variable name, so one struct type can be
// loaded several times (e.g. PRIMARY_ and REPLICA_ database settings).
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// Load populates v from the environment using its `env` tags. The default
// .env file is read once per process if present. Each (type, prefix) pair is
// parsed once; later calls copy the cached value, including a cached error.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		// .env is optional
		_ = godotenv.Load()
	})

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	key := typeName[T]() + "#" + o.prefix

	mu.Lock()
	e, ok := cache[key]
	if !ok {
		e = &entry{}
		cache[key] = e
	}
	mu.Unlock()

	e.once.Do(func() {
		var parsed T
		if err := env.ParseWithOptions(&parsed, env.Options{Prefix: o.prefix}); err != nil {
			e.err = errors.Join(ErrParsingConfig, err)
			return
		}
		e.value = parsed
	})

	if e.err != nil {
		return e.err
	}
	cached, ok := e.value.(T)
	if !ok {
		return ErrInvalidConfigType
	}
	*v = cached
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// LoadEnv reads the given .env files into the process environment without
// overriding variables that are already set.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// ResetCache drops every cached configuration. Intended for tests.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	cache = make(map[string]*entry)
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
