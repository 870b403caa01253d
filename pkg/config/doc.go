// Package config loads configuration structs from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for parsing and github.com/joho/godotenv
// for optional .env files. Every featurekit adapter ships a Config struct with
// `env` and `envDefault` tags (feature.CacheConfig, feature.DurableConfig,
// pg.Config, redis.Config, mongo.Config) that is loaded through this package.
//
// # Usage
//
//	var cfg feature.CacheConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	var replica pg.Config
//	config.MustLoad(&replica, config.WithPrefix("REPLICA_"))
//
// Each (type, prefix) pair is parsed once per process and then served from an
// in-memory cache. ResetCache clears it between tests.
//
// # Error Handling
//
// Parse failures wrap ErrParsingConfig; a nil target returns ErrNilPointer.
package config
