// Package logger builds *slog.Logger instances for featurekit services and
// defines the attribute helpers used across the module, so the same keys
// ("feature", "scope", "snapshot_id", ...) appear in every log line.
//
// New creates a logger from functional options. The handler is wrapped by
// LogHandlerDecorator, which runs ContextExtractor callbacks on every record;
// this is how request-scoped values such as the environment reach the logs.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "flags"),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//
//	log.WarnContext(ctx, "unknown feature resolved",
//		logger.Feature("beta"),
//		logger.Scope(scope.Key()),
//	)
//
// Helpers that take optional values (Error, Actor) return an empty Attr when
// there is nothing to record, so callers can pass them unconditionally.
package logger
