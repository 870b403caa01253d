// Package environment propagates the deployment environment (development,
// staging, production) through context.Context.
//
// Feature resolvers use it to enable features per environment, and the logger
// package uses LoggerExtractor to stamp every record with the environment.
//
// # Usage
//
//	ctx = environment.WithContext(ctx, environment.Parse(os.Getenv("APP_ENV")))
//
//	if environment.IsProduction(ctx) {
//		// production-only behaviour
//	}
//
// Missing values resolve to the empty Environment; no helper returns an error.
package environment
