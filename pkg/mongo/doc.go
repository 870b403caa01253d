// Package mongo connects to MongoDB and provides a feature.Table backed by a
// collection.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(ctx)
//
//	table, err := mongo.NewFeatureTable(ctx, client.Database(cfg.Database).Collection(cfg.Collection))
//	if err != nil {
//		return err
//	}
//	store := feature.NewDurableStore(table, feature.DefaultDurableConfig())
//
// NewFeatureTable creates a unique index on (name, scope). Duplicate key
// errors surface as feature.ErrUniqueViolation, which DurableStore treats as a
// lost race and retries. Values are stored as their JSON encoding so every
// feature.Value kind round-trips exactly.
//
// Connection failures wrap ErrFailedToConnectToMongo; use errors.Is.
package mongo
