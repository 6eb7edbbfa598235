// Package mongo connects to MongoDB with the official v2 driver and exposes a
// readiness check.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
