// Package redis connects to Redis with go-redis/v9 and exposes a readiness
// check. The client backs the shared rate limiter buckets and the opaque API
// token store.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
