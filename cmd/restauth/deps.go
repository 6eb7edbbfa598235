package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/restauth/pkg/config"
	"github.com/dmitrymomot/restauth/pkg/credential"
	"github.com/dmitrymomot/restauth/pkg/dynamo"
	"github.com/dmitrymomot/restauth/pkg/httpserver"
	"github.com/dmitrymomot/restauth/pkg/jwt"
	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/mfa/dynamostore"
	"github.com/dmitrymomot/restauth/pkg/mfa/mongostore"
	"github.com/dmitrymomot/restauth/pkg/mfa/pgstore"
	"github.com/dmitrymomot/restauth/pkg/mongo"
	"github.com/dmitrymomot/restauth/pkg/pg"
	"github.com/dmitrymomot/restauth/pkg/ratelimiter"
	"github.com/dmitrymomot/restauth/pkg/redis"
)

// dependencies opens backends on demand and remembers how to close them.
type dependencies struct {
	log     *slog.Logger
	checks  map[string]httpserver.Check
	closers []func()
	redis   *goredis.Client
}

func newDependencies(log *slog.Logger) *dependencies {
	return &dependencies{log: log, checks: make(map[string]httpserver.Check)}
}

func (d *dependencies) onClose(fn func()) {
	d.closers = append(d.closers, fn)
}

func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (d *dependencies) mfaStore(ctx context.Context, backend string) (mfa.Store, error) {
	switch backend {
	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("load postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		d.onClose(pool.Close)
		if err := pg.Migrate(ctx, pool, pgstore.Migrations(), cfg, d.log); err != nil {
			return nil, err
		}
		d.checks["postgres"] = pg.Healthcheck(pool)
		return pgstore.New(pool), nil

	case "mongo":
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("load mongo config: %w", err)
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		d.onClose(func() { _ = client.Disconnect(context.Background()) })
		store := mongostore.New(client.Database(cfg.Database), "")
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		d.checks["mongo"] = mongo.Healthcheck(client)
		return store, nil

	case "dynamo":
		var cfg dynamo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("load dynamo config: %w", err)
		}
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := dynamostore.New(client, cfg.Table)
		if err := store.EnsureTable(ctx, time.Minute); err != nil {
			return nil, err
		}
		d.checks["dynamo"] = dynamo.Healthcheck(client, cfg.Table)
		return store, nil

	default:
		d.log.Warn("using in-memory MFA store, enrollments are lost on restart", logger.Component("restauth"))
		return mfa.NewMemoryStore(), nil
	}
}

func (d *dependencies) redisClient(ctx context.Context) (*goredis.Client, error) {
	if d.redis != nil {
		return d.redis, nil
	}
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load redis config: %w", err)
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.onClose(func() { _ = client.Close() })
	d.checks["redis"] = redis.Healthcheck(client)
	d.redis = client
	return client, nil
}

func (d *dependencies) credentials(ctx context.Context, cfg credential.Config) (*credential.Service, error) {
	var opts []credential.Option

	switch cfg.Mode {
	case credential.ModeJWT:
		var jwtCfg credential.JWTConfig
		if err := config.Load(&jwtCfg); err != nil {
			return nil, fmt.Errorf("load jwt config: %w", err)
		}
		var revoked credential.RevocationList = credential.NewMemoryRevocationList()
		if cfg.TokenStore == "redis" {
			client, err := d.redisClient(ctx)
			if err != nil {
				return nil, err
			}
			revoked = credential.NewRedisRevocationList(client, "")
		}
		issuer, err := credential.NewJWTIssuer(jwtCfg,
			credential.WithTokenOptions(jwt.WithLeeway(5*time.Second)),
			credential.WithRevocationList(revoked),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, credential.WithJWT(issuer))

	case credential.ModeToken:
		var tokens credential.TokenStore = credential.NewMemoryTokenStore()
		if cfg.TokenStore == "redis" {
			client, err := d.redisClient(ctx)
			if err != nil {
				return nil, err
			}
			tokens = credential.NewRedisTokenStore(client, "")
		}
		opts = append(opts, credential.WithOpaque(credential.NewOpaqueIssuer(tokens)))
	}

	if cfg.Mode == credential.ModeSession || cfg.SessionLogin {
		var secret struct {
			Key string `env:"AUTH_SESSION_SECRET,required"`
		}
		if err := config.Load(&secret); err != nil {
			return nil, fmt.Errorf("load session secret: %w", err)
		}
		sessions, err := credential.NewCookieSessions([]byte(secret.Key), cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, credential.WithSessions(sessions))
	}

	return credential.New(cfg, opts...)
}

func (d *dependencies) rateLimiter(ctx context.Context) (*ratelimiter.Bucket, error) {
	var cfg ratelimiter.Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load rate limit config: %w", err)
	}

	var store ratelimiter.Store
	switch cfg.Backend {
	case "redis":
		client, err := d.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		store = ratelimiter.NewRedisStore(client)
	default:
		mem := ratelimiter.NewMemoryStore()
		d.onClose(mem.Close)
		store = mem
	}
	return ratelimiter.NewBucket(store, cfg)
}
