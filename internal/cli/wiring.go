package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pyramid-aftercare/portal/internal/api/handler"
	"github.com/pyramid-aftercare/portal/internal/core/ports"
	"github.com/pyramid-aftercare/portal/internal/core/service"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/cache/file"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/config"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/db/inmemory"
	mongodb "github.com/pyramid-aftercare/portal/internal/infrastructure/db/mongo"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/db/postgres"
	redisstore "github.com/pyramid-aftercare/portal/internal/infrastructure/db/redis"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/identity"
	"github.com/pyramid-aftercare/portal/internal/infrastructure/queue"
	"github.com/pyramid-aftercare/portal/pkg/logger"
)

const devJWTSecret = "portal-development-secret"

var errMissingSecret = errors.New("JWT_SECRET is required in production")

// sessionStore is a session cache that also keeps the credential-store token.
type sessionStore interface {
	ports.SessionCache
	ports.TokenStore
}

// backends opens shared connections lazily and closes them together.
type backends struct {
	cfg *config.Config
	log zerolog.Logger

	mongo   *mongodb.Store
	redis   *goredis.Client
	pg      *sql.DB
	stamper *queue.LoginStamper
}

func newBackends(cfg *config.Config, log zerolog.Logger) *backends {
	return &backends{cfg: cfg, log: log}
}

func (b *backends) mongoStore(ctx context.Context) (*mongodb.Store, error) {
	if b.mongo != nil {
		return b.mongo, nil
	}
	store, err := mongodb.Open(ctx, mongodb.Config{
		URI:      b.cfg.Mongo.URI,
		Database: b.cfg.Mongo.Database,
		AppName:  "pyramid-portal",
	})
	if err != nil {
		return nil, err
	}
	b.mongo = store
	return store, nil
}

func (b *backends) redisClient(ctx context.Context) (*goredis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		URL:      b.cfg.Redis.URL,
		Addr:     b.cfg.Redis.Addr,
		Password: b.cfg.Redis.Password,
		DB:       b.cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	b.redis = rdb
	return rdb, nil
}

func (b *backends) postgres(ctx context.Context) (*sql.DB, error) {
	if b.pg != nil {
		return b.pg, nil
	}
	db, err := postgres.Open(ctx, postgres.Config{
		DSN:          b.cfg.Postgres.DSN,
		MaxOpenConns: b.cfg.Postgres.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	b.pg = db
	return db, nil
}

func (b *backends) profileRepository(ctx context.Context) (ports.ProfileRepository, error) {
	switch b.cfg.Profiles.Backend {
	case "mongo":
		store, err := b.mongoStore(ctx)
		if err != nil {
			return nil, err
		}
		repo := mongodb.NewProfileRepository(store.DB)
		if err := store.EnsureIndexes(ctx, repo); err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		db, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewProfileRepository(db), nil
	case "memory", "":
		b.log.Warn().Msg("profile store is in memory, profiles are lost on exit")
		return inmemory.NewProfileRepository(), nil
	}
	return nil, fmt.Errorf("unknown PROFILE_BACKEND %q", b.cfg.Profiles.Backend)
}

func (b *backends) identityRepository(ctx context.Context) (ports.IdentityRepository, error) {
	switch b.cfg.Identity.Backend {
	case "mongo":
		store, err := b.mongoStore(ctx)
		if err != nil {
			return nil, err
		}
		repo := mongodb.NewIdentityRepository(store.DB)
		if err := store.EnsureIndexes(ctx, repo); err != nil {
			return nil, err
		}
		return repo, nil
	case "memory", "":
		return inmemory.NewIdentityRepository(), nil
	}
	return nil, fmt.Errorf("unknown IDENTITY_BACKEND %q", b.cfg.Identity.Backend)
}

func (b *backends) tokenRevoker(ctx context.Context) (ports.TokenRevoker, error) {
	switch b.cfg.Identity.Revoker {
	case "redis":
		rdb, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return redisstore.NewTokenRevoker(rdb), nil
	case "memory", "":
		return inmemory.NewTokenRevoker(), nil
	}
	return nil, fmt.Errorf("unknown REVOCATION_BACKEND %q", b.cfg.Identity.Revoker)
}

func (b *backends) sessionStore(ctx context.Context) (sessionStore, error) {
	s := b.cfg.Session
	switch s.CacheBackend {
	case "file", "":
		return file.NewSessionCache(s.CacheDir, s.CacheKey), nil
	case "redis":
		rdb, err := b.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return redisstore.NewSessionCache(rdb, s.CacheKey, s.CacheTTL), nil
	case "memory":
		return inmemory.NewSessionCache(), nil
	}
	return nil, fmt.Errorf("unknown SESSION_CACHE %q", s.CacheBackend)
}

// checks returns readiness checks for the connections opened so far.
func (b *backends) checks() []handler.DependencyCheck {
	var out []handler.DependencyCheck
	if b.mongo != nil {
		out = append(out, handler.DependencyCheck{Name: "mongodb", Check: b.mongo.Ping})
	}
	if b.redis != nil {
		out = append(out, handler.RedisCheck(b.redis))
	}
	if b.pg != nil {
		out = append(out, handler.PostgresCheck(b.pg))
	}
	return out
}

func (b *backends) close() {
	if b.stamper != nil {
		b.stamper.Close()
	}
	if b.mongo != nil {
		if err := b.mongo.Close(context.Background()); err != nil {
			b.log.Warn().Err(err).Msg("mongo disconnect")
		}
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pg != nil {
		_ = b.pg.Close()
	}
}

// newResolver builds the session resolver for the configured credential mode.
func newResolver(ctx context.Context, cfg *config.Config, b *backends, log zerolog.Logger) (*service.SessionResolver, error) {
	store, err := b.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	var (
		creds    ports.CredentialStore
		profiles ports.ProfileRepository
	)
	switch cfg.Session.CredentialMode {
	case "remote":
		client := identity.NewClient(cfg.Session.IdentityURL, cfg.Session.RemoteTimeout)
		remote := identity.NewRemote(client, store, logger.Component(log, "credential-store"))
		creds = remote
		profiles = identity.NewProfileRepository(client, remote)
	case "local":
		if cfg.Identity.JWTSecret == "" {
			if cfg.IsProduction() {
				return nil, errMissingSecret
			}
			cfg.Identity.JWTSecret = devJWTSecret
		}
		identities, err := b.identityRepository(ctx)
		if err != nil {
			return nil, err
		}
		if profiles, err = b.profileRepository(ctx); err != nil {
			return nil, err
		}
		revoker, err := b.tokenRevoker(ctx)
		if err != nil {
			return nil, err
		}
		svc := service.NewIdentityService(identities, profiles, revoker, cfg.Identity.JWTSecret, cfg.Identity.TokenTTL, log)
		creds = identity.NewLocal(svc, store, logger.Component(log, "credential-store"))
	case "offline":
		creds = identity.Offline{}
		profiles = inmemory.NewProfileRepository()
	default:
		return nil, fmt.Errorf("unknown CREDENTIAL_MODE %q", cfg.Session.CredentialMode)
	}

	var opts []service.ResolverOption
	if !cfg.Session.DemoAccountsEnabled {
		opts = append(opts, service.WithDemoIdentities(nil))
	}
	if cfg.Session.StaleGuard {
		opts = append(opts, service.WithStaleGuard())
	}
	adapter := service.NewProfileAdapter(profiles, logger.Component(log, "profile-store"))
	if cfg.Session.StampWorkers > 0 {
		b.stamper = queue.NewLoginStamper(cfg.Session.StampWorkers, profiles, logger.Component(log, "last-login"))
		b.stamper.Start(ctx)
		adapter.WithStamper(b.stamper)
	}
	return service.NewSessionResolver(creds, adapter, store, logger.Component(log, "session-resolver"), opts...), nil
}
