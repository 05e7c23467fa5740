package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/tracer"
)

// backend is what the chosen store hands to the services.
type backend struct {
	uow          booking.UnitOfWork
	reads        booking.Repos
	required     map[string]api.Check
	close        func()
	afterStartup func(resolver *identity.JWTResolver)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store", cfg.StoreBackend),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(rootCtx, cfg.Tracing, cfg.Version)
	if err != nil {
		zlog.Fatal("tracer init error", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			zlog.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	var be backend
	switch cfg.StoreBackend {
	case config.BackendMemory:
		be = memoryBackend(zlog)
	default:
		be, err = postgresBackend(rootCtx, cfg, zlog)
		if err != nil {
			zlog.Fatal("postgres setup error", zap.Error(err))
		}
	}
	defer be.close()

	optional := map[string]api.Check{}
	locker := redisclient.Locker(redisclient.NoopLocker{})
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			zlog.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				zlog.Warn("error closing redis", zap.Error(err))
			}
		}()
		zlog.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL, cfg.LockWait)
		optional["redis"] = redisCheck(rdb)
	} else {
		zlog.Info("REDIS_ADDR not set, slot locking relies on the store alone")
	}

	m := metrics.NewCollector("clinic")
	resolver := identity.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)

	engine := booking.NewEngine(booking.Deps{
		UnitOfWork: be.uow,
		Reads:      be.reads,
		Locker:     locker,
		Clock:      identity.SystemClock{},
		Metrics:    m,
		Logger:     zlog,
	})

	router := api.NewRouter(api.RouterConfig{
		Engine:        engine,
		Availability:  availability.NewManager(be.reads.Slots, be.reads.Directory, zlog, availability.WithMetrics(m)),
		Notifications: notification.NewService(be.reads.Notifications),
		Records:       record.NewService(be.reads.Records),
		Resolver:      resolver,
		Metrics:       m,
		Logger:        zlog,
		Health:        api.NewHealthHandler(be.required, optional, cfg.Env, cfg.Version),
		RateLimitRPS:  cfg.RateLimitRPS,
		CORSOrigins:   cfg.CORSAllowedOrigins,
	})

	if be.afterStartup != nil {
		be.afterStartup(resolver)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zlog.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

func postgresBackend(ctx context.Context, cfg config.Config, zlog *zap.Logger) (backend, error) {
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPg()

	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		return backend{}, err
	}
	zlog.Info("connected to Postgres")

	if err := db.Migrate(pgCtx, pool); err != nil {
		pool.Close()
		return backend{}, err
	}

	return backend{
		uow:      booking.NewPgUnitOfWork(pool),
		reads:    booking.PgRepos(pool),
		required: map[string]api.Check{"postgres": postgresCheck(pool)},
		close:    pool.Close,
	}, nil
}

func memoryBackend(zlog *zap.Logger) backend {
	store := memstore.New()
	zlog.Warn("using the in-memory store, data is lost on restart")

	return backend{
		uow:      store,
		reads:    store.Repos(),
		required: map[string]api.Check{},
		close:    func() {},
		afterStartup: func(resolver *identity.JWTResolver) {
			seedMemory(store, resolver, zlog)
		},
	}
}

func postgresCheck(pool *pgxpool.Pool) api.Check {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

func redisCheck(rdb *redis.Client) api.Check {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
