package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-rsvp-ledger/internal/allocator"
	"github.com/iliyamo/event-rsvp-ledger/internal/config"
	"github.com/iliyamo/event-rsvp-ledger/internal/database"
	"github.com/iliyamo/event-rsvp-ledger/internal/handler"
	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
	"github.com/iliyamo/event-rsvp-ledger/internal/lock"
	"github.com/iliyamo/event-rsvp-ledger/internal/logging"
	"github.com/iliyamo/event-rsvp-ledger/internal/metrics"
	"github.com/iliyamo/event-rsvp-ledger/internal/middleware"
	"github.com/iliyamo/event-rsvp-ledger/internal/queue"
	"github.com/iliyamo/event-rsvp-ledger/internal/repository"
	"github.com/iliyamo/event-rsvp-ledger/internal/router"
	"github.com/iliyamo/event-rsvp-ledger/internal/service"
	"github.com/iliyamo/event-rsvp-ledger/internal/sheets"
	"github.com/iliyamo/event-rsvp-ledger/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Env, os.Stdout)

	// server hash-password <plain> prints a value for ADMIN_PASSWORD_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := utils.HashPassword(os.Args[2], cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("hash password")
		}
		fmt.Println(hash)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("EVENT_TIMEZONE: %w", err)
	}
	policy, err := allocator.ParseCountPolicy(cfg.CountPolicy)
	if err != nil {
		return fmt.Errorf("LEDGER_COUNT_POLICY: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		if cfg.LockBackend == config.LockRedis {
			return fmt.Errorf("LOCK_BACKEND=redis: %w", err)
		}
		log.Warn().Err(err).Msg("redis unavailable; rate limiting and slot cache disabled")
	} else {
		defer rdb.Close()
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.LockBackend == config.LockRedis {
		locker = lock.NewRedis(rdb, lock.RedisOptions{TTL: cfg.LockTTL, Logger: log})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		publisher = service.AMQPPublisher{URL: cfg.RabbitURL}
	}

	alloc := allocator.New(store, allocator.Options{
		Threshold:   cfg.Threshold,
		CountPolicy: policy,
		Logger:      log,
	})
	svc := service.NewRSVPService(store, alloc, locker, service.Options{
		LedgerID:  cfg.LedgerID,
		Location:  loc,
		Publisher: publisher,
		Metrics:   metrics.New(reg),
		Logger:    log,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(logging.RequestLogger(log))

	router.RegisterRoutes(e, reg)
	router.RegisterRSVP(e, handler.NewRSVPHandler(svc, cfg.SubmitTimeout, log),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterPublic(e, handler.NewSlotsHandler(svc, alloc.Threshold()),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))
	if cfg.AdminEnabled() {
		router.RegisterAdmin(e, handler.NewAdminHandler(handler.AdminConfig{
			PasswordHash: cfg.AdminPasswordHash,
			JWTSecret:    cfg.JWTSecret,
			AccessTTLMin: cfg.AccessTTLMin,
		}, svc, log), cfg.JWTSecret)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", ":"+cfg.Port).
			Str("env", cfg.Env).
			Str("ledger", cfg.LedgerBackend).
			Str("lock", cfg.LockBackend).
			Int("threshold", cfg.Threshold).
			Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.ConsumerEnabled && cfg.RabbitURL != "" {
		g.Go(func() error {
			err := queue.StartSubmissionConsumer(gctx, queue.ConsumerOptions{
				URL:    cfg.RabbitURL,
				LogDir: cfg.LogDir,
				Logger: log,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// openStore builds the ledger backend named by LEDGER_BACKEND.
func openStore(ctx context.Context, cfg config.Config) (ledger.Store, func(), error) {
	switch cfg.LedgerBackend {
	case config.BackendMySQL:
		db, err := database.Open(ctx, database.Config{
			User:     cfg.DBUser,
			Password: cfg.DBPass,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			Name:     cfg.DBName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return repository.NewLedgerRepo(db, cfg.LedgerID), closer(db), nil
	case config.BackendSheets:
		s, err := sheets.New(ctx, cfg.SheetID, sheets.Credentials{
			ClientEmail: cfg.SheetClientEmail,
			PrivateKey:  cfg.SheetPrivateKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return ledger.NewMemoryStore(), func() {}, nil
	}
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
