package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/hallbook/internal/auth"
	"github.com/kirinyoku/hallbook/internal/config"
	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/mq"
	"github.com/kirinyoku/hallbook/internal/postgres"
	redisx "github.com/kirinyoku/hallbook/internal/redis"
	"github.com/kirinyoku/hallbook/internal/repository"
	"github.com/kirinyoku/hallbook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/hallbook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/hallbook/internal/repository/redis"
	"github.com/kirinyoku/hallbook/internal/service/booking"
	httpgin "github.com/kirinyoku/hallbook/internal/transport/http/gin"
	"github.com/kirinyoku/hallbook/internal/uow"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisx.BookingsPubSub
	cache      *redisrepo.BookingCache
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Initialize the record store
	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}

	var (
		cache     booking.Cache
		notifiers []booking.Notifier
	)
	opts := httpgin.Options{Logger: logger}

	// Redis is optional
	if cfg.Redis.Addr != "" {
		rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)

		a.cache = redisrepo.NewBookingCache(redisrepo.New(rdb), logger, cfg.Redis.CatalogTTL, cfg.Redis.BookingTTL)
		a.pubsub = redisx.NewBookingsPubSub(rdb)
		cache = a.cache
		notifiers = append(notifiers, a.pubsub)

		opts.Idempotency = redisrepo.NewIdempotencyStore(rdb, 24*time.Hour, time.Minute)
		if cfg.Server.RateLimitPerMin > 0 {
			opts.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, cfg.Server.RateLimitPerMin, time.Minute)
		}
	}

	// RabbitMQ is optional
	if cfg.Rabbit.URL != "" {
		pub, err := mq.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		notifiers = append(notifiers, pub)
	}

	// Initialize services
	svc := booking.New(store, cache, logger, booking.Config{Location: cfg.Hall.Location()}, notifiers...)

	// Initialize Gin router
	router := httpgin.NewRouter(svc, auth.NewVerifier(cfg.JWTSecret), opts)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) newStore(ctx context.Context) (repository.UnitOfWork, error) {
	switch a.cfg.StoreDriver {
	case config.DriverMemory:
		halls := make([]domain.Hall, len(a.cfg.Memory.Halls))
		for i, name := range a.cfg.Memory.Halls {
			halls[i] = domain.Hall{ID: int64(i + 1), Name: name}
		}
		a.logger.Warn("using in-memory store; bookings are lost on restart", "halls", len(halls))
		return memory.New(halls, memory.DefaultSlots()), nil
	default:
		pool, err := postgres.New(ctx, postgres.Config{DSN: a.cfg.Postgres.DSN(), MaxConns: a.cfg.Postgres.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		store := postgresrepo.NewStore(pool)
		if a.cfg.Postgres.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}
		return uow.NewUoW(store), nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached bookings changed by other instances
	if a.pubsub != nil && a.cache != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, ev domain.BookingEvent) {
				if err := a.cache.InvalidateBooking(ctx, ev.BookingID); err != nil {
					a.logger.Warn("failed to invalidate booking", "booking_id", ev.BookingID, "error", err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
