// Package app wires configuration, storage, services, the event worker,
// and the HTTP server into a running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/nba-backend/internal/adapter/memory"
	"github.com/heartmarshall/nba-backend/internal/adapter/postgres"
	pgeventlog "github.com/heartmarshall/nba-backend/internal/adapter/postgres/eventlog"
	pgnba "github.com/heartmarshall/nba-backend/internal/adapter/postgres/nba"
	pgprocessed "github.com/heartmarshall/nba-backend/internal/adapter/postgres/processed"
	"github.com/heartmarshall/nba-backend/internal/config"
	"github.com/heartmarshall/nba-backend/internal/domain"
	"github.com/heartmarshall/nba-backend/internal/queue"
	"github.com/heartmarshall/nba-backend/internal/service/access"
	"github.com/heartmarshall/nba-backend/internal/service/action"
	"github.com/heartmarshall/nba-backend/internal/service/calc"
	"github.com/heartmarshall/nba-backend/internal/service/query"
	"github.com/heartmarshall/nba-backend/internal/service/refdata"
	"github.com/heartmarshall/nba-backend/internal/transport/middleware"
	"github.com/heartmarshall/nba-backend/internal/transport/rest"
)

// nbaStore is the union of what the query, action, and calc services need.
type nbaStore interface {
	List(ctx context.Context, filter domain.NbaFilter) ([]*domain.NbaRecord, int, error)
	Get(ctx context.Context, id string) (*domain.NbaRecord, error)
	UpsertFromEvent(ctx context.Context, eventID string, scope domain.Scope, eventContext map[string]any) (*domain.NbaRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.NbaRecord, error)
	DeactivateOtherActiveNewForScope(ctx context.Context, keepID string, scope domain.Scope) (int, error)
	DeactivateByIDs(ctx context.Context, ids []string) (int, error)
}

type eventLogStore interface {
	Add(ctx context.Context, rec domain.NbaEventLogRecord) (domain.NbaEventLogRecord, error)
	ListForNba(ctx context.Context, nbaID string) ([]domain.NbaEventLogRecord, error)
	FindActionEvent(ctx context.Context, nbaID string, status domain.Status) (domain.NbaEventLogRecord, error)
}

type processedLedger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type storage struct {
	nbas      nbaStore
	events    eventLogStore
	processed processedLedger
	tx        txManager
	pinger    dbPinger
	close     func()
}

// Run is the application entry point. It blocks until ctx is canceled or
// a component fails, then shuts everything down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("log_level", cfg.Log.Level),
	)

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	q := queue.New()

	calcSvc := calc.NewService(logger, store.nbas, store.events, store.processed, refdata.NewNoop(), store.tx)
	worker := calc.NewWorker(logger, q, calcSvc)

	policy := access.NewAllowAll()
	nbaHandler := rest.NewNbaHandler(
		query.NewService(logger, store.nbas, policy),
		action.NewService(logger, store.nbas, store.events, policy),
		logger,
	)
	eventsHandler := rest.NewEventsHandler(q, logger)
	healthHandler := rest.NewHealthHandler(store.pinger, q, BuildVersion())

	mux := rest.NewRouter(nbaHandler, eventsHandler, healthHandler)
	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Identity(),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
	)(mux)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &storage{
			nbas:      pgnba.New(pool),
			events:    pgeventlog.New(pool),
			processed: pgprocessed.New(pool),
			tx:        postgres.NewTxManager(pool),
			pinger:    pool,
			close:     pool.Close,
		}, nil
	default:
		return &storage{
			nbas:      memory.NewNbaStore(),
			events:    memory.NewEventLogStore(),
			processed: memory.NewProcessedLedger(),
			tx:        memory.NewTxRunner(),
			close:     func() {},
		}, nil
	}
}
