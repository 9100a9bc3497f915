package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/cache"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/realtime"
	"github.com/xavierca1/ligue-crm/internal/infra/worker"
	"github.com/xavierca1/ligue-crm/internal/store"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/internal/view"
)

var installTrigger bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sobe a API do painel e mantém os leads sincronizados",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&installTrigger, "install-trigger", false, "Create the NOTIFY trigger on the leads table before listening")
}

// changeFeed agrupa o que o transporte escolhido oferece.
type changeFeed struct {
	subscriber usecase.ChangeSubscriber
	publisher  usecase.ChangePublisher
	rabbit     *queue.RabbitMQ
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadStageCatalog(cfg.StagesFile)
	if err != nil {
		return err
	}

	// 1. Banco
	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if installTrigger {
		if err := database.InstallNotifyTrigger(ctx, db, cfg.LeadsTable, cfg.NotifyChannel); err != nil {
			return err
		}
		logger.Info("notify trigger instalado", zap.String("table", cfg.LeadsTable), zap.String("channel", cfg.NotifyChannel))
	}

	repo := database.NewLeadRepository(db, cfg.LeadsTable, logger)

	// 2. Feed de mudanças
	feed, err := openChangeFeed(cfg, logger)
	if err != nil {
		return err
	}
	if feed.rabbit != nil {
		defer feed.rabbit.Close()
	}

	// 3. Cache
	var (
		snapshotCache usecase.SnapshotCache
		redisHealth   interface {
			Ping(ctx context.Context) *redis.StatusCmd
		}
	)
	if cfg.RedisURI != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURI)
		if err != nil {
			logger.Warn("redis indisponível, seguindo sem cache", zap.Error(err))
		} else {
			defer rdb.Close()
			snapshotCache = cache.NewSnapshotCache(rdb, cfg.LeadsTable, cache.DefaultTTL)
			redisHealth = rdb
		}
	}

	// 4. UseCases
	metrics := middleware.PrometheusRecorder{}
	st := store.New(logger)
	ingest := usecase.NewIngestLeadsUseCase(
		repo, st, feed.subscriber, snapshotCache, metrics,
		usecase.ChangePolicy(cfg.ChangePolicy), logger,
	)
	pipeline := view.NewPipeline(catalog, cfg.PageSize, cfg.Location())
	dashboard := usecase.NewDashboardUseCase(st, pipeline)
	edit := usecase.NewEditSessionUseCase(repo, ingest, feed.publisher, catalog, metrics, logger)

	// 5. Handlers
	hub := realtime.NewHub(originChecker(cfg.AllowedOrigins), logger)
	detach := hub.Attach(st)
	defer detach()

	dashboardHandler := handlers.NewDashboardHandler(dashboard, ingest, cfg.RefreshRateLimit, logger)
	defer dashboardHandler.Close()

	var amqpConn *amqp.Connection
	if feed.rabbit != nil {
		amqpConn = feed.rabbit.Conn
	}
	health := handlers.NewHealthHandler(db, amqpConn, redisHealth, ingest)

	router := handlers.NewRouter(handlers.RouterConfig{
		Dashboard:      dashboardHandler,
		Edit:           handlers.NewEditHandler(edit, dashboard),
		Health:         health,
		Realtime:       hub,
		AllowedOrigins: cfg.AllowedOrigins,
		AccessLog:      verbose,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Loop principal
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := ingest.Start(gctx)
		if usecase.IsIngestionError(err) {
			logger.Warn("primeira carga falhou, aguardando próxima mudança ou refresh", zap.Error(err))
			return nil
		}
		return err
	})

	g.Go(func() error {
		worker.NewResyncWorker(ingest, cfg.ResyncInterval, logger).Start(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("servidor do painel rodando", zap.String("port", cfg.Port), zap.String("transport", cfg.ChangeTransport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hub.Close()
		err := srv.Shutdown(shutdownCtx)
		if cerr := ingest.Close(); cerr != nil {
			logger.Warn("falha ao fechar assinatura", zap.Error(cerr))
		}
		return err
	})

	err = g.Wait()
	logger.Info("servidor encerrado")
	return err
}

func openChangeFeed(cfg *config.Config, logger *zap.Logger) (changeFeed, error) {
	switch cfg.ChangeTransport {
	case config.TransportPostgres:
		return changeFeed{subscriber: database.NewChangeListener(cfg.DatabaseURL, cfg.NotifyChannel, logger)}, nil

	case config.TransportRabbitMQ:
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return changeFeed{}, err
		}
		queueName, err := rmq.DeclareInstanceQueue(cfg.RabbitMQQueue)
		if err != nil {
			rmq.Close()
			return changeFeed{}, err
		}
		pubCh, err := rmq.Conn.Channel()
		if err != nil {
			rmq.Close()
			return changeFeed{}, err
		}
		return changeFeed{
			subscriber: queue.NewChangeConsumer(rmq.Ch, queueName, logger),
			publisher:  queue.NewProducer(pubCh),
			rabbit:     rmq,
		}, nil
	}
	return changeFeed{}, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
