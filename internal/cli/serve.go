package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
	"github.com/jengzang/taskrank-backend-go/internal/api"
	"github.com/jengzang/taskrank-backend-go/internal/config"
	"github.com/jengzang/taskrank-backend-go/internal/database"
	"github.com/jengzang/taskrank-backend-go/internal/handler"
	"github.com/jengzang/taskrank-backend-go/internal/middleware"
	"github.com/jengzang/taskrank-backend-go/internal/repository"
	"github.com/jengzang/taskrank-backend-go/internal/service"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("port", "", "listen address, e.g. :8000")
	flags.String("store", "", "current task set store: sqlite, redis or memory")
	flags.String("db-path", "", "SQLite database path")
	_ = a.v.BindPFlag("port", flags.Lookup("port"))
	_ = a.v.BindPFlag("store", flags.Lookup("store"))
	_ = a.v.BindPFlag("db_path", flags.Lookup("db-path"))

	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := service.NewTaskService(store, cfg.MaxBatchSize, analysis.WithWeights(cfg.Scoring.Weights()))
	if err != nil {
		return err
	}
	config.Watch(a.v, func(next config.Config) {
		if err := svc.UpdateWeights(next.Scoring.Weights()); err != nil {
			log.Printf("Keeping previous scoring weights: %v", err)
		}
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.RouterOptions{
		Tasks:        handler.NewTaskHandler(svc),
		Limiter:      limiter,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := api.NewServer(cfg.Port, router, cfg.CORS.AllowedOrigins)
	if err := srv.Start(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// openStore opens the configured current task set store
func openStore(ctx context.Context, cfg config.Config) (service.TaskSetRepository, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := database.Open(database.Config{Path: cfg.DBPath})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewTaskSetRepository(db), func() { db.Close() }, nil

	case config.StoreRedis:
		rdb, err := repository.NewRedisClient(ctx, repository.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewRedisTaskSetRepository(rdb, cfg.Redis.Key, cfg.Redis.TTL)
		return store, func() { rdb.Close() }, nil

	case config.StoreMemory:
		log.Println("Using in-memory task store; the current task set is lost on restart")
		return repository.NewMemoryTaskSetRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
