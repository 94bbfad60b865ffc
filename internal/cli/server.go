package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/config"
	"chapter-quiz-service/internal/infra/keyval"
	"chapter-quiz-service/internal/infra/memory"
	pgstorage "chapter-quiz-service/internal/infra/postgres"
	redisinfra "chapter-quiz-service/internal/infra/redis"
	"chapter-quiz-service/internal/kv"
	"chapter-quiz-service/internal/quizdata"
	transport "chapter-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	questionsTTL := config.TTLDuration(cfg.Cache.QuestionsTTL, 10*time.Minute)

	// Backend selection happens once here; everything downstream sees the
	// same Storage contract.
	var store app.Storage
	var questions app.QuestionRepository
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := pgstorage.NewStorage(pool)
		store = pg
		if redisClient != nil {
			questions = redisinfra.NewQuestionCache(redisClient, pg, questionsTTL)
			log.Printf("using postgres storage with redis question cache")
		} else {
			questions = memory.NewQuestionCache(pg, questionsTTL)
			log.Printf("using postgres storage")
		}
	case redisClient != nil:
		dataset, err := loadDataset(cfg)
		if err != nil {
			return err
		}
		kvStore := keyval.New(kv.NewRedisClient(redisClient), dataset)
		store = kvStore
		questions = memory.NewQuestionCache(kvStore, questionsTTL)
		log.Printf("using redis key-value storage")
	default:
		dataset, err := loadDataset(cfg)
		if err != nil {
			return err
		}
		kvStore := keyval.New(kv.NewStore(), dataset)
		store = kvStore
		questions = memory.NewQuestionCache(kvStore, questionsTTL)
		log.Printf("no database configured, using in-process fallback storage")
	}

	service := app.NewQuizService(store, questions)
	handler := transport.NewHandler(service)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting chapter quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadDataset(cfg config.Config) (keyval.Dataset, error) {
	if cfg.Content.Dataset != "" {
		return quizdata.LoadFile(cfg.Content.Dataset)
	}
	return quizdata.Default(), nil
}
