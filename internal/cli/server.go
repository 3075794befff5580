package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
	"livequiz-service/internal/genai"
	"livequiz-service/internal/infra/memory"
	pgstore "livequiz-service/internal/infra/postgres"
	redisinfra "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	memStore := memory.NewQuizStore(sampleQuizzes())
	var loader redisinfra.QuizLoader = memStore
	var quizStore app.QuizStore = memStore
	if pool != nil {
		pg := pgstore.NewQuizStore(pool)
		loader = pg
		quizStore = pg
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var archive app.Archiver = memory.NewArchive()
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb := bun.NewDB(sqldb, pgdialect.New())
		defer bundb.Close()
		archive = pgstore.NewArchive(bundb)
	}

	var mirror app.ScoreMirror
	if redisClient != nil {
		mirror = redisinfra.NewScoreMirror(redisClient, redisTTL)
	}

	var generator app.Generator
	if cfg.Generator.URL != "" {
		generator = genai.NewClient(cfg.Generator.URL, config.TTLDuration(cfg.Generator.Timeout, 30*time.Second))
	}

	scoring := game.DefaultScoring
	if cfg.Game.BasePoints > 0 {
		scoring.BasePoints = cfg.Game.BasePoints
	}
	if cfg.Game.MinPoints > 0 {
		scoring.MinPoints = cfg.Game.MinPoints
	}

	registry := game.NewRegistryWithClock(scoring, game.DefaultGrace, time.Now)
	service := app.NewGameService(registry, quizRepo, app.Options{
		QuizStore: quizStore,
		Archive:   archive,
		Mirror:    mirror,
		Generator: generator,
	})

	retention := config.TTLDuration(cfg.Game.Retention, time.Hour)
	evictDone := make(chan struct{})
	go evictLoop(service, retention, evictDone)

	gateway := transport.NewGateway()
	wsHandler := transport.NewWSHandler(service, gateway)
	restHandler := transport.NewRESTHandler(service)

	router := mux.NewRouter()
	restHandler.Routes(router)
	router.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting livequiz service on :%s", finalPort)
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
	close(evictDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// evictLoop drops long-ended sessions from the live registry so PINs recycle.
// Durable history has already been archived by then.
func evictLoop(service *app.GameService, retention time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(retention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := service.EvictEnded(retention); n > 0 {
				log.Printf("evicted %d ended sessions from registry", n)
			}
		case <-done:
			return
		}
	}
}

// sampleQuizzes seeds the in-memory store for demo runs without a database.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Quick Arithmetic",
			CreatedBy: "demo",
			Questions: []domain.Question{
				{
					ID:               "q1",
					Text:             "What is 2 + 2?",
					Options:          []string{"3", "4", "5"},
					CorrectAnswer:    "4",
					TimeLimitSeconds: 30,
				},
				{
					ID:               "q2",
					Text:             "What is 6 × 7?",
					Options:          []string{"42", "36", "48"},
					CorrectAnswer:    "42",
					TimeLimitSeconds: 20,
				},
			},
		},
	}
}
