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

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizmentor/internal/app"
	"quizmentor/internal/config"
	"quizmentor/internal/domain"
	"quizmentor/internal/infra/memory"
	pgstore "quizmentor/internal/infra/postgres"
	redisstore "quizmentor/internal/infra/redis"
	transport "quizmentor/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz attempt server",
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
	draftTTL := config.TTLDuration(cfg.Attempt.DraftTTL, 24*time.Hour)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	debounce := config.TTLDuration(cfg.Attempt.Debounce, app.DefaultDebounce)

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	}

	var loader interface {
		memory.QuizLoader
		app.QuizWriter
	} = memory.NewQuizStore(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizStore(pool)
	}

	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attemptStore interface {
		app.AttemptStore
		app.GradeStore
	} = memory.NewAttemptStore()
	if bunDB != nil {
		attemptStore = pgstore.NewAttemptStore(bunDB)
	}

	var drafts app.DraftStore = memory.NewDraftStore()
	if redisClient != nil {
		drafts = redisstore.NewDraftStore(redisClient, draftTTL)
	}

	sessions := memory.NewSessionStore()
	attemptService := app.NewAttemptService(quizRepo, attemptStore, drafts, sessions, debounce)
	quizService := app.NewQuizService(quizRepo, loader)
	gradingService := app.NewGradingService(attemptStore)

	var auth *transport.Authenticator
	if cfg.Auth.Secret != "" {
		auth = transport.NewAuthenticator(cfg.Auth.Secret)
	}
	api := transport.NewAPI(quizService, attemptService, gradingService)
	wsHandler := transport.NewWSHandler(attemptService)
	router := transport.NewRouter(api, wsHandler, auth)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizmentor on :%s", finalPort)
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

// sampleQuizzes seeds the in-memory store so the service is usable without
// Postgres; production deployments load quizzes from the database.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Getting started",
			TeacherID: "teacher-1",
			TimeLimit: 5,
			Questions: []domain.Question{
				{
					ID:            "q1",
					QuizID:        "quiz-1",
					Text:          "What is 2 + 2?",
					Type:          domain.MultipleChoice,
					Options:       []string{"3", "4", "5"},
					CorrectAnswer: "4",
					Points:        5,
					Order:         0,
				},
				{
					ID:            "q2",
					QuizID:        "quiz-1",
					Text:          "The sky is blue.",
					Type:          domain.TrueFalse,
					CorrectAnswer: "true",
					Points:        5,
					Order:         1,
				},
				{
					ID:     "q3",
					QuizID: "quiz-1",
					Text:   "Describe your favorite theorem.",
					Type:   domain.Essay,
					Points: 10,
					Order:  2,
				},
			},
		},
	}
}
