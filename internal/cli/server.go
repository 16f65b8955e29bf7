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

	"github.com/manhtruong03/real-time-quiz-sub002/internal/app"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/config"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/infra/memory"
	pgstore "github.com/manhtruong03/real-time-quiz-sub002/internal/infra/postgres"
	redisstore "github.com/manhtruong03/real-time-quiz-sub002/internal/infra/redis"
	transport "github.com/manhtruong03/real-time-quiz-sub002/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz host server",
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

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	resultTTL := config.TTLDuration(cfg.Game.ResultTTL, 30*24*time.Hour)
	var results app.ResultRepository
	switch {
	case pool != nil:
		results = pgstore.NewResultWriter(pool)
	case redisClient != nil:
		results = redisstore.NewResultStore(redisClient, resultTTL)
	default:
		results = memory.NewResultStore()
	}

	service := app.NewGameService(sessions, quizRepo, results, cfg.Game.BasePointsMax)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz host on :%s", finalPort)
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

// sampleQuizzes provides a built-in quiz touching every block type; swap
// the loader for the Postgres-backed one in production.
func sampleQuizzes() map[string]domain.Quiz {
	mult := func(v float64) *float64 { return &v }
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Frontend fundamentals",
			Questions: []domain.Question{
				{
					Type:  domain.QuestionContent,
					Title: "Welcome! Answers score more the faster you are.",
				},
				{
					Type:            domain.QuestionQuiz,
					Title:           "Which framework renders this app?",
					TimeAvailableMs: 20000,
					Choices: []domain.Choice{
						{Answer: "Vue", Correct: false},
						{Answer: "Next.js", Correct: true},
						{Answer: "Svelte", Correct: false},
						{Answer: "Angular", Correct: false},
					},
				},
				{
					Type:             domain.QuestionJumble,
					Title:            "Order these from framework to utility",
					TimeAvailableMs:  30000,
					PointsMultiplier: mult(2),
					Choices: []domain.Choice{
						{Answer: "Next.js", Correct: true},
						{Answer: "React", Correct: true},
						{Answer: "Tailwind", Correct: true},
						{Answer: "Zod", Correct: true},
					},
				},
				{
					Type:             domain.QuestionSurvey,
					Title:            "Which package manager do you use?",
					TimeAvailableMs:  15000,
					PointsMultiplier: mult(0),
					Choices: []domain.Choice{
						{Answer: "npm"},
						{Answer: "yarn"},
						{Answer: "pnpm"},
						{Answer: "bun"},
					},
				},
				{
					Type:            domain.QuestionOpenEnded,
					Title:           "Name the package manager with content-addressable storage",
					TimeAvailableMs: 25000,
					Choices: []domain.Choice{
						{Answer: "pnpm", Correct: true},
					},
				},
			},
		},
	}
}
