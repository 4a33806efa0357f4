package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	pgloader "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/logging"
	"live-quiz-service/internal/metrics"
	transport "live-quiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
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

// QuestionLoader is satisfied by both the static and the Postgres loaders.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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

	sessionTTL := config.TTLDuration(cfg.Quiz.TTL, 2*time.Hour)
	bankTTL := config.TTLDuration(cfg.Quiz.BankTTL, 10*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	var (
		sessions app.SessionStore
		ledger   app.AnswerLedger
		ranking  app.RankingStore
		bank     app.QuestionBank
	)
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient)
		ledger = redisstore.NewAnswerLedger(redisClient, sessionTTL)
		ranking = redisstore.NewRankingStore(redisClient, sessionTTL)
		bank = redisstore.NewQuestionBank(redisClient, loader, bankTTL)
		logger.Info("using redis stores", "addr", cfg.Redis.Addr)
	} else {
		memSessions := memory.NewSessionStore()
		memLedger := memory.NewAnswerLedger()
		memRanking := memory.NewRankingStore()
		memSessions.OnExpire(memRanking.Forget, memLedger.Forget)
		sessions, ledger, ranking = memSessions, memLedger, memRanking
		bank = memory.NewQuestionBank(loader, bankTTL)
		logger.Info("using in-memory stores")
	}

	m := metrics.New()
	service := app.NewQuizService(sessions, ledger, ranking, bank, app.Options{
		SessionTTL:           sessionTTL,
		MaxParticipants:      cfg.Quiz.MaxParticipants,
		TimeLimit:            cfg.Quiz.TimeLimit,
		DefaultQuestionCount: cfg.Quiz.DefaultQuestionCount,
		MaxQuestionCount:     cfg.Quiz.MaxQuestionCount,
		OpTimeout:            config.TTLDuration(cfg.Quiz.OpTimeout, 5*time.Second),
		Logger:               logger,
		Metrics:              m,
	})
	hub := transport.NewHub(logger, m)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/ws", transport.NewWSHandler(service, hub, logger).ServeWS)
	transport.NewAPI(service, hub, logger).Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would cut long-lived websocket connections.
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions is the bank used when no Postgres is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "e1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectAnswer: "4", Difficulty: domain.DifficultyEasy, Category: "math", Points: 10},
		{ID: "e2", Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, CorrectAnswer: "Mars", Difficulty: domain.DifficultyEasy, Category: "science", Points: 10},
		{ID: "e3", Prompt: "How many days are in a week?", Options: []string{"5", "6", "7", "8"}, CorrectAnswer: "7", Difficulty: domain.DifficultyEasy, Category: "general", Points: 10},
		{ID: "e4", Prompt: "What color do you get by mixing blue and yellow?", Options: []string{"Green", "Purple", "Orange", "Brown"}, CorrectAnswer: "Green", Difficulty: domain.DifficultyEasy, Category: "general", Points: 10},
		{ID: "m1", Prompt: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Canberra", "Perth"}, CorrectAnswer: "Canberra", Difficulty: domain.DifficultyMedium, Category: "geography", Points: 15},
		{ID: "m2", Prompt: "What is 12 * 12?", Options: []string{"124", "144", "132", "156"}, CorrectAnswer: "144", Difficulty: domain.DifficultyMedium, Category: "math", Points: 15},
		{ID: "m3", Prompt: "Which gas do plants absorb from the air?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, CorrectAnswer: "Carbon dioxide", Difficulty: domain.DifficultyMedium, Category: "science", Points: 15},
		{ID: "m4", Prompt: `Who wrote "Romeo and Juliet"?`, Options: []string{"Dickens", "Shakespeare", "Austen", "Tolstoy"}, CorrectAnswer: "Shakespeare", Difficulty: domain.DifficultyMedium, Category: "literature", Points: 15},
		{ID: "h1", Prompt: "What is the chemical symbol for tungsten?", Options: []string{"Tu", "Tg", "W", "Wo"}, CorrectAnswer: "W", Difficulty: domain.DifficultyHard, Category: "science", Points: 20},
		{ID: "h2", Prompt: "In which year did the Berlin Wall fall?", Options: []string{"1987", "1989", "1991", "1993"}, CorrectAnswer: "1989", Difficulty: domain.DifficultyHard, Category: "history", Points: 20},
		{ID: "h3", Prompt: "What is the derivative of ln(x)?", Options: []string{"x", "1/x", "e^x", "ln(x)/x"}, CorrectAnswer: "1/x", Difficulty: domain.DifficultyHard, Category: "math", Points: 20},
	}
}
