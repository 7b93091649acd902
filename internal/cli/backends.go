package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/app"
	"github.com/Josephvarghes/Edu-Stack/internal/config"
	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/Josephvarghes/Edu-Stack/internal/infra/memory"
	"github.com/Josephvarghes/Edu-Stack/internal/infra/postgres"
	infraredis "github.com/Josephvarghes/Edu-Stack/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// backends holds the optional external connections. A nil field means the
// in-process implementation is used for that concern.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func connect(ctx context.Context, cfg config.Config, log zerolog.Logger) (backends, func(), error) {
	var b backends
	cleanup := func() {
		if b.redis != nil {
			_ = b.redis.Close()
		}
		if b.pool != nil {
			b.pool.Close()
		}
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			cleanup()
			return backends{}, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("redis connected")
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return backends{}, nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		log.Info().Msg("postgres connected")
	}
	return b, cleanup, nil
}

// quizLoader picks the source of quiz definitions: Postgres, then a YAML file, then the built-in sample.
func quizLoader(cfg config.Config, b backends) (memory.QuizLoader, string, error) {
	switch {
	case b.pool != nil:
		return postgres.NewQuizLoader(b.pool), "postgres", nil
	case cfg.Quiz.File != "":
		loader, err := memory.NewFileQuizLoader(cfg.Quiz.File)
		if err != nil {
			return nil, "", fmt.Errorf("load quiz file: %w", err)
		}
		return loader, "file", nil
	default:
		return memory.NewStaticQuizLoader(sampleQuizzes()), "sample", nil
	}
}

func buildService(cfg config.Config, b backends, log zerolog.Logger) (*app.AttemptService, error) {
	loader, source, err := quizLoader(cfg, b)
	if err != nil {
		return nil, err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if b.redis != nil {
		quizzes = infraredis.NewQuizRepository(b.redis, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptRepository
	var attemptBackend string
	switch {
	case b.pool != nil:
		attempts, attemptBackend = postgres.NewAttemptStore(b.pool), "postgres"
	case b.redis != nil:
		attempts, attemptBackend = infraredis.NewAttemptStore(b.redis), "redis"
	default:
		attempts, attemptBackend = memory.NewAttemptStore(), "memory"
	}

	var results app.ResultPublisher
	if b.redis != nil {
		results = infraredis.NewResultQueue(b.redis, cfg.Results.Queue)
	} else {
		results = memory.NewResultRecorder(log)
	}

	log.Info().
		Str("quiz_source", source).
		Str("attempt_store", attemptBackend).
		Dur("quiz_ttl", quizTTL).
		Msg("backends selected")

	return app.NewAttemptService(attempts, quizzes,
		app.WithResultPublisher(results),
		app.WithLogger(log),
	), nil
}

// sampleQuizzes is served when neither Postgres nor a quiz file is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:                  "quiz-1",
			CourseID:            "course-1",
			Title:               "Warm-up",
			Subject:             "Arithmetic",
			TimeLimitMinutes:    10,
			PassingScorePercent: 60,
			AttemptsAllowed:     3,
			IsActive:            true,
			Questions: []domain.Question{
				{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOptionIndex: 1},
				{Text: "What is 7 - 3?", Options: []string{"4", "3", "10"}, CorrectOptionIndex: 0},
				{Text: "What is 3 * 3?", Options: []string{"6", "9", "33"}, CorrectOptionIndex: 1},
			},
		},
	}
}
