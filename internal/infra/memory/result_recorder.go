package memory

import (
	"context"
	"sync"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/rs/zerolog"
)

// recentResults bounds how many results a ResultRecorder retains.
const recentResults = 100

// ResultRecorder is the in-process app.ResultPublisher used when no queue is configured.
// It logs each result and keeps only the most recent ones for inspection.
type ResultRecorder struct {
	log     zerolog.Logger
	limit   int
	mu      sync.Mutex
	results []domain.QuizResult
}

func NewResultRecorder(log zerolog.Logger) *ResultRecorder {
	return &ResultRecorder{
		log:   log.With().Str("component", "result_recorder").Logger(),
		limit: recentResults,
	}
}

func (r *ResultRecorder) PublishResult(_ context.Context, result domain.QuizResult) error {
	r.mu.Lock()
	r.results = append(r.results, result)
	if over := len(r.results) - r.limit; over > 0 {
		r.results = append(r.results[:0], r.results[over:]...)
	}
	r.mu.Unlock()

	r.log.Info().
		Str("attempt_id", result.AttemptID).
		Str("user_id", result.UserID).
		Str("quiz_id", result.QuizID).
		Int("score", result.Score).
		Bool("passed", result.IsPassed).
		Msg("quiz result recorded")
	return nil
}

// Results returns the retained results, oldest first.
func (r *ResultRecorder) Results() []domain.QuizResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.QuizResult(nil), r.results...)
}
