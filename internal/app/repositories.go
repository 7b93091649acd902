package app

import (
	"context"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
)

// QuizRepository is the quiz catalog (a cache over the backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ListQuizzes returns the requested page of matching quizzes and the total number of matches.
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, int, error)
}

// AttemptRepository abstracts how attempts are stored (in-memory, Redis, Postgres).
//
// Implementations guarantee at most one uncompleted attempt per (user, quiz)
// and apply UpdateActive atomically per pair: concurrent updates of the same
// pair are serialized and a failing mutate leaves the stored attempt unchanged.
// Every returned attempt is a snapshot the caller may keep.
type AttemptRepository interface {
	// Create stores a new live attempt or fails with domain.ErrAttemptInProgress.
	Create(ctx context.Context, attempt domain.QuizAttempt) error
	// Get loads any attempt by id or fails with domain.ErrAttemptNotFound.
	Get(ctx context.Context, attemptID string) (domain.QuizAttempt, error)
	// GetActive loads the live attempt of the pair or fails with domain.ErrAttemptNotFound.
	GetActive(ctx context.Context, userID, quizID string) (domain.QuizAttempt, error)
	// UpdateActive runs mutate on the live attempt of the pair and persists the result.
	// Once mutate marks the attempt completed it stops being the pair's live attempt.
	UpdateActive(ctx context.Context, userID, quizID string, mutate func(*domain.QuizAttempt) error) (domain.QuizAttempt, error)
	// ListByUser returns the pair's attempts newest first; limit <= 0 means all.
	ListByUser(ctx context.Context, userID, quizID string, limit int) ([]domain.QuizAttempt, error)
}

// ResultPublisher hands finalized results to downstream consumers such as certificate issuance.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result domain.QuizResult) error
}
