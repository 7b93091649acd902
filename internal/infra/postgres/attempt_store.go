package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

const selectAttempt = `
	SELECT id, user_id, quiz_id, started_at, completed_at, is_completed,
	       total_points, earned_points, answered_count, unanswered_count, score,
	       answers, frozen_quiz
	FROM quiz_attempts`

// AttemptStore persists attempts in the quiz_attempts table. A partial unique
// index keeps one live attempt per (user, quiz); updates lock the row with
// SELECT ... FOR UPDATE.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Create(ctx context.Context, a domain.QuizAttempt) error {
	answers, frozen, err := encodeAttempt(a)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, user_id, quiz_id, started_at, completed_at, is_completed,
			total_points, earned_points, answered_count, unanswered_count, score, answers, frozen_quiz)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13::jsonb)`,
		a.ID, a.UserID, a.QuizID, a.StartedAt, a.CompletedAt, a.IsCompleted,
		a.TotalPoints, a.EarnedPoints, a.AnsweredCount, a.UnansweredCount, a.Score, answers, frozen)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAttemptInProgress
	}
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.QuizAttempt, error) {
	return scanAttempt(s.pool.QueryRow(ctx, selectAttempt+` WHERE id=$1`, attemptID))
}

func (s *AttemptStore) GetActive(ctx context.Context, userID, quizID string) (domain.QuizAttempt, error) {
	return scanAttempt(s.pool.QueryRow(ctx,
		selectAttempt+` WHERE user_id=$1 AND quiz_id=$2 AND NOT is_completed`, userID, quizID))
}

func (s *AttemptStore) UpdateActive(ctx context.Context, userID, quizID string, mutate func(*domain.QuizAttempt) error) (domain.QuizAttempt, error) {
	var updated domain.QuizAttempt
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		attempt, err := scanAttempt(tx.QueryRow(ctx,
			selectAttempt+` WHERE user_id=$1 AND quiz_id=$2 AND NOT is_completed FOR UPDATE`, userID, quizID))
		if err != nil {
			return err
		}
		if err := mutate(&attempt); err != nil {
			return err
		}
		answers, frozen, err := encodeAttempt(attempt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE quiz_attempts SET completed_at=$2, is_completed=$3, earned_points=$4,
				answered_count=$5, unanswered_count=$6, score=$7, answers=$8::jsonb, frozen_quiz=$9::jsonb
			WHERE id=$1`,
			attempt.ID, attempt.CompletedAt, attempt.IsCompleted, attempt.EarnedPoints,
			attempt.AnsweredCount, attempt.UnansweredCount, attempt.Score, answers, frozen)
		if err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		updated = attempt
		return nil
	})
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	return updated, nil
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID, quizID string, limit int) ([]domain.QuizAttempt, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx,
		selectAttempt+` WHERE user_id=$1 AND quiz_id=$2 ORDER BY started_at DESC LIMIT $3`,
		userID, quizID, lim)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := []domain.QuizAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func encodeAttempt(a domain.QuizAttempt) (answers, frozen string, err error) {
	ab, err := json.Marshal(a.Answers)
	if err != nil {
		return "", "", fmt.Errorf("encode answers: %w", err)
	}
	fb, err := json.Marshal(a.Quiz)
	if err != nil {
		return "", "", fmt.Errorf("encode frozen quiz: %w", err)
	}
	return string(ab), string(fb), nil
}

func scanAttempt(row pgx.Row) (domain.QuizAttempt, error) {
	var (
		a           domain.QuizAttempt
		completedAt *time.Time
		answers     []byte
		frozen      []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.StartedAt, &completedAt, &a.IsCompleted,
		&a.TotalPoints, &a.EarnedPoints, &a.AnsweredCount, &a.UnansweredCount, &a.Score,
		&answers, &frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.CompletedAt = completedAt
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("decode answers of %s: %w", a.ID, err)
	}
	if a.Answers == nil {
		a.Answers = domain.Answers{}
	}
	if err := json.Unmarshal(frozen, &a.Quiz); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("decode frozen quiz of %s: %w", a.ID, err)
	}
	return a, nil
}
