package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultHistoryLimit is how many attempts History returns when no limit is given.
	DefaultHistoryLimit = 5
	// MaxHistoryLimit caps History and bounds the Summary lookup.
	MaxHistoryLimit = 50

	DefaultPageSize = 10
	MaxPageSize     = 50
)

// AttemptService runs the quiz-attempt state machine: NoAttempt -> InProgress -> Completed.
type AttemptService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	results  ResultPublisher
	now      func() time.Time
	newID    func() string
	log      zerolog.Logger
}

// Option customizes an AttemptService.
type Option func(*AttemptService)

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *AttemptService) { s.now = now }
}

// WithIDGenerator replaces the attempt id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *AttemptService) { s.newID = newID }
}

// WithResultPublisher sets where finalized results are sent.
func WithResultPublisher(p ResultPublisher) Option {
	return func(s *AttemptService) { s.results = p }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *AttemptService) { s.log = log.With().Str("component", "attempt_service").Logger() }
}

func NewAttemptService(attempts AttemptRepository, quizzes QuizRepository, opts ...Option) *AttemptService {
	s := &AttemptService{
		attempts: attempts,
		quizzes:  quizzes,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new attempt on an active quiz and returns its first question.
// It never resumes: a live attempt for the pair yields domain.ErrAttemptInProgress.
func (s *AttemptService) Start(ctx context.Context, userID, quizID string) (domain.StartResult, error) {
	if userID == "" {
		return domain.StartResult{}, domain.ErrForbidden
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.StartResult{}, err
	}
	if !quiz.IsActive {
		return domain.StartResult{}, fmt.Errorf("%w: %s is inactive", domain.ErrQuizNotFound, quizID)
	}

	total := len(quiz.Questions)
	attempt := domain.QuizAttempt{
		ID:              s.newID(),
		UserID:          userID,
		QuizID:          quizID,
		StartedAt:       s.now().UTC(),
		TotalPoints:     total,
		UnansweredCount: total,
		Answers:         domain.Answers{},
		Quiz:            domain.Freeze(quiz),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return domain.StartResult{}, err
	}

	s.log.Info().
		Str("attempt_id", attempt.ID).
		Str("user_id", userID).
		Str("quiz_id", quizID).
		Int("total_questions", total).
		Msg("attempt started")

	result := domain.StartResult{
		AttemptID:      attempt.ID,
		TotalQuestions: total,
		TimeLimit:      attempt.Quiz.TimeLimitMinutes,
		StartedAt:      attempt.StartedAt,
	}
	if total > 0 {
		view, err := questionView(attempt, 0)
		if err != nil {
			return domain.StartResult{}, err
		}
		result.Question = &view
	}
	return result, nil
}

// Active returns the progress of the pair's live attempt.
func (s *AttemptService) Active(ctx context.Context, userID, quizID string) (domain.Progress, error) {
	attempt, err := s.active(ctx, userID, quizID)
	if err != nil {
		return domain.Progress{}, err
	}
	return progress(attempt), nil
}

// QuestionAt returns question index of the pair's live attempt with the learner's current selection.
func (s *AttemptService) QuestionAt(ctx context.Context, userID, quizID string, index int) (domain.QuestionView, error) {
	attempt, err := s.active(ctx, userID, quizID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return questionView(attempt, index)
}

// QuestionByAttempt is QuestionAt addressed by attempt id.
func (s *AttemptService) QuestionByAttempt(ctx context.Context, userID, attemptID string, index int) (domain.QuestionView, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	if attempt.UserID != userID {
		return domain.QuestionView{}, domain.ErrForbidden
	}
	if attempt.IsCompleted {
		return domain.QuestionView{}, domain.ErrAttemptCompleted
	}
	return questionView(attempt, index)
}

// SubmitAnswer grades and records one answer, overwriting any earlier answer to the same question.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, quizID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	var result domain.AnswerResult
	_, err := s.attempts.UpdateActive(ctx, userID, quizID, func(a *domain.QuizAttempt) error {
		if a.IsCompleted {
			return domain.ErrAttemptCompleted
		}
		r, err := applyAnswer(a, submission)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return domain.AnswerResult{}, s.mutationError(ctx, userID, quizID, err)
	}
	return result, nil
}

// Preview projects the score as if the attempt were submitted now. Unanswered questions count as wrong.
func (s *AttemptService) Preview(ctx context.Context, userID, quizID string) (domain.Preview, error) {
	attempt, err := s.active(ctx, userID, quizID)
	if err != nil {
		return domain.Preview{}, err
	}
	return preview(attempt, s.now()), nil
}

// ReviewStatuses classifies every question of the live attempt.
func (s *AttemptService) ReviewStatuses(ctx context.Context, userID, quizID string) (domain.Review, error) {
	attempt, err := s.active(ctx, userID, quizID)
	if err != nil {
		return domain.Review{}, err
	}
	return review(attempt), nil
}

// Finalize completes the live attempt, filling unanswered questions with blanks
// and recomputing the score from the full answer set.
func (s *AttemptService) Finalize(ctx context.Context, userID, quizID string) (domain.QuizResult, error) {
	now := s.now().UTC()
	attempt, err := s.attempts.UpdateActive(ctx, userID, quizID, func(a *domain.QuizAttempt) error {
		if a.IsCompleted {
			return domain.ErrAttemptCompleted
		}
		finalizeAttempt(a, now)
		return nil
	})
	if err != nil {
		return domain.QuizResult{}, s.mutationError(ctx, userID, quizID, err)
	}

	result := quizResult(attempt)
	s.log.Info().
		Str("attempt_id", attempt.ID).
		Str("user_id", userID).
		Str("quiz_id", quizID).
		Int("score", result.Score).
		Bool("passed", result.IsPassed).
		Msg("attempt finalized")

	if s.results != nil {
		if err := s.results.PublishResult(ctx, result); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID).Msg("failed to publish quiz result")
		}
	}
	return result, nil
}

// Summary reports the most recent completed attempt of the pair.
func (s *AttemptService) Summary(ctx context.Context, userID, quizID string) (domain.Summary, error) {
	attempts, err := s.attempts.ListByUser(ctx, userID, quizID, MaxHistoryLimit)
	if err != nil {
		return domain.Summary{}, err
	}
	for _, a := range attempts {
		if a.IsCompleted {
			return summary(a), nil
		}
	}
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Summary{}, err
	}
	return domain.Summary{}, fmt.Errorf("%w: no completed attempt", domain.ErrAttemptNotFound)
}

// History lists the pair's attempts newest first.
func (s *AttemptService) History(ctx context.Context, userID, quizID string, limit int) ([]domain.AttemptSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	attempts, err := s.attempts.ListByUser(ctx, userID, quizID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptSummary(a))
	}
	return out, nil
}

// QuizDetails returns the quiz without answer keys plus the caller's recent attempts.
func (s *AttemptService) QuizDetails(ctx context.Context, userID, quizID string) (domain.QuizDetails, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizDetails{}, err
	}
	details := domain.QuizDetails{
		ID:               quiz.ID,
		CourseID:         quiz.CourseID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		Subject:          quiz.Subject,
		TimeLimit:        quiz.TimeLimitMinutes,
		PassingScore:     quiz.PassingScorePercent,
		AttemptsAllowed:  quiz.AttemptsAllowed,
		IsActive:         quiz.IsActive,
		Questions:        make([]domain.PublicQuestion, 0, len(quiz.Questions)),
		PreviousAttempts: []domain.AttemptSummary{},
	}
	for _, q := range quiz.Questions {
		details.Questions = append(details.Questions, domain.PublicQuestion{
			Question: q.Text,
			Options:  append([]string(nil), q.Options...),
		})
	}
	if userID != "" {
		recent, err := s.History(ctx, userID, quizID, DefaultHistoryLimit)
		if err != nil {
			return domain.QuizDetails{}, err
		}
		details.PreviousAttempts = recent
	}
	return details, nil
}

// ListQuizzes pages through the catalog without answer keys.
func (s *AttemptService) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	quizzes, total, err := s.quizzes.ListQuizzes(ctx, filter)
	if err != nil {
		return domain.QuizPage{}, err
	}
	page := domain.QuizPage{
		Quizzes: make([]domain.QuizListItem, 0, len(quizzes)),
		Page:    filter.Page,
		Limit:   filter.Limit,
		Total:   total,
	}
	for _, q := range quizzes {
		page.Quizzes = append(page.Quizzes, domain.QuizListItem{
			ID:              q.ID,
			CourseID:        q.CourseID,
			Title:           q.Title,
			Description:     q.Description,
			Subject:         q.Subject,
			TimeLimit:       q.TimeLimitMinutes,
			PassingScore:    q.PassingScorePercent,
			AttemptsAllowed: q.AttemptsAllowed,
			IsActive:        q.IsActive,
			TotalQuestions:  len(q.Questions),
		})
	}
	return page, nil
}

// active loads the live attempt, telling an unknown quiz apart from a missing attempt.
func (s *AttemptService) active(ctx context.Context, userID, quizID string) (domain.QuizAttempt, error) {
	attempt, err := s.attempts.GetActive(ctx, userID, quizID)
	if err == nil {
		return attempt, nil
	}
	if !errors.Is(err, domain.ErrAttemptNotFound) {
		return domain.QuizAttempt{}, err
	}
	if _, qerr := s.quizzes.GetQuiz(ctx, quizID); qerr != nil {
		return domain.QuizAttempt{}, qerr
	}
	return domain.QuizAttempt{}, err
}

// mutationError turns a missing live attempt into ErrAttemptCompleted when the
// pair's latest attempt is already finished, so retried submits get a Conflict.
func (s *AttemptService) mutationError(ctx context.Context, userID, quizID string, err error) error {
	if !errors.Is(err, domain.ErrAttemptNotFound) {
		return err
	}
	latest, lerr := s.attempts.ListByUser(ctx, userID, quizID, 1)
	if lerr != nil {
		return lerr
	}
	if len(latest) == 1 && latest[0].IsCompleted {
		return domain.ErrAttemptCompleted
	}
	if _, qerr := s.quizzes.GetQuiz(ctx, quizID); qerr != nil {
		return qerr
	}
	return err
}
