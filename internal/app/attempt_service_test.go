package app_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/app"
	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/Josephvarghes/Edu-Stack/internal/infra/memory"
	"github.com/rs/zerolog"
)

var startTime = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service *app.AttemptService
	store   *memory.AttemptStore
	loader  *mutableLoader
	results *memory.ResultRecorder
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewAttemptStore(),
		loader:  &mutableLoader{quizzes: testQuizzes()},
		results: memory.NewResultRecorder(zerolog.Nop()),
		now:     startTime,
	}
	seq := 0
	f.service = app.NewAttemptService(f.store, f.loader,
		app.WithClock(func() time.Time { return f.now }),
		app.WithIDGenerator(func() string { seq++; return fmt.Sprintf("attempt-%d", seq) }),
		app.WithResultPublisher(f.results),
	)
	return f
}

func TestStartReturnsFirstQuestionWithoutAnswerKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.service.Start(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.AttemptID != "attempt-1" || res.TotalQuestions != 5 || res.TimeLimit != 10 {
		t.Fatalf("unexpected start result: %+v", res)
	}
	if res.Question == nil || res.Question.QuestionIndex != 0 || res.Question.Question != "Q0" {
		t.Fatalf("expected first question, got %+v", res.Question)
	}
	if res.Question.CurrentAnswer != nil {
		t.Fatalf("expected no selection yet")
	}

	stored, _ := f.store.GetActive(ctx, "u1", "five")
	if stored.TotalPoints != 5 || stored.UnansweredCount != 5 || stored.AnsweredCount != 0 || len(stored.Answers) != 0 {
		t.Fatalf("unexpected initial attempt: %+v", stored)
	}
	if !stored.StartedAt.Equal(startTime) {
		t.Fatalf("expected startedAt %v, got %v", startTime, stored.StartedAt)
	}
}

func TestStartSingleLiveAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Start(ctx, "u1", "five"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.service.Start(ctx, "u1", "five"); !errors.Is(err, domain.ErrAttemptInProgress) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if domain.KindOf(domain.ErrAttemptInProgress) != domain.KindConflict {
		t.Fatalf("expected in-progress to be a conflict")
	}

	if _, err := f.service.Finalize(ctx, "u1", "five"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := f.service.Start(ctx, "u1", "five"); err != nil {
		t.Fatalf("retake after completion: %v", err)
	}
}

func TestStartConcurrentYieldsOneAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.service = app.NewAttemptService(f.store, f.loader)

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.service.Start(ctx, "u1", "five")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrAttemptInProgress):
				conflicts++
			}
		}()
	}
	wg.Wait()
	if ok != 1 || conflicts != callers-1 {
		t.Fatalf("expected 1 start and %d conflicts, got %d and %d", callers-1, ok, conflicts)
	}
}

func TestStartRejectsUnknownOrInactiveQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Start(ctx, "u1", "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := f.service.Start(ctx, "u1", "inactive"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected inactive quiz to be not found, got %v", err)
	}
	if _, err := f.service.Start(ctx, "", "five"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected missing user to be forbidden, got %v", err)
	}
}

func TestSubmitAnswerIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")

	first, err := f.service.SubmitAnswer(ctx, "u1", "five", answer(2, 0))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := f.service.SubmitAnswer(ctx, "u1", "five", answer(2, 0))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if first.IsCorrect != second.IsCorrect || first.RunningScore != second.RunningScore || first.AnsweredCount != second.AnsweredCount {
		t.Fatalf("expected identical results, got %+v then %+v", first, second)
	}
	if !second.IsCorrect || second.RunningScore != 1 || second.AnsweredCount != 1 {
		t.Fatalf("unexpected result after resubmit: %+v", second)
	}

	stored, _ := f.store.GetActive(ctx, "u1", "five")
	if stored.AnsweredCount != 1 || stored.UnansweredCount != 4 || stored.EarnedPoints != 1 || len(stored.Answers) != 1 {
		t.Fatalf("counters moved on identical resubmit: %+v", stored)
	}
}

func TestSubmitAnswerChangesAdjustEarnedPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")

	res, _ := f.service.SubmitAnswer(ctx, "u1", "five", answer(1, 0))
	if !res.IsCorrect || res.RunningScore != 1 {
		t.Fatalf("expected correct answer, got %+v", res)
	}

	res, err := f.service.SubmitAnswer(ctx, "u1", "five", answer(1, 2))
	if err != nil {
		t.Fatalf("change answer: %v", err)
	}
	if res.IsCorrect || res.RunningScore != 0 || res.AnsweredCount != 1 {
		t.Fatalf("expected correct->incorrect to drop a point, got %+v", res)
	}

	res, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(1, 3))
	if res.RunningScore != 0 {
		t.Fatalf("incorrect->incorrect must not move points, got %+v", res)
	}

	res, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(1, 0))
	if !res.IsCorrect || res.RunningScore != 1 || res.AnsweredCount != 1 {
		t.Fatalf("expected incorrect->correct to add a point, got %+v", res)
	}
}

func TestSubmitAnswerNavigation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")

	res, _ := f.service.SubmitAnswer(ctx, "u1", "five", answer(3, 0))
	if !res.HasNext || res.NextIndex == nil || *res.NextIndex != 4 {
		t.Fatalf("expected next index 4, got %+v", res)
	}
	res, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(4, 0))
	if res.HasNext || res.NextIndex != nil {
		t.Fatalf("expected last question to have no next, got %+v", res)
	}
}

func TestSubmitAnswerRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")

	cases := []struct {
		name string
		sub  domain.AnswerSubmission
		want error
	}{
		{"index one past end", answer(5, 0), domain.ErrQuestionIndex},
		{"negative index", answer(-1, 0), domain.ErrQuestionIndex},
		{"option past end", answer(0, 4), domain.ErrOptionIndex},
		{"negative option", answer(0, -1), domain.ErrOptionIndex},
		{"negative time", domain.AnswerSubmission{QuestionIndex: 0, SelectedOptionIndex: 0, TimeSpent: intPtr(-3)}, domain.ErrInvalidAnswer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.SubmitAnswer(ctx, "u1", "five", tc.sub)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if domain.KindOf(err) != domain.KindInvalidInput {
				t.Fatalf("expected invalid input kind, got %s", domain.KindOf(err))
			}
		})
	}

	stored, _ := f.store.GetActive(ctx, "u1", "five")
	if stored.AnsweredCount != 0 || stored.EarnedPoints != 0 || len(stored.Answers) != 0 {
		t.Fatalf("rejected submissions mutated the attempt: %+v", stored)
	}
}

func TestSubmitAnswerWithoutAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.SubmitAnswer(ctx, "u1", "five", answer(0, 0)); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "u1", "missing", answer(0, 0)); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestConcurrentSubmitsKeepCountersConsistent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// alternate between the correct and a wrong option on the same question
			_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(0, i%2))
		}(i)
	}
	wg.Wait()

	stored, _ := f.store.GetActive(ctx, "u1", "five")
	if stored.AnsweredCount != 1 || stored.UnansweredCount != 4 {
		t.Fatalf("lost update on counters: %+v", stored)
	}
	wantEarned := 0
	if stored.Answers[0].IsCorrect {
		wantEarned = 1
	}
	if stored.EarnedPoints != wantEarned {
		t.Fatalf("earned points drifted from answers: earned=%d answer=%+v", stored.EarnedPoints, stored.Answers[0])
	}
}

func TestQuestionAtReflectsSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := mustStart(t, f, "u1", "five")

	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", domain.AnswerSubmission{QuestionIndex: 2, SelectedOptionIndex: 3, IsSavedForReview: true})

	view, err := f.service.QuestionAt(ctx, "u1", "five", 2)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if view.CurrentAnswer == nil || *view.CurrentAnswer != 3 || !view.IsSavedForReview {
		t.Fatalf("expected saved selection, got %+v", view)
	}
	if view.AttemptID != start.AttemptID || len(view.Options) != 4 {
		t.Fatalf("unexpected view: %+v", view)
	}

	byID, err := f.service.QuestionByAttempt(ctx, "u1", start.AttemptID, 2)
	if err != nil || byID.CurrentAnswer == nil || *byID.CurrentAnswer != 3 {
		t.Fatalf("expected same view by attempt id, got %+v, %v", byID, err)
	}
	if _, err := f.service.QuestionByAttempt(ctx, "u2", start.AttemptID, 2); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected other user to be forbidden, got %v", err)
	}

	if _, err := f.service.QuestionAt(ctx, "u1", "five", 5); !errors.Is(err, domain.ErrQuestionIndex) {
		t.Fatalf("expected index error, got %v", err)
	}
	if _, err := f.service.QuestionAt(ctx, "u2", "five", 0); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no attempt for u2, got %v", err)
	}
	if _, err := f.service.QuestionAt(ctx, "u1", "missing", 0); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected unknown quiz, got %v", err)
	}
}

func TestPreviewAndFinalizeAgree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")

	// 3 correct, 2 incorrect
	for i, opt := range []int{0, 0, 0, 1, 2} {
		if _, err := f.service.SubmitAnswer(ctx, "u1", "five", answer(i, opt)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	f.now = startTime.Add(7*time.Minute + 30*time.Second)

	p, err := f.service.Preview(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if p.ScorePreview != 60 || !p.IsPassed || p.AnsweredCount != 5 || p.UnansweredCount != 0 || p.TimeTakenMinutes != 7 {
		t.Fatalf("unexpected preview: %+v", p)
	}
	if p.TimeExceeded {
		t.Fatalf("7 of 10 minutes should not be exceeded")
	}

	res, err := f.service.Finalize(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Score != 60 || res.EarnedPoints != 3 || res.TotalPoints != 5 || !res.IsPassed {
		t.Fatalf("unexpected final result: %+v", res)
	}
	if res.Score != p.ScorePreview {
		t.Fatalf("preview %d disagrees with final %d", p.ScorePreview, res.Score)
	}
}

func TestPreviewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(0, 0))

	before, _ := f.store.GetActive(ctx, "u1", "five")
	for i := 0; i < 3; i++ {
		if _, err := f.service.Preview(ctx, "u1", "five"); err != nil {
			t.Fatalf("preview: %v", err)
		}
	}
	after, _ := f.store.GetActive(ctx, "u1", "five")
	if before.EarnedPoints != after.EarnedPoints || len(before.Answers) != len(after.Answers) || after.IsCompleted {
		t.Fatalf("preview mutated the attempt: before=%+v after=%+v", before, after)
	}

	p, _ := f.service.Preview(ctx, "u1", "five")
	if p.ScorePreview != 20 || p.IsPassed {
		t.Fatalf("expected unanswered counted as wrong, got %+v", p)
	}
}

func TestReviewStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(0, 0))
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", domain.AnswerSubmission{QuestionIndex: 3, SelectedOptionIndex: 2, IsSavedForReview: true})

	r, err := f.service.ReviewStatuses(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if r.Correct != 1 || r.Incorrect != 1 || r.NotAnswered != 3 || len(r.Statuses) != 5 {
		t.Fatalf("unexpected counts: %+v", r)
	}
	want := []domain.QuestionState{domain.StateCorrect, domain.StateNotAnswered, domain.StateNotAnswered, domain.StateIncorrect, domain.StateNotAnswered}
	for i, s := range r.Statuses {
		if s.QuestionIndex != i || s.Status != want[i] {
			t.Fatalf("status %d: expected %s, got %+v", i, want[i], s)
		}
	}
	if !r.Statuses[3].IsSavedForReview {
		t.Fatalf("expected review flag on question 3")
	}
}

func TestFinalizeMaterializesBlanks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := mustStart(t, f, "u1", "five")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(1, 0))
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(4, 3))

	f.now = startTime.Add(4 * time.Minute)
	res, err := f.service.Finalize(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Score != 20 || res.EarnedPoints != 1 || res.IsPassed {
		t.Fatalf("unexpected result: %+v", res)
	}

	stored, _ := f.store.Get(ctx, start.AttemptID)
	if !stored.IsCompleted || stored.CompletedAt == nil || !stored.CompletedAt.Equal(f.now) {
		t.Fatalf("expected completed attempt, got %+v", stored)
	}
	if len(stored.Answers) != stored.TotalPoints {
		t.Fatalf("expected %d answers, got %d", stored.TotalPoints, len(stored.Answers))
	}
	for _, idx := range []int{0, 2, 3} {
		ans := stored.Answers[idx]
		if ans.SelectedOptionIndex != nil || ans.IsCorrect {
			t.Fatalf("expected blank answer at %d, got %+v", idx, ans)
		}
	}
	if stored.AnsweredCount != 2 || stored.UnansweredCount != 3 {
		t.Fatalf("unexpected counters: %+v", stored)
	}

	published := f.results.Results()
	if len(published) != 1 || published[0].AttemptID != start.AttemptID || published[0].Score != 20 {
		t.Fatalf("expected published result, got %+v", published)
	}
}

func TestFinalizeRecomputesFromAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "five")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(0, 0))

	// simulate a drifted cache counter
	_, _ = f.store.UpdateActive(ctx, "u1", "five", func(a *domain.QuizAttempt) error {
		a.EarnedPoints = 4
		return nil
	})

	res, err := f.service.Finalize(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.EarnedPoints != 1 || res.Score != 20 {
		t.Fatalf("expected recompute from answers, got %+v", res)
	}
}

func TestPostCompletionImmutability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := mustStart(t, f, "u1", "five")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", answer(0, 0))
	if _, err := f.service.Finalize(ctx, "u1", "five"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	before, _ := f.store.Get(ctx, start.AttemptID)

	if _, err := f.service.Finalize(ctx, "u1", "five"); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected second finalize to conflict, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "u1", "five", answer(1, 0)); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected submit after completion to conflict, got %v", err)
	}
	if _, err := f.service.QuestionByAttempt(ctx, "u1", start.AttemptID, 0); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected completed attempt to refuse questions, got %v", err)
	}
	if _, err := f.service.Preview(ctx, "u1", "five"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no live attempt for preview, got %v", err)
	}

	after, _ := f.store.Get(ctx, start.AttemptID)
	if after.Score != before.Score || after.EarnedPoints != before.EarnedPoints || len(after.Answers) != len(before.Answers) {
		t.Fatalf("completed attempt changed: before=%+v after=%+v", before, after)
	}
	if len(f.results.Results()) != 1 {
		t.Fatalf("expected exactly one published result")
	}
}

func TestDegenerateQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.service.Start(ctx, "u1", "empty")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Question != nil || res.TotalQuestions != 0 {
		t.Fatalf("expected no question, got %+v", res)
	}
	p, _ := f.service.Preview(ctx, "u1", "empty")
	if p.ScorePreview != 0 || !p.IsPassed {
		t.Fatalf("expected 0 >= 0 to pass in preview, got %+v", p)
	}
	final, err := f.service.Finalize(ctx, "u1", "empty")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Score != 0 || final.TotalPoints != 0 || !final.IsPassed {
		t.Fatalf("unexpected degenerate result: %+v", final)
	}

	// same quiz with a non-zero threshold fails
	f.loader.set(domain.Quiz{ID: "empty", IsActive: true, TimeLimitMinutes: 5, PassingScorePercent: 1, AttemptsAllowed: 2})
	_, _ = f.service.Start(ctx, "u2", "empty")
	final, _ = f.service.Finalize(ctx, "u2", "empty")
	if final.IsPassed {
		t.Fatalf("expected 0 >= 1 to fail, got %+v", final)
	}
}

func TestRoundingTwoThirds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "three")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "three", answer(0, 1))
	_, _ = f.service.SubmitAnswer(ctx, "u1", "three", answer(1, 1))

	p, _ := f.service.Preview(ctx, "u1", "three")
	res, _ := f.service.Finalize(ctx, "u1", "three")
	if p.ScorePreview != 67 || res.Score != 67 {
		t.Fatalf("expected 67, got preview=%d final=%d", p.ScorePreview, res.Score)
	}
}

func TestFrozenViewIgnoresQuizEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "three")

	// the quiz is re-authored mid-attempt: new answer key and an extra question
	edited := testQuizzes()["three"]
	for i := range edited.Questions {
		edited.Questions[i].CorrectOptionIndex = 0
	}
	edited.Questions = append(edited.Questions, domain.Question{Text: "new", Options: []string{"a", "b"}})
	f.loader.set(edited)

	res, err := f.service.SubmitAnswer(ctx, "u1", "three", answer(0, 1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.IsCorrect {
		t.Fatalf("expected grading against the key captured at start")
	}
	if _, err := f.service.SubmitAnswer(ctx, "u1", "three", answer(3, 0)); !errors.Is(err, domain.ErrQuestionIndex) {
		t.Fatalf("expected question count frozen at start, got %v", err)
	}
	final, _ := f.service.Finalize(ctx, "u1", "three")
	if final.TotalPoints != 3 {
		t.Fatalf("expected total points frozen at 3, got %d", final.TotalPoints)
	}
}

func TestActiveSummaryAndHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.service.Summary(ctx, "u1", "five"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no summary before completion, got %v", err)
	}

	first := mustStart(t, f, "u1", "five")
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", domain.AnswerSubmission{QuestionIndex: 0, SelectedOptionIndex: 0, TimeSpent: intPtr(30)})
	_, _ = f.service.SubmitAnswer(ctx, "u1", "five", domain.AnswerSubmission{QuestionIndex: 1, SelectedOptionIndex: 0, IsSavedForReview: true, TimeSpent: intPtr(45)})

	progress, err := f.service.Active(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if progress.AttemptID != first.AttemptID || progress.AnsweredCount != 2 || len(progress.SavedForReview) != 1 || progress.SavedForReview[0] != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}

	f.now = startTime.Add(12 * time.Minute)
	_, _ = f.service.Finalize(ctx, "u1", "five")

	sum, err := f.service.Summary(ctx, "u1", "five")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.AttemptID != first.AttemptID || sum.Score != 40 || sum.TimeTakenMinutes != 12 || sum.TimeSpentSeconds != 75 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Review.Correct != 2 || sum.Review.NotAnswered != 3 {
		t.Fatalf("unexpected summary review: %+v", sum.Review)
	}

	second := mustStart(t, f, "u1", "five")
	history, err := f.service.History(ctx, "u1", "five", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].AttemptID != second.AttemptID || history[0].IsCompleted || !history[1].IsCompleted {
		t.Fatalf("unexpected history: %+v", history)
	}

	sum, _ = f.service.Summary(ctx, "u1", "five")
	if sum.AttemptID != first.AttemptID {
		t.Fatalf("summary should skip the live attempt, got %s", sum.AttemptID)
	}
}

func TestQuizDetailsHidesAnswerKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mustStart(t, f, "u1", "three")

	details, err := f.service.QuizDetails(ctx, "u1", "three")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if len(details.Questions) != 3 || details.Questions[0].Question != "T0" || len(details.Questions[0].Options) != 2 {
		t.Fatalf("unexpected questions: %+v", details.Questions)
	}
	if len(details.PreviousAttempts) != 1 {
		t.Fatalf("expected the live attempt in previous attempts, got %+v", details.PreviousAttempts)
	}
	if _, err := f.service.QuizDetails(ctx, "u1", "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type failingPublisher struct{}

func (failingPublisher) PublishResult(context.Context, domain.QuizResult) error {
	return errors.New("queue down")
}

func TestFinalizeSurvivesPublishFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.service = app.NewAttemptService(f.store, f.loader, app.WithResultPublisher(failingPublisher{}), app.WithLogger(zerolog.Nop()))
	mustStart(t, f, "u1", "five")

	if _, err := f.service.Finalize(ctx, "u1", "five"); err != nil {
		t.Fatalf("finalize should not fail on publish error: %v", err)
	}
	if _, err := f.store.GetActive(ctx, "u1", "five"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt to be completed, got %v", err)
	}
}

func mustStart(t *testing.T, f *fixture, userID, quizID string) domain.StartResult {
	t.Helper()
	res, err := f.service.Start(context.Background(), userID, quizID)
	if err != nil {
		t.Fatalf("start %s/%s: %v", userID, quizID, err)
	}
	return res
}

func answer(index, option int) domain.AnswerSubmission {
	return domain.AnswerSubmission{QuestionIndex: index, SelectedOptionIndex: option}
}

func intPtr(v int) *int { return &v }

func TestListQuizzesPagesAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.service.ListQuizzes(ctx, domain.QuizFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Page != 1 || all.Limit != app.DefaultPageSize || all.Total != 4 || len(all.Quizzes) != 4 {
		t.Fatalf("unexpected default page: %+v", all)
	}

	active := true
	page, err := f.service.ListQuizzes(ctx, domain.QuizFilter{IsActive: &active, Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if page.Total != 3 || len(page.Quizzes) != 2 || page.Quizzes[0].ID != "empty" || page.Quizzes[1].ID != "five" {
		t.Fatalf("unexpected active page: %+v", page)
	}
	if page.Quizzes[1].TotalQuestions != 5 || page.Quizzes[1].PassingScore != 60 {
		t.Fatalf("unexpected list item: %+v", page.Quizzes[1])
	}

	capped, err := f.service.ListQuizzes(ctx, domain.QuizFilter{Page: 2, Limit: 500})
	if err != nil {
		t.Fatalf("list capped: %v", err)
	}
	if capped.Limit != app.MaxPageSize || capped.Page != 2 || len(capped.Quizzes) != 0 || capped.Total != 4 {
		t.Fatalf("unexpected capped page: %+v", capped)
	}
}

// mutableLoader lets a test edit a quiz while attempts are in flight.
type mutableLoader struct {
	mu      sync.Mutex
	quizzes map[string]domain.Quiz
}

func (l *mutableLoader) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q.Clone(), nil
}

func (l *mutableLoader) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.quizzes))
	for id, q := range l.quizzes {
		if filter.Matches(q) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	total := len(ids)
	from := min(filter.Offset(), total)
	to := min(from+filter.Limit, total)
	out := make([]domain.Quiz, 0, to-from)
	for _, id := range ids[from:to] {
		out = append(out, l.quizzes[id].Clone())
	}
	return out, total, nil
}

func (l *mutableLoader) set(q domain.Quiz) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quizzes[q.ID] = q
}

// testQuizzes: "five" has 5 questions with 4 options each, correct option 0.
// "three" has 3 questions with 2 options, correct option 1.
func testQuizzes() map[string]domain.Quiz {
	five := domain.Quiz{ID: "five", IsActive: true, TimeLimitMinutes: 10, PassingScorePercent: 60, AttemptsAllowed: 3}
	for i := 0; i < 5; i++ {
		five.Questions = append(five.Questions, domain.Question{
			Text:    fmt.Sprintf("Q%d", i),
			Options: []string{"a", "b", "c", "d"},
		})
	}
	three := domain.Quiz{ID: "three", IsActive: true, TimeLimitMinutes: 5, PassingScorePercent: 70, AttemptsAllowed: 1}
	for i := 0; i < 3; i++ {
		three.Questions = append(three.Questions, domain.Question{
			Text:               fmt.Sprintf("T%d", i),
			Options:            []string{"no", "yes"},
			CorrectOptionIndex: 1,
		})
	}
	return map[string]domain.Quiz{
		"five":     five,
		"three":    three,
		"empty":    {ID: "empty", IsActive: true, TimeLimitMinutes: 5, PassingScorePercent: 0, AttemptsAllowed: 1},
		"inactive": {ID: "inactive", IsActive: false, TimeLimitMinutes: 5, AttemptsAllowed: 1, Questions: five.Questions},
	}
}
