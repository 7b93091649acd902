package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
)

func TestAttemptStoreSingleLiveAttempt(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	if err := store.Create(ctx, newAttempt("a1", "u1", "quiz-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, newAttempt("a2", "u1", "quiz-1")); !errors.Is(err, domain.ErrAttemptInProgress) {
		t.Fatalf("expected ErrAttemptInProgress, got %v", err)
	}
	if err := store.Create(ctx, newAttempt("a3", "u2", "quiz-1")); err != nil {
		t.Fatalf("other user should be independent: %v", err)
	}

	_, err := store.UpdateActive(ctx, "u1", "quiz-1", func(a *domain.QuizAttempt) error {
		a.IsCompleted = true
		return nil
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := store.GetActive(ctx, "u1", "quiz-1"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no live attempt after completion, got %v", err)
	}
	if err := store.Create(ctx, newAttempt("a4", "u1", "quiz-1")); err != nil {
		t.Fatalf("retake after completion: %v", err)
	}

	history, _ := store.ListByUser(ctx, "u1", "quiz-1", 0)
	if len(history) != 2 || history[0].ID != "a4" || history[1].ID != "a1" {
		t.Fatalf("expected newest-first history [a4 a1], got %+v", history)
	}
	limited, _ := store.ListByUser(ctx, "u1", "quiz-1", 1)
	if len(limited) != 1 || limited[0].ID != "a4" {
		t.Fatalf("expected limit to keep newest, got %+v", limited)
	}
}

func TestAttemptStoreFailedMutationLeavesState(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	_ = store.Create(ctx, newAttempt("a1", "u1", "quiz-1"))

	boom := errors.New("boom")
	_, err := store.UpdateActive(ctx, "u1", "quiz-1", func(a *domain.QuizAttempt) error {
		a.EarnedPoints = 99
		a.Answers[0] = domain.Answer{IsCorrect: true}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutate error, got %v", err)
	}
	got, _ := store.Get(ctx, "a1")
	if got.EarnedPoints != 0 || len(got.Answers) != 0 {
		t.Fatalf("failed mutation leaked into store: %+v", got)
	}
}

func TestAttemptStoreSerializesUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	_ = store.Create(ctx, newAttempt("a1", "u1", "quiz-1"))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _ = store.UpdateActive(ctx, "u1", "quiz-1", func(a *domain.QuizAttempt) error {
				a.EarnedPoints++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.GetActive(ctx, "u1", "quiz-1")
	if got.EarnedPoints != workers {
		t.Fatalf("expected %d serialized increments, got %d", workers, got.EarnedPoints)
	}
	store.locksMu.Lock()
	held := len(store.locks)
	store.locksMu.Unlock()
	if held != 0 {
		t.Fatalf("expected pair locks to be released, %d left", held)
	}
}

func TestAttemptStoreReturnsSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	_ = store.Create(ctx, newAttempt("a1", "u1", "quiz-1"))

	got, _ := store.GetActive(ctx, "u1", "quiz-1")
	got.Answers[0] = domain.Answer{IsCorrect: true}
	got.Quiz.Questions[0].CorrectOptionIndex = 0

	again, _ := store.Get(ctx, "a1")
	if len(again.Answers) != 0 || again.Quiz.Questions[0].CorrectOptionIndex != 1 {
		t.Fatalf("store state changed through a returned snapshot: %+v", again)
	}
}

func newAttempt(id, userID, quizID string) domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:              id,
		UserID:          userID,
		QuizID:          quizID,
		StartedAt:       time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
		TotalPoints:     1,
		UnansweredCount: 1,
		Answers:         domain.Answers{},
		Quiz:            domain.Freeze(sampleQuiz()),
	}
}
