package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader is the source of truth for quiz definitions (Postgres, a YAML file, the built-in sample).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ListQuizzes returns the page of quizzes matching filter and the total number of matches.
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, int, error)
}

// QuizRepository is the in-process quiz catalog. Definitions are kept for a
// TTL (plus jitter) so starting attempts does not hit the loader every time;
// listings always go to the loader.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	fills  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu      sync.RWMutex
	entries map[string]catalogEntry
}

type catalogEntry struct {
	quiz    domain.Quiz
	staleAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		jitter:  rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]catalogEntry),
	}
}

// GetQuiz returns a private copy of the quiz. Concurrent misses for one id share a single load.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fresh(quizID, r.clock()); ok {
		return quiz, nil
	}

	v, err, _ := r.fills.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		if quiz, ok := r.fresh(quizID, now); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.entries[quizID] = catalogEntry{quiz: quiz.Clone(), staleAt: now.Add(r.lifetime())}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz).Clone(), nil
}

// ListQuizzes passes the listing through to the loader.
func (r *QuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, int, error) {
	return r.loader.ListQuizzes(ctx, filter)
}

// Invalidate forgets quizID so the next GetQuiz reloads it, e.g. after a seed.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) error {
	r.mu.Lock()
	delete(r.entries, quizID)
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) fresh(quizID string, now time.Time) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[quizID]
	if !ok || !now.Before(entry.staleAt) {
		return domain.Quiz{}, false
	}
	return entry.quiz.Clone(), true
}

// lifetime is the TTL stretched by up to 10% so entries loaded together do not expire together.
func (r *QuizRepository) lifetime() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.jitterMu.Lock()
	defer r.jitterMu.Unlock()
	return r.ttl + time.Duration(r.jitter.Int63n(int64(r.ttl)/10+1))
}
