package memory

import (
	"context"
	"sync"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
// Each (user, quiz) pair has its own lock held across read-modify-write, so
// different pairs never wait on each other's mutations.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.QuizAttempt
	active   map[domain.AttemptKey]string
	history  map[domain.AttemptKey][]string // oldest first

	locksMu sync.Mutex
	locks   map[domain.AttemptKey]*pairLock
}

// pairLock is dropped from the map once no caller holds or waits on it.
type pairLock struct {
	mu   sync.Mutex
	refs int
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.QuizAttempt),
		active:   make(map[domain.AttemptKey]string),
		history:  make(map[domain.AttemptKey][]string),
		locks:    make(map[domain.AttemptKey]*pairLock),
	}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.QuizAttempt) error {
	key := attempt.Key()
	unlock := s.lockPair(key)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[key]; ok {
		return domain.ErrAttemptInProgress
	}
	s.attempts[attempt.ID] = attempt.Clone()
	if !attempt.IsCompleted {
		s.active[key] = attempt.ID
	}
	s.history[key] = append(s.history[key], attempt.ID)
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	return attempt.Clone(), nil
}

func (s *AttemptStore) GetActive(_ context.Context, userID, quizID string) (domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(domain.AttemptKey{UserID: userID, QuizID: quizID})
}

func (s *AttemptStore) UpdateActive(_ context.Context, userID, quizID string, mutate func(*domain.QuizAttempt) error) (domain.QuizAttempt, error) {
	key := domain.AttemptKey{UserID: userID, QuizID: quizID}
	unlock := s.lockPair(key)
	defer unlock()

	s.mu.RLock()
	attempt, err := s.activeLocked(key)
	s.mu.RUnlock()
	if err != nil {
		return domain.QuizAttempt{}, err
	}

	// mutate works on a private copy; readers keep seeing the old snapshot until the swap below.
	if err := mutate(&attempt); err != nil {
		return domain.QuizAttempt{}, err
	}

	s.mu.Lock()
	s.attempts[attempt.ID] = attempt.Clone()
	if attempt.IsCompleted {
		delete(s.active, key)
	}
	s.mu.Unlock()
	return attempt, nil
}

func (s *AttemptStore) ListByUser(_ context.Context, userID, quizID string, limit int) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.history[domain.AttemptKey{UserID: userID, QuizID: quizID}]
	out := make([]domain.QuizAttempt, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.attempts[ids[i]].Clone())
	}
	return out, nil
}

func (s *AttemptStore) activeLocked(key domain.AttemptKey) (domain.QuizAttempt, error) {
	id, ok := s.active[key]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	return s.attempts[id].Clone(), nil
}

func (s *AttemptStore) lockPair(key domain.AttemptKey) func() {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &pairLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.locksMu.Unlock()
	}
}
