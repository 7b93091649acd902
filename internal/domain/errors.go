package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz is unknown, or inactive when starting an attempt.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when no live attempt exists for the given keys.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrAttemptInProgress is returned by start when a live attempt already exists.
	ErrAttemptInProgress = errors.New("quiz attempt already in progress")
	// ErrAttemptCompleted is returned when mutating or finalizing a completed attempt.
	ErrAttemptCompleted = errors.New("quiz attempt already completed")
	// ErrQuestionIndex indicates a question index outside [0, totalQuestions).
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrOptionIndex indicates a selected option outside the question's options.
	ErrOptionIndex = errors.New("option index out of range")
	// ErrInvalidAnswer covers malformed answer fields other than the indices.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidQuiz is returned when a quiz definition breaks its own constraints.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
	// ErrForbidden is returned when the caller may not act on the attempt.
	ErrForbidden = errors.New("forbidden")
)

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidInput Kind = "invalid_input"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrQuizNotFound, KindNotFound},
	{ErrAttemptNotFound, KindNotFound},
	{ErrAttemptInProgress, KindConflict},
	{ErrAttemptCompleted, KindConflict},
	{ErrQuestionIndex, KindInvalidInput},
	{ErrOptionIndex, KindInvalidInput},
	{ErrInvalidAnswer, KindInvalidInput},
	{ErrInvalidQuiz, KindInvalidInput},
	{ErrForbidden, KindForbidden},
}

// KindOf classifies err by the first sentinel found in its chain.
// Anything unrecognised (storage, network) is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
