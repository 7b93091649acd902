package domain

import "time"

// Answer is a learner's answer to one question. A nil SelectedOptionIndex is a
// blank filled in at finalization; untouched questions have no Answer at all.
type Answer struct {
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
	IsCorrect           bool `json:"isCorrect"`
	IsSavedForReview    bool `json:"isSavedForReview"`
	TimeSpent           int  `json:"timeSpent,omitempty"` // seconds
}

// Answers maps question index to the answer given for it.
type Answers map[int]Answer

// QuizAttempt is one learner's pass through one quiz.
type QuizAttempt struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	QuizID          string     `json:"quizId"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	IsCompleted     bool       `json:"isCompleted"`
	TotalPoints     int        `json:"totalPoints"`
	EarnedPoints    int        `json:"earnedPoints"`
	AnsweredCount   int        `json:"answeredCount"`
	UnansweredCount int        `json:"unansweredCount"`
	Score           int        `json:"score"`
	Answers         Answers    `json:"answers"`
	Quiz            FrozenQuiz `json:"quiz"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (a QuizAttempt) Clone() QuizAttempt {
	out := a
	if a.CompletedAt != nil {
		completed := *a.CompletedAt
		out.CompletedAt = &completed
	}
	out.Answers = make(Answers, len(a.Answers))
	for idx, ans := range a.Answers {
		if ans.SelectedOptionIndex != nil {
			selected := *ans.SelectedOptionIndex
			ans.SelectedOptionIndex = &selected
		}
		out.Answers[idx] = ans
	}
	out.Quiz.Questions = cloneQuestions(a.Quiz.Questions)
	return out
}

// AttemptKey identifies the (user, quiz) pair an attempt belongs to.
type AttemptKey struct {
	UserID string
	QuizID string
}

// Key returns the pair the attempt is keyed by.
func (a QuizAttempt) Key() AttemptKey {
	return AttemptKey{UserID: a.UserID, QuizID: a.QuizID}
}
