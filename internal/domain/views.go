package domain

import "time"

// AnswerSubmission is a learner's answer for one question.
type AnswerSubmission struct {
	QuestionIndex       int
	SelectedOptionIndex int
	IsSavedForReview    bool
	TimeSpent           *int // seconds; nil keeps the previous value
}

// QuestionView is a question as shown to the learner, without its answer key.
type QuestionView struct {
	AttemptID        string   `json:"attemptId"`
	QuestionIndex    int      `json:"questionIndex"`
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	TotalQuestions   int      `json:"totalQuestions"`
	CurrentAnswer    *int     `json:"currentAnswer"`
	IsSavedForReview bool     `json:"isSavedForReview"`
}

// StartResult is returned when an attempt begins. Question is nil for a quiz without questions.
type StartResult struct {
	AttemptID      string        `json:"attemptId"`
	QuestionIndex  int           `json:"questionIndex"`
	Question       *QuestionView `json:"question"`
	TotalQuestions int           `json:"totalQuestions"`
	TimeLimit      int           `json:"timeLimit"`
	StartedAt      time.Time     `json:"startedAt"`
}

// AnswerResult summarizes the outcome of one submitted answer.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
	HasNext       bool `json:"hasNext"`
	NextIndex     *int `json:"nextIndex"`
	RunningScore  int  `json:"runningScore"`
	AnsweredCount int  `json:"answeredCount"`
}

// Progress describes a live attempt for resuming it.
type Progress struct {
	AttemptID       string    `json:"attemptId"`
	QuizID          string    `json:"quizId"`
	StartedAt       time.Time `json:"startedAt"`
	TotalQuestions  int       `json:"totalQuestions"`
	AnsweredCount   int       `json:"answeredCount"`
	UnansweredCount int       `json:"unansweredCount"`
	SavedForReview  []int     `json:"savedForReview"`
	TimeLimit       int       `json:"timeLimit"`
}

// Preview is the would-be result of submitting right now.
type Preview struct {
	AttemptID        string `json:"attemptId"`
	TotalQuestions   int    `json:"totalQuestions"`
	AnsweredCount    int    `json:"answeredCount"`
	UnansweredCount  int    `json:"unansweredCount"`
	TimeTakenMinutes int    `json:"timeTakenMinutes"`
	TimeLimit        int    `json:"timeLimit"`
	TimeExceeded     bool   `json:"timeExceeded"`
	ScorePreview     int    `json:"scorePreview"`
	IsPassed         bool   `json:"isPassed"`
}

// QuestionState classifies one question for review.
type QuestionState string

const (
	StateCorrect     QuestionState = "correct"
	StateIncorrect   QuestionState = "incorrect"
	StateNotAnswered QuestionState = "not_answered"
)

// QuestionStatus is the review state of one question.
type QuestionStatus struct {
	QuestionIndex    int           `json:"questionIndex"`
	Status           QuestionState `json:"status"`
	IsSavedForReview bool          `json:"isSavedForReview"`
}

// Review lists the state of every question with aggregate counts.
type Review struct {
	AttemptID   string           `json:"attemptId"`
	Statuses    []QuestionStatus `json:"statuses"`
	Correct     int              `json:"correct"`
	Incorrect   int              `json:"incorrect"`
	NotAnswered int              `json:"notAnswered"`
}

// QuizResult is the final outcome of an attempt. It is also the message handed
// to certificate issuance.
type QuizResult struct {
	AttemptID    string    `json:"attemptId"`
	UserID       string    `json:"userId"`
	QuizID       string    `json:"quizId"`
	Score        int       `json:"score"`
	EarnedPoints int       `json:"earnedPoints"`
	TotalPoints  int       `json:"totalPoints"`
	IsPassed     bool      `json:"isPassed"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Summary is the report of a completed attempt.
type Summary struct {
	QuizResult
	StartedAt        time.Time `json:"startedAt"`
	TimeTakenMinutes int       `json:"timeTakenMinutes"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	Review           Review    `json:"review"`
}

// AttemptSummary is one row of a learner's attempt history.
type AttemptSummary struct {
	AttemptID     string     `json:"attemptId"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	IsCompleted   bool       `json:"isCompleted"`
	Score         int        `json:"score"`
	EarnedPoints  int        `json:"earnedPoints"`
	TotalPoints   int        `json:"totalPoints"`
	AnsweredCount int        `json:"answeredCount"`
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// QuizDetails is a quiz as shown to a learner, with their recent attempts.
type QuizDetails struct {
	ID               string           `json:"id"`
	CourseID         string           `json:"courseId"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Subject          string           `json:"subject"`
	TimeLimit        int              `json:"timeLimit"`
	PassingScore     int              `json:"passingScore"`
	AttemptsAllowed  int              `json:"attemptsAllowed"`
	IsActive         bool             `json:"isActive"`
	Questions        []PublicQuestion `json:"questions"`
	PreviousAttempts []AttemptSummary `json:"previousAttempts"`
}

// QuizFilter selects quizzes for a catalog listing. Empty fields match anything;
// Page starts at 1.
type QuizFilter struct {
	CourseID string
	Subject  string
	IsActive *bool
	Page     int
	Limit    int
}

// Matches reports whether q satisfies the field conditions of f.
func (f QuizFilter) Matches(q Quiz) bool {
	if f.CourseID != "" && q.CourseID != f.CourseID {
		return false
	}
	if f.Subject != "" && q.Subject != f.Subject {
		return false
	}
	if f.IsActive != nil && q.IsActive != *f.IsActive {
		return false
	}
	return true
}

// Offset is the number of matching quizzes before the requested page.
func (f QuizFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// QuizListItem is one catalog entry.
type QuizListItem struct {
	ID              string `json:"id"`
	CourseID        string `json:"courseId"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Subject         string `json:"subject"`
	TimeLimit       int    `json:"timeLimit"`
	PassingScore    int    `json:"passingScore"`
	AttemptsAllowed int    `json:"attemptsAllowed"`
	IsActive        bool   `json:"isActive"`
	TotalQuestions  int    `json:"totalQuestions"`
}

// QuizPage is one page of a catalog listing; Total counts every match.
type QuizPage struct {
	Quizzes []QuizListItem `json:"quizzes"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
	Total   int            `json:"total"`
}
