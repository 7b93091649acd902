package domain

import "fmt"

// Limits a quiz definition must respect.
const (
	MinTimeLimitMinutes = 1
	MaxTimeLimitMinutes = 180
	MinAttemptsAllowed  = 1
	MaxAttemptsAllowed  = 10
	MinOptions          = 2
)

// Question models an MCQ question with exactly one correct option, addressed by its position in the quiz.
type Question struct {
	Text               string   `json:"question" yaml:"question"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctAnswer" yaml:"correctAnswer"`
}

// Quiz is the authored definition of a quiz.
type Quiz struct {
	ID                  string     `json:"id" yaml:"id"`
	CourseID            string     `json:"courseId" yaml:"courseId"`
	Title               string     `json:"title" yaml:"title"`
	Description         string     `json:"description,omitempty" yaml:"description"`
	Subject             string     `json:"subject" yaml:"subject"`
	TimeLimitMinutes    int        `json:"timeLimit" yaml:"timeLimit"`
	PassingScorePercent int        `json:"passingScore" yaml:"passingScore"`
	AttemptsAllowed     int        `json:"attemptsAllowed" yaml:"attemptsAllowed"`
	IsActive            bool       `json:"isActive" yaml:"isActive"`
	Questions           []Question `json:"questions" yaml:"questions"`
}

// Question returns the question at index or ErrQuestionIndex.
func (q Quiz) Question(index int) (Question, error) {
	return questionAt(q.Questions, index)
}

// Validate checks the authoring constraints of the quiz.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuiz)
	}
	if q.TimeLimitMinutes < MinTimeLimitMinutes || q.TimeLimitMinutes > MaxTimeLimitMinutes {
		return fmt.Errorf("%w: quiz %s: time limit %d outside %d..%d minutes",
			ErrInvalidQuiz, q.ID, q.TimeLimitMinutes, MinTimeLimitMinutes, MaxTimeLimitMinutes)
	}
	if q.PassingScorePercent < 0 || q.PassingScorePercent > 100 {
		return fmt.Errorf("%w: quiz %s: passing score %d outside 0..100", ErrInvalidQuiz, q.ID, q.PassingScorePercent)
	}
	if q.AttemptsAllowed < MinAttemptsAllowed || q.AttemptsAllowed > MaxAttemptsAllowed {
		return fmt.Errorf("%w: quiz %s: attempts allowed %d outside %d..%d",
			ErrInvalidQuiz, q.ID, q.AttemptsAllowed, MinAttemptsAllowed, MaxAttemptsAllowed)
	}
	for i, question := range q.Questions {
		if len(question.Options) < MinOptions {
			return fmt.Errorf("%w: quiz %s: question %d needs at least %d options", ErrInvalidQuiz, q.ID, i, MinOptions)
		}
		if question.CorrectOptionIndex < 0 || question.CorrectOptionIndex >= len(question.Options) {
			return fmt.Errorf("%w: quiz %s: question %d correct answer %d outside options",
				ErrInvalidQuiz, q.ID, i, question.CorrectOptionIndex)
		}
	}
	return nil
}

// FrozenQuiz is the part of a quiz an attempt captures at start. Later edits
// to the quiz never reach an attempt through it.
type FrozenQuiz struct {
	QuizID              string     `json:"quizId"`
	TimeLimitMinutes    int        `json:"timeLimit"`
	PassingScorePercent int        `json:"passingScore"`
	Questions           []Question `json:"questions"`
}

// Freeze deep-copies the fields of q that grading depends on.
func Freeze(q Quiz) FrozenQuiz {
	return FrozenQuiz{
		QuizID:              q.ID,
		TimeLimitMinutes:    q.TimeLimitMinutes,
		PassingScorePercent: q.PassingScorePercent,
		Questions:           cloneQuestions(q.Questions),
	}
}

// Question returns the frozen question at index or ErrQuestionIndex.
func (f FrozenQuiz) Question(index int) (Question, error) {
	return questionAt(f.Questions, index)
}

func questionAt(questions []Question, index int) (Question, error) {
	if index < 0 || index >= len(questions) {
		return Question{}, fmt.Errorf("%w: %d not in [0, %d)", ErrQuestionIndex, index, len(questions))
	}
	return questions[index], nil
}

func cloneQuestions(in []Question) []Question {
	if in == nil {
		return nil
	}
	out := make([]Question, len(in))
	for i, q := range in {
		out[i] = Question{
			Text:               q.Text,
			Options:            append([]string(nil), q.Options...),
			CorrectOptionIndex: q.CorrectOptionIndex,
		}
	}
	return out
}

// Clone returns a copy of q that shares no slices with it.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = cloneQuestions(q.Questions)
	return out
}
