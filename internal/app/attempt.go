package app

import (
	"fmt"
	"sort"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"github.com/Josephvarghes/Edu-Stack/internal/scoring"
)

// applyAnswer grades submission against the frozen quiz and records it on a.
// Counters move by deltas so a changed answer never double counts.
func applyAnswer(a *domain.QuizAttempt, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	question, err := a.Quiz.Question(submission.QuestionIndex)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if submission.SelectedOptionIndex < 0 || submission.SelectedOptionIndex >= len(question.Options) {
		return domain.AnswerResult{}, fmt.Errorf("%w: %d not in [0, %d)",
			domain.ErrOptionIndex, submission.SelectedOptionIndex, len(question.Options))
	}
	if submission.TimeSpent != nil && *submission.TimeSpent < 0 {
		return domain.AnswerResult{}, fmt.Errorf("%w: negative time spent", domain.ErrInvalidAnswer)
	}

	if a.Answers == nil {
		a.Answers = domain.Answers{}
	}
	prev, existed := a.Answers[submission.QuestionIndex]
	counted := existed && prev.SelectedOptionIndex != nil

	selected := submission.SelectedOptionIndex
	correct := selected == question.CorrectOptionIndex
	next := domain.Answer{
		SelectedOptionIndex: &selected,
		IsCorrect:           correct,
		IsSavedForReview:    submission.IsSavedForReview,
		TimeSpent:           prev.TimeSpent,
	}
	if submission.TimeSpent != nil {
		next.TimeSpent = *submission.TimeSpent
	}
	a.Answers[submission.QuestionIndex] = next

	if !counted {
		a.AnsweredCount++
		a.UnansweredCount--
	}
	switch {
	case correct && !prev.IsCorrect:
		a.EarnedPoints++
	case !correct && prev.IsCorrect:
		a.EarnedPoints--
	}

	result := domain.AnswerResult{
		QuestionIndex: submission.QuestionIndex,
		IsCorrect:     correct,
		HasNext:       submission.QuestionIndex+1 < a.TotalPoints,
		RunningScore:  a.EarnedPoints,
		AnsweredCount: a.AnsweredCount,
	}
	if result.HasNext {
		nextIndex := submission.QuestionIndex + 1
		result.NextIndex = &nextIndex
	}
	return result, nil
}

// finalizeAttempt fills every untouched question with a blank answer and
// recomputes all counters from the answer set, which is the source of truth.
func finalizeAttempt(a *domain.QuizAttempt, now time.Time) {
	if a.Answers == nil {
		a.Answers = domain.Answers{}
	}
	for i := 0; i < a.TotalPoints; i++ {
		if _, ok := a.Answers[i]; !ok {
			a.Answers[i] = domain.Answer{}
		}
	}

	earned, answered := 0, 0
	for _, ans := range a.Answers {
		if ans.IsCorrect {
			earned++
		}
		if ans.SelectedOptionIndex != nil {
			answered++
		}
	}
	a.EarnedPoints = earned
	a.AnsweredCount = answered
	a.UnansweredCount = a.TotalPoints - answered
	a.Score = scoring.Score(earned, a.TotalPoints)
	a.CompletedAt = &now
	a.IsCompleted = true
}

func questionView(a domain.QuizAttempt, index int) (domain.QuestionView, error) {
	question, err := a.Quiz.Question(index)
	if err != nil {
		return domain.QuestionView{}, err
	}
	view := domain.QuestionView{
		AttemptID:      a.ID,
		QuestionIndex:  index,
		Question:       question.Text,
		Options:        append([]string(nil), question.Options...),
		TotalQuestions: a.TotalPoints,
	}
	if ans, ok := a.Answers[index]; ok {
		if ans.SelectedOptionIndex != nil {
			selected := *ans.SelectedOptionIndex
			view.CurrentAnswer = &selected
		}
		view.IsSavedForReview = ans.IsSavedForReview
	}
	return view, nil
}

func progress(a domain.QuizAttempt) domain.Progress {
	saved := make([]int, 0)
	for idx, ans := range a.Answers {
		if ans.IsSavedForReview {
			saved = append(saved, idx)
		}
	}
	sort.Ints(saved)
	return domain.Progress{
		AttemptID:       a.ID,
		QuizID:          a.QuizID,
		StartedAt:       a.StartedAt,
		TotalQuestions:  a.TotalPoints,
		AnsweredCount:   a.AnsweredCount,
		UnansweredCount: a.UnansweredCount,
		SavedForReview:  saved,
		TimeLimit:       a.Quiz.TimeLimitMinutes,
	}
}

func preview(a domain.QuizAttempt, now time.Time) domain.Preview {
	elapsed := scoring.ElapsedMinutes(a.StartedAt, now)
	score := scoring.Score(a.EarnedPoints, a.TotalPoints)
	return domain.Preview{
		AttemptID:        a.ID,
		TotalQuestions:   a.TotalPoints,
		AnsweredCount:    a.AnsweredCount,
		UnansweredCount:  a.UnansweredCount,
		TimeTakenMinutes: elapsed,
		TimeLimit:        a.Quiz.TimeLimitMinutes,
		TimeExceeded:     elapsed >= a.Quiz.TimeLimitMinutes,
		ScorePreview:     score,
		IsPassed:         scoring.IsPassed(score, a.Quiz.PassingScorePercent),
	}
}

func review(a domain.QuizAttempt) domain.Review {
	r := domain.Review{
		AttemptID: a.ID,
		Statuses:  make([]domain.QuestionStatus, 0, a.TotalPoints),
	}
	for i := 0; i < a.TotalPoints; i++ {
		status := domain.QuestionStatus{QuestionIndex: i, Status: domain.StateNotAnswered}
		if ans, ok := a.Answers[i]; ok {
			status.IsSavedForReview = ans.IsSavedForReview
			switch {
			case ans.SelectedOptionIndex == nil:
			case ans.IsCorrect:
				status.Status = domain.StateCorrect
			default:
				status.Status = domain.StateIncorrect
			}
		}
		switch status.Status {
		case domain.StateCorrect:
			r.Correct++
		case domain.StateIncorrect:
			r.Incorrect++
		default:
			r.NotAnswered++
		}
		r.Statuses = append(r.Statuses, status)
	}
	return r
}

func quizResult(a domain.QuizAttempt) domain.QuizResult {
	result := domain.QuizResult{
		AttemptID:    a.ID,
		UserID:       a.UserID,
		QuizID:       a.QuizID,
		Score:        a.Score,
		EarnedPoints: a.EarnedPoints,
		TotalPoints:  a.TotalPoints,
		IsPassed:     scoring.IsPassed(a.Score, a.Quiz.PassingScorePercent),
	}
	if a.CompletedAt != nil {
		result.CompletedAt = *a.CompletedAt
	}
	return result
}

func summary(a domain.QuizAttempt) domain.Summary {
	result := quizResult(a)
	spent := 0
	for _, ans := range a.Answers {
		spent += ans.TimeSpent
	}
	return domain.Summary{
		QuizResult:       result,
		StartedAt:        a.StartedAt,
		TimeTakenMinutes: scoring.ElapsedMinutes(a.StartedAt, result.CompletedAt),
		TimeSpentSeconds: spent,
		Review:           review(a),
	}
}

func attemptSummary(a domain.QuizAttempt) domain.AttemptSummary {
	return domain.AttemptSummary{
		AttemptID:     a.ID,
		StartedAt:     a.StartedAt,
		CompletedAt:   a.CompletedAt,
		IsCompleted:   a.IsCompleted,
		Score:         a.Score,
		EarnedPoints:  a.EarnedPoints,
		TotalPoints:   a.TotalPoints,
		AnsweredCount: a.AnsweredCount,
	}
}
