package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Josephvarghes/Edu-Stack/internal/domain"
	"gopkg.in/yaml.v3"
)

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz.Clone(), nil
	}
	return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
}

// ListQuizzes pages through the matching quizzes ordered by id.
func (l *StaticQuizLoader) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, int, error) {
	matched := make([]domain.Quiz, 0, len(l.quizzes))
	for _, quiz := range l.quizzes {
		if filter.Matches(quiz) {
			matched = append(matched, quiz)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	from := filter.Offset()
	if from > total {
		from = total
	}
	to := total
	if filter.Limit > 0 && from+filter.Limit < total {
		to = from + filter.Limit
	}
	page := make([]domain.Quiz, 0, to-from)
	for _, quiz := range matched[from:to] {
		page = append(page, quiz.Clone())
	}
	return page, total, nil
}

// quizFile is the YAML document shape: a top-level list under "quizzes".
type quizFile struct {
	Quizzes []yaml.Node `yaml:"quizzes"`
}

// DecodeQuizzes reads a YAML quiz file and validates every quiz in it.
// Quizzes are active unless the file says isActive: false.
func DecodeQuizzes(r io.Reader) ([]domain.Quiz, error) {
	var doc quizFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode quiz file: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Quizzes))
	quizzes := make([]domain.Quiz, 0, len(doc.Quizzes))
	for i := range doc.Quizzes {
		quiz := domain.Quiz{IsActive: true}
		if err := doc.Quizzes[i].Decode(&quiz); err != nil {
			return nil, fmt.Errorf("decode quiz #%d: %w", i, err)
		}
		if err := quiz.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[quiz.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate quiz id %s", domain.ErrInvalidQuiz, quiz.ID)
		}
		seen[quiz.ID] = struct{}{}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// LoadQuizFile reads a YAML quiz file from disk.
func LoadQuizFile(path string) ([]domain.Quiz, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeQuizzes(f)
}

// NewFileQuizLoader builds a StaticQuizLoader from a YAML quiz file.
func NewFileQuizLoader(path string) (*StaticQuizLoader, error) {
	quizzes, err := LoadQuizFile(path)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	return NewStaticQuizLoader(byID), nil
}
