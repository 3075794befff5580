package memory

import (
	"context"
	"sync"

	"livequiz-service/internal/domain"
)

// QuizStore holds authored quizzes in memory. It serves both as a QuizLoader
// and as the save target when no database is configured (demos, tests).
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore(seed map[string]domain.Quiz) *QuizStore {
	quizzes := make(map[string]domain.Quiz, len(seed))
	for id, quiz := range seed {
		quizzes[id] = quiz
	}
	return &QuizStore{quizzes: quizzes}
}

func (s *QuizStore) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.Errorf(domain.KindNotFound, "quiz not found")
}

func (s *QuizStore) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}
