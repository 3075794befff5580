package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingLoader struct {
	QuizLoader
	calls int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	atomic.AddInt32(&l.calls, 1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Geography",
		Questions: []domain.Question{
			{ID: "q1", Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris", TimeLimitSeconds: 10},
		},
	}
}

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Geography" {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Fatalf("expected loader called once, got %d", got)
	}

	// Second read is served from the cache entry.
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatalf("cache key not written")
	}
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Fatalf("cached read still hit the loader, calls=%d", got)
	}
}

func TestQuizRepositoryRefillsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	// Push miniredis past the TTL plus jitter so the entry expires.
	mr.FastForward(2 * time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 2 {
		t.Fatalf("expected reload after expiry, calls=%d", got)
	}
}

func TestQuizRepositorySurvivesCorruptCacheEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	if err := mr.Set("quiz:quiz-1:content", "not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Geography" {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Fatalf("expected loader fallback, calls=%d", got)
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewQuizStore(nil),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "missing"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
