package game_test

import (
	"testing"
	"time"

	"livequiz-service/internal/game"
)

func TestScoreCurve(t *testing.T) {
	cfg := game.DefaultScoring
	limit := 10 * time.Second

	if got := cfg.Score(true, 0, limit); got != cfg.BasePoints {
		t.Fatalf("instant answer: got %d, want %d", got, cfg.BasePoints)
	}
	if got := cfg.Score(true, limit, limit); got != cfg.MinPoints {
		t.Fatalf("last-instant answer: got %d, want %d", got, cfg.MinPoints)
	}
	if got := cfg.Score(true, limit+200*time.Millisecond, limit); got != cfg.MinPoints {
		t.Fatalf("grace-window answer: got %d, want %d", got, cfg.MinPoints)
	}
	if got := cfg.Score(true, limit+game.DefaultGrace+time.Millisecond, limit); got != 0 {
		t.Fatalf("late answer: got %d, want 0", got)
	}
	if got := cfg.Score(false, time.Second, limit); got != 0 {
		t.Fatalf("wrong answer: got %d, want 0", got)
	}
}

func TestScoreNeverIncreasesWithElapsed(t *testing.T) {
	cfg := game.DefaultScoring
	limit := 30 * time.Second

	prev := cfg.BasePoints + 1
	for elapsed := time.Duration(0); elapsed <= limit; elapsed += 100 * time.Millisecond {
		points := cfg.Score(true, elapsed, limit)
		if points > prev {
			t.Fatalf("points increased with elapsed time: %d -> %d at %s", prev, points, elapsed)
		}
		if points < cfg.MinPoints {
			t.Fatalf("points below floor: %d at %s", points, elapsed)
		}
		prev = points
	}
}

func TestScoreDeterministic(t *testing.T) {
	cfg := game.ScoreConfig{BasePoints: 500, MinPoints: 50}
	a := cfg.Score(true, 7*time.Second, 20*time.Second)
	b := cfg.Score(true, 7*time.Second, 20*time.Second)
	if a != b {
		t.Fatalf("identical inputs produced %d and %d", a, b)
	}
}
