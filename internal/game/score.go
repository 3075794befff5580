package game

import "time"

// DefaultGrace is the fixed tolerance added to a question's time limit when
// validating submissions. It absorbs network latency only; clients cannot
// widen it.
const DefaultGrace = 500 * time.Millisecond

// ScoreConfig holds the tunables for the scoring curve.
type ScoreConfig struct {
	// BasePoints is awarded for an instant correct answer.
	BasePoints int
	// MinPoints is the floor for a correct answer at the last instant.
	MinPoints int
}

// DefaultScoring mirrors a 1000-point question with a 100-point floor.
var DefaultScoring = ScoreConfig{BasePoints: 1000, MinPoints: 100}

// Score is a pure function of (correct, elapsed, limit). Incorrect or late
// answers earn zero. Correct answers scale linearly from BasePoints down to
// MinPoints as elapsed approaches the limit, so points never increase with
// elapsed time and identical inputs always produce identical output.
func (c ScoreConfig) Score(correct bool, elapsed, limit time.Duration) int {
	if !correct || limit <= 0 || elapsed > limit {
		// Within the submission grace window a correct answer past the limit
		// still lands at the floor rather than zero.
		if correct && limit > 0 && elapsed <= limit+DefaultGrace {
			return c.MinPoints
		}
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := float64(limit-elapsed) / float64(limit)
	points := c.MinPoints + int(float64(c.BasePoints-c.MinPoints)*remaining)
	if points < c.MinPoints {
		points = c.MinPoints
	}
	return points
}
