package domain

import (
	"strings"
	"time"
)

// GameStatus is the lifecycle phase of a game session.
type GameStatus string

const (
	StatusLobby      GameStatus = "lobby"
	StatusInProgress GameStatus = "in_progress"
	StatusEnded      GameStatus = "ended"
)

// DefaultTimeLimitSeconds applies when a question carries no explicit limit.
const DefaultTimeLimitSeconds = 30

// Question models an MCQ question. CorrectAnswer must equal one option verbatim.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectAnswer    string   `json:"correctAnswer"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// TimeLimit returns the question's limit as a duration, defaulting when unset.
func (q Question) TimeLimit() time.Duration {
	limit := q.TimeLimitSeconds
	if limit <= 0 {
		limit = DefaultTimeLimitSeconds
	}
	return time.Duration(limit) * time.Second
}

// HasOption reports whether text matches one of the question's options verbatim.
func (q Question) HasOption(text string) bool {
	for _, opt := range q.Options {
		if opt == text {
			return true
		}
	}
	return false
}

// Quiz is an ordered collection of questions. Immutable once a live session references it.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	Questions   []Question `json:"questions"`
}

// QuestionByID returns the question with the given id, if present.
func (qz Quiz) QuestionByID(id string) (Question, bool) {
	for _, q := range qz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ValidateQuiz checks authoring invariants before a quiz is stored:
// a title, at least one question, 2+ options each, and a correct answer
// that matches one option's text exactly.
func ValidateQuiz(quiz Quiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return Errorf(KindValidation, "quiz title is required")
	}
	if len(quiz.Questions) == 0 {
		return Errorf(KindValidation, "quiz needs at least one question")
	}
	for i, q := range quiz.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return Errorf(KindValidation, "question %d: text is required", i+1)
		}
		if len(q.Options) < 2 {
			return Errorf(KindValidation, "question %d: at least two options required", i+1)
		}
		if !q.HasOption(q.CorrectAnswer) {
			return Errorf(KindValidation, "question %d: correct answer must match an option", i+1)
		}
		if q.TimeLimitSeconds < 0 {
			return Errorf(KindValidation, "question %d: time limit must be positive", i+1)
		}
	}
	return nil
}

// Player is a session participant. Disconnection never removes a player or their score.
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"rollNumber,omitempty"`
	Score      int       `json:"score"`
	Connected  bool      `json:"connected"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// Answer is one accepted submission. At most one exists per (question, player).
type Answer struct {
	PlayerID       string  `json:"playerId"`
	QuestionID     string  `json:"questionId"`
	Text           string  `json:"text"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Correct        bool    `json:"correct"`
	Points         int     `json:"points"`
}

// LeaderboardEntry is one row of the ordered scoreboard.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	RollNumber     string  `json:"rollNumber,omitempty"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalElapsed   float64 `json:"totalElapsedSeconds"`
}

// PlayerQuestionResult is one player's outcome for a single question.
// Unanswered players appear with Answered=false and zero points.
type PlayerQuestionResult struct {
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	RollNumber     string  `json:"rollNumber,omitempty"`
	Answered       bool    `json:"answered"`
	Answer         string  `json:"answer,omitempty"`
	Correct        bool    `json:"correct"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
	Points         int     `json:"points"`
}

// QuestionResults is the live per-question summary for the host view.
type QuestionResults struct {
	QuestionID    string                 `json:"questionId"`
	QuestionText  string                 `json:"questionText"`
	CorrectAnswer string                 `json:"correctAnswer"`
	Players       []PlayerQuestionResult `json:"players"`
	TotalPlayers  int                    `json:"totalPlayers"`
	AnsweredCount int                    `json:"answeredCount"`
	CorrectCount  int                    `json:"correctCount"`
}

// PlayerSummary is one player's overall outcome across the whole quiz.
type PlayerSummary struct {
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	RollNumber     string  `json:"rollNumber,omitempty"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Accuracy       float64 `json:"accuracy"`
}

// GameSummary is the whole-game results view. Accuracy is taken over the full
// question count, so unanswered questions count as incorrect.
type GameSummary struct {
	PIN            string          `json:"pin"`
	QuizTitle      string          `json:"quizTitle"`
	Status         GameStatus      `json:"status"`
	TotalQuestions int             `json:"totalQuestions"`
	Players        []PlayerSummary `json:"players"`
}

// CertificateSettings are configured by the host before the game starts.
type CertificateSettings struct {
	Threshold          int  `json:"threshold"`
	TemplateConfigured bool `json:"templateConfigured"`
}

// DefaultCertificateThreshold is the accuracy percentage required when the host sets none.
const DefaultCertificateThreshold = 75

// CertificateStatus is the eligibility determination for one player on a finished game.
type CertificateStatus struct {
	PlayerID       string  `json:"playerId"`
	PlayerName     string  `json:"playerName"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Accuracy       float64 `json:"accuracy"`
	Threshold      int     `json:"threshold"`
	GameFinished   bool    `json:"gameFinished"`
	TemplateReady  bool    `json:"templateReady"`
	Eligible       bool    `json:"eligible"`
}

// GameRecord is a durable summary of a finished session, kept for host history.
type GameRecord struct {
	ID          string     `json:"id"`
	PIN         string     `json:"pin"`
	QuizID      string     `json:"quizId"`
	QuizTitle   string     `json:"quizTitle"`
	HostName    string     `json:"hostName"`
	PlayerCount int        `json:"playerCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
}
