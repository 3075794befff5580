package app

import (
	"context"
	"log"
	"strings"
	"time"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"

	"github.com/google/uuid"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizStore persists authored quizzes.
type QuizStore interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// Archiver keeps durable history records of finished games.
type Archiver interface {
	SaveRecord(ctx context.Context, rec domain.GameRecord) error
	ListByHost(ctx context.Context, hostName string, limit int) ([]domain.GameRecord, error)
	DeleteRecord(ctx context.Context, id, hostName string) error
}

// ScoreMirror receives best-effort score updates (e.g. a Redis ZSET) so other
// consumers can read standings without touching live session state.
type ScoreMirror interface {
	UpdateScore(ctx context.Context, pin, playerID string, score int) error
	Drop(ctx context.Context, pin string) error
}

// Generator is the opaque content-generation boundary. Implementations turn a
// topic or source text into question records; prompt details live behind it.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]domain.Question, error)
}

// GenerateRequest describes what the content generator should produce.
type GenerateRequest struct {
	Topic        string `json:"topic,omitempty"`
	SourceText   string `json:"sourceText,omitempty"`
	NumQuestions int    `json:"numQuestions"`
	Difficulty   string `json:"difficulty,omitempty"`
}

// Options carries the optional collaborators of the game service. Any nil
// field degrades gracefully: no archive means no history, no mirror means no
// external standings, no generator means generation is unavailable.
type Options struct {
	QuizStore QuizStore
	Archive   Archiver
	Mirror    ScoreMirror
	Generator Generator
}

// GameService exposes the command interface over the session engine. Every
// state transition happens exactly once inside the session; broadcasts and
// persistence are side effects of that single transition, never parallel
// writers.
type GameService struct {
	registry  *game.Registry
	quizzes   QuizRepository
	quizStore QuizStore
	archive   Archiver
	mirror    ScoreMirror
	generator Generator

	// archiveTimeout bounds the async archival write after EndGame.
	archiveTimeout time.Duration
}

func NewGameService(registry *game.Registry, quizzes QuizRepository, opts Options) *GameService {
	return &GameService{
		registry:       registry,
		quizzes:        quizzes,
		quizStore:      opts.QuizStore,
		archive:        opts.Archive,
		mirror:         opts.Mirror,
		generator:      opts.Generator,
		archiveTimeout: 10 * time.Second,
	}
}

// CreateQuiz validates and stores an authored quiz, assigning IDs and default
// time limits where missing.
func (s *GameService) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = uuid.NewString()
		}
		if quiz.Questions[i].TimeLimitSeconds == 0 {
			quiz.Questions[i].TimeLimitSeconds = domain.DefaultTimeLimitSeconds
		}
	}
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if s.quizStore == nil {
		return domain.Quiz{}, domain.Errorf(domain.KindUnavailable, "quiz store not configured")
	}
	if err := s.quizStore.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, domain.WrapUnavailable("save quiz", err)
	}
	return quiz, nil
}

// GenerateQuestions asks the content generator for question records and
// validates their shape before handing them back to the author.
func (s *GameService) GenerateQuestions(ctx context.Context, req GenerateRequest) ([]domain.Question, error) {
	if s.generator == nil {
		return nil, domain.Errorf(domain.KindUnavailable, "question generation not configured")
	}
	if strings.TrimSpace(req.Topic) == "" && strings.TrimSpace(req.SourceText) == "" {
		return nil, domain.Errorf(domain.KindValidation, "topic or source text is required")
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = 10
	}

	questions, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, domain.WrapUnavailable("generate questions", err)
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		if questions[i].TimeLimitSeconds == 0 {
			questions[i].TimeLimitSeconds = domain.DefaultTimeLimitSeconds
		}
		if len(questions[i].Options) < 2 || !questions[i].HasOption(questions[i].CorrectAnswer) {
			return nil, domain.Errorf(domain.KindUnavailable, "generator returned a malformed question at index %d", i)
		}
	}
	return questions, nil
}

// CreateGame opens a lobby for the quiz and returns its PIN.
func (s *GameService) CreateGame(ctx context.Context, quizID, hostName string) (game.StatusView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return game.StatusView{}, err
	}
	session, err := s.registry.Create(quiz, hostName)
	if err != nil {
		return game.StatusView{}, err
	}
	return session.StatusSnapshot(), nil
}

// JoinGame registers a player into a lobby by PIN.
func (s *GameService) JoinGame(ctx context.Context, pin, name, rollNumber string) (domain.Player, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.Player{}, err
	}
	return session.Join(name, rollNumber)
}

// RejoinGame re-establishes a known player identity (reconnect path).
func (s *GameService) RejoinGame(ctx context.Context, pin, playerID string) (domain.Player, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.Player{}, err
	}
	return session.Rejoin(playerID)
}

// StartGame begins the quiz and activates the first question.
func (s *GameService) StartGame(ctx context.Context, pin string) (game.QuestionPayload, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return game.QuestionPayload{}, err
	}
	return session.Start()
}

// AdvanceQuestion moves the session to its next question.
func (s *GameService) AdvanceQuestion(ctx context.Context, pin string) (game.QuestionPayload, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return game.QuestionPayload{}, err
	}
	return session.AdvanceQuestion()
}

// SubmitAnswer applies a player's submission and mirrors the new score
// best-effort. Mirror failures never affect the accepted answer.
func (s *GameService) SubmitAnswer(ctx context.Context, pin, playerID, questionID, text string) (domain.Answer, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.Answer{}, err
	}
	answer, err := session.SubmitAnswer(playerID, questionID, text)
	if err != nil {
		return domain.Answer{}, err
	}

	if s.mirror != nil && answer.Points > 0 {
		score := 0
		for _, p := range session.StatusSnapshot().Players {
			if p.ID == playerID {
				score = p.Score
			}
		}
		if mErr := s.mirror.UpdateScore(ctx, session.PIN(), playerID, score); mErr != nil {
			log.Printf("score mirror update failed for pin %s: %v", session.PIN(), mErr)
		}
	}
	return answer, nil
}

// EndGame freezes the session, then archives it asynchronously. A failed
// archival write leaves the session ended in memory and is retryable later.
func (s *GameService) EndGame(ctx context.Context, pin string) ([]domain.LeaderboardEntry, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return nil, err
	}
	board, err := session.End()
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		rec := session.Record()
		rec.ID = uuid.NewString()
		go func() {
			archiveCtx, cancel := context.WithTimeout(context.Background(), s.archiveTimeout)
			defer cancel()
			if aErr := s.archive.SaveRecord(archiveCtx, rec); aErr != nil {
				log.Printf("archiving game %s failed: %v", rec.PIN, aErr)
			}
		}()
	}
	if s.mirror != nil {
		if mErr := s.mirror.Drop(ctx, session.PIN()); mErr != nil {
			log.Printf("score mirror drop failed for pin %s: %v", session.PIN(), mErr)
		}
	}
	return board, nil
}

// GetStatus returns the polling snapshot for a PIN.
func (s *GameService) GetStatus(ctx context.Context, pin string) (game.StatusView, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return game.StatusView{}, err
	}
	return session.StatusSnapshot(), nil
}

// QuestionResults returns the live per-question summary.
func (s *GameService) QuestionResults(ctx context.Context, pin, questionID string) (domain.QuestionResults, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.QuestionResults{}, err
	}
	return session.QuestionResults(questionID)
}

// Summary returns every player's whole-game outcome for a PIN.
func (s *GameService) Summary(ctx context.Context, pin string) (domain.GameSummary, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.GameSummary{}, err
	}
	return session.Summary()
}

// Leaderboard returns current standings: live ordering while in progress, the
// frozen board once ended.
func (s *GameService) Leaderboard(ctx context.Context, pin string) ([]domain.LeaderboardEntry, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return nil, err
	}
	return session.Leaderboard(), nil
}

// FinalLeaderboard is valid only once the game has ended.
func (s *GameService) FinalLeaderboard(ctx context.Context, pin string) ([]domain.LeaderboardEntry, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return nil, err
	}
	return session.FinalLeaderboard()
}

// CertificateStatus computes a player's certificate eligibility.
func (s *GameService) CertificateStatus(ctx context.Context, pin, playerID string) (domain.CertificateStatus, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.CertificateStatus{}, err
	}
	return session.CertificateStatus(playerID)
}

// CertificateSettings returns a session's configured threshold and template flag.
func (s *GameService) CertificateSettings(ctx context.Context, pin string) (domain.CertificateSettings, error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return domain.CertificateSettings{}, err
	}
	return session.CertificateSettings(), nil
}

// SetCertificateSettings stores the pass threshold and template flag (lobby only).
func (s *GameService) SetCertificateSettings(ctx context.Context, pin string, threshold int, templateConfigured bool) error {
	session, err := s.registry.Get(pin)
	if err != nil {
		return err
	}
	return session.SetCertificateSettings(threshold, templateConfigured)
}

// History lists a host's finished games from the durable archive.
func (s *GameService) History(ctx context.Context, hostName string, limit int) ([]domain.GameRecord, error) {
	if strings.TrimSpace(hostName) == "" {
		return nil, domain.Errorf(domain.KindValidation, "host name is required")
	}
	if s.archive == nil {
		return nil, domain.Errorf(domain.KindUnavailable, "game history not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.archive.ListByHost(ctx, strings.TrimSpace(hostName), limit)
	if err != nil {
		return nil, domain.WrapUnavailable("list history", err)
	}
	return records, nil
}

// DeleteHistory removes one of the host's own history records.
func (s *GameService) DeleteHistory(ctx context.Context, id, hostName string) error {
	if s.archive == nil {
		return domain.Errorf(domain.KindUnavailable, "game history not configured")
	}
	if err := s.archive.DeleteRecord(ctx, id, strings.TrimSpace(hostName)); err != nil {
		if domain.KindOf(err) != domain.KindUnavailable {
			return err
		}
		return domain.WrapUnavailable("delete history", err)
	}
	return nil
}

// Subscribe attaches a listener to a session's broadcasts; the current state
// is replayed immediately so reconnecting clients resynchronize.
func (s *GameService) Subscribe(ctx context.Context, pin string) (<-chan game.Event, func(), error) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// MarkConnected records a player's transient connection state.
func (s *GameService) MarkConnected(ctx context.Context, pin, playerID string, connected bool) {
	session, err := s.registry.Get(pin)
	if err != nil {
		return
	}
	session.SetConnected(playerID, connected)
}

// EvictEnded drops ended sessions past the retention window from the live
// registry. Durable history is unaffected.
func (s *GameService) EvictEnded(retention time.Duration) int {
	return s.registry.EvictEnded(retention)
}
