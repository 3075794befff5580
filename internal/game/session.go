package game

import (
	"strings"
	"sync"
	"time"

	"livequiz-service/internal/domain"

	"github.com/google/uuid"
)

// EventType identifies a broadcast pushed to subscribers of a PIN.
type EventType string

const (
	EventLobbyUpdated    EventType = "lobby_updated"
	EventGameStarted     EventType = "game_started"
	EventQuestionChanged EventType = "question_changed"
	EventGameEnded       EventType = "game_ended"
)

// Event is one broadcast delivered to every connection subscribed to a session.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// RosterEntry is the lobby view of one player. Scores are not part of the roster.
type RosterEntry struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber,omitempty"`
	Connected  bool   `json:"connected"`
}

// LobbyPayload accompanies EventLobbyUpdated.
type LobbyPayload struct {
	Players []RosterEntry `json:"players"`
	Count   int           `json:"count"`
}

// StartedPayload accompanies EventGameStarted.
type StartedPayload struct {
	QuestionCount int `json:"questionCount"`
}

// QuestionPayload accompanies EventQuestionChanged. It deliberately omits the
// correct answer; this is the only question shape that ever reaches players.
type QuestionPayload struct {
	Index            int       `json:"index"`
	QuestionID       string    `json:"questionId"`
	Text             string    `json:"text"`
	Options          []string  `json:"options"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	StartedAt        time.Time `json:"startedAt"`
}

// EndedPayload accompanies EventGameEnded.
type EndedPayload struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// StatusView is a point-in-time snapshot of a session for polling clients.
type StatusView struct {
	PIN                  string            `json:"pin"`
	QuizID               string            `json:"quizId"`
	QuizTitle            string            `json:"quizTitle"`
	HostName             string            `json:"hostName"`
	Status               domain.GameStatus `json:"status"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	QuestionCount        int               `json:"questionCount"`
	Players              []domain.Player   `json:"players"`
}

type answerKey struct {
	questionID string
	playerID   string
}

// Session is the authoritative state machine for one live game, keyed by PIN.
// All mutations are serialized under one mutex; time-up is never a timer
// callback but a derived read against questionStartedAt, so correctness only
// depends on comparing the clock to the broadcast instant.
type Session struct {
	pin      string
	quiz     domain.Quiz
	hostName string
	clock    func() time.Time
	scoring  ScoreConfig
	grace    time.Duration

	mu                sync.RWMutex
	status            domain.GameStatus
	players           map[string]*domain.Player
	answers           map[answerKey]domain.Answer
	elapsedTotals     map[string]float64
	currentIndex      int
	questionStartedAt time.Time
	lastQuestion      *QuestionPayload
	certificate       domain.CertificateSettings
	createdAt         time.Time
	startedAt         time.Time
	endedAt           time.Time
	finalBoard        []domain.LeaderboardEntry
	subscribers       map[chan Event]struct{}
}

func newSession(pin string, quiz domain.Quiz, hostName string, scoring ScoreConfig, grace time.Duration, clock func() time.Time) *Session {
	return &Session{
		pin:           pin,
		quiz:          quiz,
		hostName:      hostName,
		clock:         clock,
		scoring:       scoring,
		grace:         grace,
		status:        domain.StatusLobby,
		players:       make(map[string]*domain.Player),
		answers:       make(map[answerKey]domain.Answer),
		elapsedTotals: make(map[string]float64),
		currentIndex:  -1,
		certificate:   domain.CertificateSettings{Threshold: domain.DefaultCertificateThreshold},
		createdAt:     clock(),
		subscribers:   make(map[chan Event]struct{}),
	}
}

// PIN returns the session's join code.
func (s *Session) PIN() string { return s.pin }

// Quiz returns the immutable quiz this session runs.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// HostName returns the host that created the session.
func (s *Session) HostName() string { return s.hostName }

// Status returns the current lifecycle phase.
func (s *Session) Status() domain.GameStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Join registers a new player while the lobby is open. Names must be unique
// within a session so the host can tell players apart.
func (s *Session) Join(name, rollNumber string) (domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Player{}, domain.Errorf(domain.KindValidation, "player name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case domain.StatusEnded:
		return domain.Player{}, domain.Errorf(domain.KindInvalidState, "game has already ended")
	case domain.StatusInProgress:
		return domain.Player{}, domain.Errorf(domain.KindInvalidState, "game has already started")
	}
	for _, p := range s.players {
		if p.Name == name {
			return domain.Player{}, domain.Errorf(domain.KindValidation, "name %q is already taken in this game", name)
		}
	}

	player := &domain.Player{
		ID:         uuid.NewString(),
		Name:       name,
		RollNumber: strings.TrimSpace(rollNumber),
		Connected:  true,
		JoinedAt:   s.clock(),
	}
	s.players[player.ID] = player
	s.broadcastLocked(Event{Type: EventLobbyUpdated, Payload: s.lobbyPayloadLocked()})
	return *player, nil
}

// Rejoin re-establishes an existing player's identity after a reconnect.
// It never creates a duplicate player and is valid mid-game.
func (s *Session) Rejoin(playerID string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return domain.Player{}, domain.Errorf(domain.KindInvalidState, "game has already ended")
	}
	player, ok := s.players[playerID]
	if !ok {
		return domain.Player{}, domain.Errorf(domain.KindNotFound, "player not found in this game")
	}
	if !player.Connected {
		player.Connected = true
		s.broadcastLocked(Event{Type: EventLobbyUpdated, Payload: s.lobbyPayloadLocked()})
	}
	return *player, nil
}

// SetConnected flips a player's transient connection state. The player and
// their score always survive a disconnect.
func (s *Session) SetConnected(playerID string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok || player.Connected == connected || s.status == domain.StatusEnded {
		return
	}
	player.Connected = connected
	s.broadcastLocked(Event{Type: EventLobbyUpdated, Payload: s.lobbyPayloadLocked()})
}

// Start transitions Lobby -> InProgress and activates the first question.
// The question broadcast and the state transition are one atomic step; there
// is no separate writer that could disagree with the session.
func (s *Session) Start() (QuestionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusLobby {
		return QuestionPayload{}, domain.Errorf(domain.KindInvalidState, "game already started or finished")
	}
	if len(s.players) == 0 {
		return QuestionPayload{}, domain.Errorf(domain.KindInvalidState, "cannot start a game with no players")
	}

	s.status = domain.StatusInProgress
	s.startedAt = s.clock()
	s.broadcastLocked(Event{Type: EventGameStarted, Payload: StartedPayload{QuestionCount: len(s.quiz.Questions)}})
	payload := s.activateQuestionLocked(0)
	return payload, nil
}

// AdvanceQuestion moves to the next question. It is gated by server-computed
// elapsed time: the host's local countdown is never trusted, so a second
// advance arriving while the fresh question still runs is rejected.
func (s *Session) AdvanceQuestion() (QuestionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return QuestionPayload{}, domain.Errorf(domain.KindInvalidState, "game is not in progress")
	}
	current := s.quiz.Questions[s.currentIndex]
	if s.clock().Sub(s.questionStartedAt) < current.TimeLimit() {
		return QuestionPayload{}, domain.Errorf(domain.KindInvalidState, "current question has not expired yet")
	}
	if s.currentIndex+1 >= len(s.quiz.Questions) {
		return QuestionPayload{}, domain.Errorf(domain.KindInvalidState, "no questions remain; end the game instead")
	}
	return s.activateQuestionLocked(s.currentIndex + 1), nil
}

func (s *Session) activateQuestionLocked(index int) QuestionPayload {
	s.currentIndex = index
	s.questionStartedAt = s.clock()

	q := s.quiz.Questions[index]
	payload := QuestionPayload{
		Index:            index,
		QuestionID:       q.ID,
		Text:             q.Text,
		Options:          q.Options,
		TimeLimitSeconds: int(q.TimeLimit() / time.Second),
		StartedAt:        s.questionStartedAt,
	}
	s.lastQuestion = &payload
	s.broadcastLocked(Event{Type: EventQuestionChanged, Payload: payload})
	return payload
}

// SubmitAnswer validates and scores a player's submission against the current
// question. Elapsed time is measured server-side from questionStartedAt; the
// fixed grace tolerance absorbs network latency but is never client-controlled.
// Resubmitting the identical accepted answer is an idempotent no-op.
func (s *Session) SubmitAnswer(playerID, questionID, text string) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return domain.Answer{}, domain.Errorf(domain.KindInvalidState, "game is not accepting answers")
	}
	player, ok := s.players[playerID]
	if !ok {
		return domain.Answer{}, domain.Errorf(domain.KindNotFound, "player not found in this game")
	}
	question, ok := s.quiz.QuestionByID(questionID)
	if !ok {
		return domain.Answer{}, domain.Errorf(domain.KindNotFound, "question not found in this quiz")
	}
	current := s.quiz.Questions[s.currentIndex]
	if questionID != current.ID {
		return domain.Answer{}, domain.Errorf(domain.KindStaleQuestion, "question %s is no longer current", questionID)
	}

	key := answerKey{questionID: questionID, playerID: playerID}
	if prior, exists := s.answers[key]; exists {
		if prior.Text == strings.TrimSpace(text) {
			return prior, nil
		}
		return domain.Answer{}, domain.Errorf(domain.KindAlreadyAnswered, "already answered this question")
	}

	text = strings.TrimSpace(text)
	if !question.HasOption(text) {
		return domain.Answer{}, domain.Errorf(domain.KindValidation, "answer is not one of the question's options")
	}

	elapsed := s.clock().Sub(s.questionStartedAt)
	if elapsed > question.TimeLimit()+s.grace {
		return domain.Answer{}, domain.Errorf(domain.KindTimeExpired, "time is up for this question")
	}

	correct := text == question.CorrectAnswer
	points := s.scoring.Score(correct, elapsed, question.TimeLimit())
	answer := domain.Answer{
		PlayerID:       playerID,
		QuestionID:     questionID,
		Text:           text,
		ElapsedSeconds: elapsed.Seconds(),
		Correct:        correct,
		Points:         points,
	}
	s.answers[key] = answer
	s.elapsedTotals[playerID] += answer.ElapsedSeconds
	player.Score += points
	return answer, nil
}

// End freezes the session. The final leaderboard is computed exactly once and
// cached; calling End on an already ended session converges to the same result.
func (s *Session) End() ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return s.finalBoard, nil
	}
	if s.status != domain.StatusInProgress {
		return nil, domain.Errorf(domain.KindInvalidState, "game has not started")
	}

	s.status = domain.StatusEnded
	s.endedAt = s.clock()
	s.finalBoard = s.leaderboardLocked()
	s.broadcastLocked(Event{Type: EventGameEnded, Payload: EndedPayload{Leaderboard: s.finalBoard}})
	return s.finalBoard, nil
}

// TimeRemaining reports how long the current question still runs. Zero once
// expired. It is a derived read; nothing fires when it reaches zero.
func (s *Session) TimeRemaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status != domain.StatusInProgress {
		return 0
	}
	limit := s.quiz.Questions[s.currentIndex].TimeLimit()
	remaining := limit - s.clock().Sub(s.questionStartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CurrentQuestion returns the latest question broadcast, if any.
func (s *Session) CurrentQuestion() (QuestionPayload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastQuestion == nil {
		return QuestionPayload{}, false
	}
	return *s.lastQuestion, true
}

// SetCertificateSettings configures the pass threshold and whether a template
// is ready. Only legal before the game starts.
func (s *Session) SetCertificateSettings(threshold int, templateConfigured bool) error {
	if threshold < 1 || threshold > 100 {
		return domain.Errorf(domain.KindValidation, "certificate threshold must be between 1 and 100")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusLobby {
		return domain.Errorf(domain.KindInvalidState, "certificate settings can only change before the game starts")
	}
	s.certificate = domain.CertificateSettings{Threshold: threshold, TemplateConfigured: templateConfigured}
	return nil
}

// CertificateSettings returns the configured threshold and template flag.
func (s *Session) CertificateSettings() domain.CertificateSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.certificate
}

// StatusSnapshot returns the polling view of the session.
func (s *Session) StatusSnapshot() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	sortPlayersByJoin(players)

	return StatusView{
		PIN:                  s.pin,
		QuizID:               s.quiz.ID,
		QuizTitle:            s.quiz.Title,
		HostName:             s.hostName,
		Status:               s.status,
		CurrentQuestionIndex: s.currentIndex,
		QuestionCount:        len(s.quiz.Questions),
		Players:              players,
	}
}

// Record summarizes the session for durable history.
func (s *Session) Record() domain.GameRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := domain.GameRecord{
		PIN:         s.pin,
		QuizID:      s.quiz.ID,
		QuizTitle:   s.quiz.Title,
		HostName:    s.hostName,
		PlayerCount: len(s.players),
		CreatedAt:   s.createdAt,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		rec.StartedAt = &started
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		rec.EndedAt = &ended
	}
	return rec
}

// EndedAt returns when the session finished, or zero time if still live.
func (s *Session) EndedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt
}

// Subscribe registers a listener for session broadcasts and immediately
// replays the current state so a reconnecting client misses nothing: the
// lobby roster, or the running question, or the final leaderboard.
// The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	replay := s.resyncEventsLocked()
	s.mu.Unlock()

	for _, ev := range replay {
		ch <- ev
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) resyncEventsLocked() []Event {
	switch s.status {
	case domain.StatusInProgress:
		events := []Event{{Type: EventGameStarted, Payload: StartedPayload{QuestionCount: len(s.quiz.Questions)}}}
		if s.lastQuestion != nil {
			events = append(events, Event{Type: EventQuestionChanged, Payload: *s.lastQuestion})
		}
		return events
	case domain.StatusEnded:
		return []Event{{Type: EventGameEnded, Payload: EndedPayload{Leaderboard: s.finalBoard}}}
	default:
		return []Event{{Type: EventLobbyUpdated, Payload: s.lobbyPayloadLocked()}}
	}
}

func (s *Session) lobbyPayloadLocked() LobbyPayload {
	roster := make([]RosterEntry, 0, len(s.players))
	for _, p := range s.players {
		roster = append(roster, RosterEntry{
			PlayerID:   p.ID,
			Name:       p.Name,
			RollNumber: p.RollNumber,
			Connected:  p.Connected,
		})
	}
	sortRoster(roster)
	return LobbyPayload{Players: roster, Count: len(roster)}
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop its oldest pending event rather than block
			// every other connection on this PIN.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
