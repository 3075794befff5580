package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// pinAlphabet excludes nothing; PINs are stored uppercase and looked up
// case-insensitively.
const (
	pinAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	pinLength   = 6
)

// Registry is the process-wide mapping from PIN to live session. Sessions for
// different PINs run fully independently; the registry lock only guards the
// map itself.
type Registry struct {
	scoring ScoreConfig
	grace   time.Duration
	clock   func() time.Time
	rnd     *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds a registry with production defaults.
func NewRegistry() *Registry {
	return NewRegistryWithClock(DefaultScoring, DefaultGrace, time.Now)
}

// NewRegistryWithClock is used by tests that need deterministic time.
func NewRegistryWithClock(scoring ScoreConfig, grace time.Duration, clock func() time.Time) *Registry {
	return &Registry{
		scoring:  scoring,
		grace:    grace,
		clock:    clock,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*Session),
	}
}

// Create allocates a unique PIN and registers a new lobby for the quiz.
// A PIN collision triggers regeneration, never an overwrite.
func (r *Registry) Create(quiz domain.Quiz, hostName string) (*Session, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return nil, err
	}
	if strings.TrimSpace(hostName) == "" {
		return nil, domain.Errorf(domain.KindValidation, "host name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pin := r.generatePINLocked()
	for _, taken := r.sessions[pin]; taken; _, taken = r.sessions[pin] {
		pin = r.generatePINLocked()
	}

	session := newSession(pin, quiz, strings.TrimSpace(hostName), r.scoring, r.grace, r.clock)
	r.sessions[pin] = session
	return session, nil
}

// Get resolves a PIN case-insensitively.
func (r *Registry) Get(pin string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[normalizePIN(pin)]
	if !ok {
		return nil, domain.Errorf(domain.KindNotFound, "game not found, check your PIN")
	}
	return session, nil
}

// Remove drops a session from the live registry. Durable history is kept
// elsewhere; this only frees the PIN.
func (r *Registry) Remove(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, normalizePIN(pin))
}

// EvictEnded removes ended sessions older than the retention window and
// returns how many were dropped.
func (r *Registry) EvictEnded(retention time.Duration) int {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for pin, session := range r.sessions {
		ended := session.EndedAt()
		if !ended.IsZero() && now.Sub(ended) > retention {
			delete(r.sessions, pin)
			evicted++
		}
	}
	return evicted
}

// Len reports how many live sessions the registry holds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) generatePINLocked() string {
	b := make([]byte, pinLength)
	for i := range b {
		b[i] = pinAlphabet[r.rnd.Intn(len(pinAlphabet))]
	}
	return string(b)
}

func normalizePIN(pin string) string {
	return strings.ToUpper(strings.TrimSpace(pin))
}
