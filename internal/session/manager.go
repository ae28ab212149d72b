// Package session owns one emotion engine per conversation and turns each
// utterance into an animation package.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexaffect/internal/animation"
	"github.com/normanking/cortexaffect/internal/bus"
	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/pipeline"
	"github.com/normanking/cortexaffect/internal/store"
)

// DefaultMixThreshold is the minimum level for an emotion to be animated.
const DefaultMixThreshold = 0.2

// ErrUnknownSession is returned for operations on a session that does not exist.
var ErrUnknownSession = errors.New("unknown session")

// StateStore persists engine state between process restarts.
type StateStore interface {
	Save(ctx context.Context, sessionID string, state emotion.State) error
	Load(ctx context.Context, sessionID string) (emotion.State, error)
	Delete(ctx context.Context, sessionID string) error
	Log(ctx context.Context, entry store.LogEntry) error
}

// Sink receives every package a session produces.
type Sink interface {
	Send(ctx context.Context, sessionID string, pkg *pipeline.Package) error
}

// Manager creates and tracks sessions. Sessions are independent; a single
// session serializes its own turns.
type Manager struct {
	profiles *emotion.ProfileSet
	animator *pipeline.Animator
	timer    *animation.Timer

	store  StateStore
	sink   Sink
	events *bus.EventBus
	logger zerolog.Logger

	threshold float64
	seed      int64
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithStore(s StateStore) Option {
	return func(m *Manager) { m.store = s }
}

func WithSink(s Sink) Option {
	return func(m *Manager) { m.sink = s }
}

func WithEventBus(b *bus.EventBus) Option {
	return func(m *Manager) { m.events = b }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMixThreshold sets the level an emotion needs to enter the animated mix.
func WithMixThreshold(threshold float64) Option {
	return func(m *Manager) { m.threshold = threshold }
}

// WithSeed makes response selection reproducible. Every session's engine is
// seeded with the same value.
func WithSeed(seed int64) Option {
	return func(m *Manager) { m.seed = seed }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager. Nil profiles, animator or timer get defaults.
func NewManager(profiles *emotion.ProfileSet, animator *pipeline.Animator, timer *animation.Timer, opts ...Option) *Manager {
	if profiles == nil {
		profiles = emotion.DefaultProfiles()
	}
	if animator == nil {
		animator = pipeline.NewAnimator(nil, nil, nil, pipeline.DefaultConfig())
	}
	if timer == nil {
		timer = animation.NewTimer(animation.BaseTransition)
	}
	m := &Manager{
		profiles:  profiles,
		animator:  animator,
		timer:     timer,
		logger:    zerolog.Nop(),
		threshold: DefaultMixThreshold,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.threshold < 0 || m.threshold > 1 {
		m.threshold = DefaultMixThreshold
	}
	return m
}

// Session returns the session for id, creating it on first use. A new session
// restores its state from the store when one was saved.
func (m *Manager) Session(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}

	if s, ok := m.Get(id); ok {
		return s, nil
	}

	s := &Session{
		id:      id,
		manager: m,
		engine:  emotion.NewEngine(m.profiles, m.engineOptions()...),
		created: m.now(),
	}

	restored := false
	if m.store != nil {
		state, err := m.store.Load(ctx, id)
		switch {
		case err == nil:
			s.engine.Restore(state)
			restored = true
		case errors.Is(err, store.ErrNotFound):
		default:
			m.logger.Warn().Err(err).Str("session", id).Msg("Failed to restore session state")
		}
	}

	// Another caller may have created the session while the store was read.
	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info().Str("session", id).Bool("restored", restored).Msg("Session created")
	m.publish(bus.EventTypeSessionCreated, id, map[string]any{"restored": restored})
	return s, nil
}

func (m *Manager) engineOptions() []emotion.Option {
	opts := []emotion.Option{
		emotion.WithClock(m.now),
		emotion.WithLogger(m.logger),
	}
	if m.seed != 0 {
		opts = append(opts, emotion.WithSeed(m.seed))
	}
	return opts
}

// Get returns an existing session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// IDs lists the live sessions in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Respond is shorthand for Session(ctx, id) followed by Respond.
func (m *Manager) Respond(ctx context.Context, id, text string, detected map[string]float64) (*pipeline.Package, error) {
	s, err := m.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Respond(ctx, text, detected), nil
}

// Reset returns a live session to its baseline.
func (m *Manager) Reset(ctx context.Context, id string) error {
	s, ok := m.Get(id)
	if !ok {
		return ErrUnknownSession
	}
	s.Reset(ctx)
	return nil
}

// Delete forgets a session and removes its stored state.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn().Err(err).Str("session", id).Msg("Failed to delete stored session")
		}
	}
	if !ok {
		return ErrUnknownSession
	}

	m.logger.Info().Str("session", id).Msg("Session deleted")
	m.publish(bus.EventTypeSessionDeleted, id, nil)
	return nil
}

func (m *Manager) publish(t bus.EventType, sessionID string, data map[string]any) {
	if m.events == nil {
		return
	}
	m.events.Publish(bus.Event{Type: t, SessionID: sessionID, Data: data})
}
