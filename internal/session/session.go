package session

import (
	"context"
	"sync"
	"time"

	"github.com/normanking/cortexaffect/internal/bus"
	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/pipeline"
	"github.com/normanking/cortexaffect/internal/store"
)

// Session is one conversation. Its methods are safe for concurrent use; turns
// are applied one at a time.
type Session struct {
	id      string
	manager *Manager
	created time.Time

	mu     sync.Mutex
	engine *emotion.Engine
	turns  int

	version int

	// persistMu orders saves; saved is the newest version written.
	persistMu sync.Mutex
	saved     int
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Created() time.Time {
	return s.created
}

// Turns counts Respond calls since creation or the last Reset.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// Respond applies one utterance. The detected intensities update the engine,
// the resulting mix is animated, and the dominant-emotion change (if any) sets
// the transition time of the keyframe sequence. Persistence and delivery
// failures are logged and never affect the returned package.
func (s *Session) Respond(ctx context.Context, text string, detected map[string]float64) *pipeline.Package {
	m := s.manager

	s.mu.Lock()
	prev, _ := s.engine.Primary()
	s.engine.Update(emotion.ParseMix(detected))
	cur, level := s.engine.Primary()
	mix := s.engine.CurrentMix(m.threshold)

	var transition float64
	if cur != prev {
		transition = m.timer.Timing(s.engine, prev, cur)
	}

	pkg := m.animator.Build(pipeline.Request{Text: text, Mix: mix, Transition: transition})
	s.turns++
	s.version++
	version := s.version
	state := s.engine.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, version, state, pkg)

	if cur != prev {
		m.logger.Debug().
			Str("session", s.id).
			Str("from", prev.String()).
			Str("to", cur.String()).
			Float64("transition", transition).
			Msg("Primary emotion changed")
		m.publish(bus.EventTypeEmotionChanged, s.id, map[string]any{
			"from":       prev.String(),
			"to":         cur.String(),
			"intensity":  level,
			"transition": transition,
		})
	}

	if m.sink != nil {
		if err := m.sink.Send(ctx, s.id, pkg); err != nil {
			m.logger.Warn().Err(err).Str("session", s.id).Msg("Failed to deliver package")
		}
	}

	m.publish(bus.EventTypePackageReady, s.id, map[string]any{
		"id":              pkg.ID.String(),
		"primary_emotion": pkg.Metadata.PrimaryEmotion,
		"intensity":       pkg.Metadata.Intensity,
		"total_duration":  pkg.Timing.TotalDuration,
	})
	return pkg
}

// persist saves state unless a newer version has already been written, then
// logs pkg.
func (s *Session) persist(ctx context.Context, version int, state emotion.State, pkg *pipeline.Package) {
	m := s.manager
	if m.store == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if version > s.saved {
		if err := m.store.Save(ctx, s.id, state); err != nil {
			m.logger.Warn().Err(err).Str("session", s.id).Msg("Failed to save session state")
			return
		}
		s.saved = version
	}
	if pkg == nil {
		return
	}
	err := m.store.Log(ctx, store.LogEntry{
		ID:             pkg.ID.String(),
		SessionID:      s.id,
		PrimaryEmotion: pkg.Metadata.PrimaryEmotion,
		Intensity:      pkg.Metadata.Intensity,
		TextLength:     pkg.Metadata.TextLength,
		TotalDuration:  pkg.Timing.TotalDuration,
		CreatedAt:      pkg.Metadata.GeneratedAt.UTC(),
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("session", s.id).Msg("Failed to log package")
	}
}

// Reset returns the engine to its baseline levels. History is kept.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.engine.Reset()
	s.turns = 0
	s.version++
	version := s.version
	state := s.engine.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, version, state, nil)

	s.manager.logger.Info().Str("session", s.id).Msg("Session reset")
	s.manager.publish(bus.EventTypeSessionReset, s.id, nil)
}

func (s *Session) Summary() emotion.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Summary()
}

func (s *Session) Suggest() emotion.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Suggest()
}

// Mix returns the currently animated mix.
func (s *Session) Mix() emotion.Mix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CurrentMix(s.manager.threshold)
}

func (s *Session) Snapshot() emotion.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}
