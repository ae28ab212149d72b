package emotion

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DecayFactor scales every emotion at the start of each update.
	DecayFactor = 0.9
	// ExcitationThreshold is the level above which an emotion boosts its relatives.
	ExcitationThreshold = 0.5
	// BaselineFloorRatio is the fraction of the baseline an emotion may not drop below.
	BaselineFloorRatio = 0.5

	HistoryLimit  = 100
	HistoryRetain = 50
)

// HistoryEntry records the primary emotion as it stood before an update.
type HistoryEntry struct {
	Time      time.Time `json:"time"`
	Emotion   Emotion   `json:"emotion"`
	Intensity float64   `json:"intensity"`
}

// State is a serializable copy of an engine's mutable data.
type State struct {
	Current Vector         `json:"current"`
	History []HistoryEntry `json:"history"`
}

// Engine owns one conversation's emotion vector. It is not safe for concurrent
// use; callers serialize updates per session.
type Engine struct {
	profiles *ProfileSet
	baseline Vector
	current  Vector
	history  []HistoryEntry

	rng    *rand.Rand
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used for response and cue selection.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed is shorthand for WithRand(rand.New(rand.NewSource(seed))).
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithClock overrides the clock used to timestamp history entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine resting at the profile baselines. A nil profile set
// selects DefaultProfiles.
func NewEngine(profiles *ProfileSet, opts ...Option) *Engine {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	e := &Engine{
		profiles: profiles,
		baseline: profiles.Baselines(),
		history:  make([]HistoryEntry, 0, HistoryLimit+1),
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	e.current = e.baseline
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Update applies one turn of detected stimulus:
//
//  1. the pre-update primary emotion is appended to history
//  2. every level decays by DecayFactor
//  3. detected intensities are added (clamped at 1)
//  4. when any stimulus was applied, every emotion above ExcitationThreshold boosts
//     its related emotions by level*boost, reading levels from a snapshot
//  5. no level stays below BaselineFloorRatio of its baseline
//  6. history is trimmed to HistoryRetain entries once it exceeds HistoryLimit
func (e *Engine) Update(detected Mix) {
	before, beforeLevel := e.current.Primary()
	e.history = append(e.history, HistoryEntry{
		Time:      e.now(),
		Emotion:   before,
		Intensity: beforeLevel,
	})

	for i := range e.current {
		e.current[i] *= DecayFactor
	}

	stimulated := false
	for i := 0; i < int(Count); i++ {
		level, ok := detected[Emotion(i)]
		if !ok {
			continue
		}
		level = clamp01(level)
		if level > 0 {
			stimulated = true
		}
		e.current.Set(Emotion(i), e.current[i]+level)
	}

	if stimulated {
		e.crossExcite()
	}

	for i, base := range e.baseline {
		if floor := base * BaselineFloorRatio; e.current[i] < floor {
			e.current[i] = floor
		}
	}

	if len(e.history) > HistoryLimit {
		trimmed := make([]HistoryEntry, HistoryRetain, HistoryLimit+1)
		copy(trimmed, e.history[len(e.history)-HistoryRetain:])
		e.history = trimmed
	}

	after, afterLevel := e.current.Primary()
	e.logger.Debug().
		Str("before", before.String()).
		Float64("before_level", beforeLevel).
		Str("after", after.String()).
		Float64("after_level", afterLevel).
		Int("detected", len(detected)).
		Msg("emotion update")
}

// crossExcite reads source levels from a snapshot so boosts applied during the
// pass never feed back into it. Sources are visited in declaration order; with
// non-negative boosts and a clamp at 1 the result does not depend on that order.
func (e *Engine) crossExcite() {
	snapshot := e.current
	for i := 0; i < int(Count); i++ {
		level := snapshot[i]
		if level <= ExcitationThreshold {
			continue
		}
		interactions := e.profiles.Get(Emotion(i)).Interactions
		for j := 0; j < int(Count); j++ {
			boost, ok := interactions[Emotion(j)]
			if !ok {
				continue
			}
			e.current.Set(Emotion(j), e.current[j]+level*boost)
		}
	}
}

// Primary returns the strongest current emotion.
func (e *Engine) Primary() (Emotion, float64) {
	return e.current.Primary()
}

// CurrentMix returns every emotion at or above threshold.
func (e *Engine) CurrentMix(threshold float64) Mix {
	return e.current.Mix(threshold)
}

// Level returns the live intensity of one emotion.
func (e *Engine) Level(em Emotion) float64 {
	return e.current.Get(em)
}

// Vector returns a copy of the full intensity vector.
func (e *Engine) Vector() Vector {
	return e.current
}

// Baseline returns the resting vector the floor is derived from.
func (e *Engine) Baseline() Vector {
	return e.baseline
}

// Profiles exposes the immutable profile table.
func (e *Engine) Profiles() *ProfileSet {
	return e.profiles
}

// History returns a copy of the history log in chronological order.
func (e *Engine) History() []HistoryEntry {
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// Reset restores the baseline vector. History is kept.
func (e *Engine) Reset() {
	e.current = e.baseline
	e.logger.Debug().Msg("emotion reset to baseline")
}

// Snapshot captures the mutable state for persistence.
func (e *Engine) Snapshot() State {
	return State{Current: e.current, History: e.History()}
}

// Restore replaces the mutable state. Levels are clamped and history is trimmed
// to the usual bounds.
func (e *Engine) Restore(s State) {
	for i, level := range s.Current {
		e.current.Set(Emotion(i), level)
	}
	history := s.History
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryRetain:]
	}
	e.history = append(make([]HistoryEntry, 0, HistoryLimit+1), history...)
}

// Suggestion is a reply-style hint for the response-enhancement layer.
type Suggestion struct {
	Primary      Emotion `json:"primary_emotion"`
	Intensity    float64 `json:"intensity"`
	Mix          Mix     `json:"emotion_mix"`
	Response     string  `json:"response_suggestion"`
	AnimationCue string  `json:"animation"`
	Tone         string  `json:"tone"`
}

// Suggest picks a canned response and an animation cue for the current primary
// emotion using the engine's random source.
func (e *Engine) Suggest() Suggestion {
	primary, intensity := e.current.Primary()
	profile := e.profiles.Get(primary)
	return Suggestion{
		Primary:      primary,
		Intensity:    intensity,
		Mix:          e.current.Mix(0.4),
		Response:     e.pick(profile.Responses),
		AnimationCue: e.pick(profile.AnimationCues),
		Tone:         Tone(primary, intensity),
	}
}

func (e *Engine) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[e.rng.Intn(len(options))]
}

// Summary is a point-in-time report of the emotional state.
type Summary struct {
	Primary       Emotion        `json:"primary_emotion"`
	Intensity     float64        `json:"intensity"`
	All           Vector         `json:"all_emotions"`
	Mix           Mix            `json:"emotion_mix"`
	RecentChanges []HistoryEntry `json:"recent_changes"`
}

// Summary reports the state with the five most recent history entries.
func (e *Engine) Summary() Summary {
	primary, intensity := e.current.Primary()
	start := len(e.history) - 5
	if start < 0 {
		start = 0
	}
	recent := make([]HistoryEntry, len(e.history)-start)
	copy(recent, e.history[start:])
	return Summary{
		Primary:       primary,
		Intensity:     intensity,
		All:           e.current,
		Mix:           e.current.Mix(0.3),
		RecentChanges: recent,
	}
}
