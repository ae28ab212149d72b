// Package pipeline assembles the per-utterance animation package from an emotion
// mix and the text being spoken.
package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/normanking/cortexaffect/internal/animation"
	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/face"
	"github.com/normanking/cortexaffect/internal/lipsync"
)

// Config holds the speech timing model.
type Config struct {
	SpeechRate     float64 // characters per second
	IntensityScale float64 // speech stretch per unit of intensity above 0.5
}

func DefaultConfig() Config {
	return Config{
		SpeechRate:     4.0,
		IntensityScale: 0.3,
	}
}

// TimingSummary describes how long each part of the response animation lasts.
// All values are seconds.
type TimingSummary struct {
	SpeechDuration    float64 `json:"speech_duration"`
	TransitionIn      float64 `json:"transition_in"`
	TransitionOut     float64 `json:"transition_out"`
	HoldTime          float64 `json:"hold_time"`
	TotalDuration     float64 `json:"total_duration"`
	WordCount         int     `json:"word_count"`
	EmotionModifier   float64 `json:"emotion_modifier"`
	LipSyncDuration   float64 `json:"lip_sync_duration"`
	EmotionTransition float64 `json:"emotion_transition"`
}

// Metadata identifies what a package was built from.
type Metadata struct {
	PrimaryEmotion string      `json:"primary_emotion"`
	Intensity      float64     `json:"intensity"`
	EmotionMix     emotion.Mix `json:"emotion_mix"`
	TextLength     int         `json:"text_length"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

// Package is everything a renderer needs for one utterance.
type Package struct {
	ID               uuid.UUID               `json:"id"`
	FacialExpression face.Expression         `json:"facial_expression"`
	Phonemes         []lipsync.Unit          `json:"phoneme_sequence"`
	Visemes          *lipsync.VisemeTimeline `json:"viseme_timeline"`
	Sequence         *animation.Sequence     `json:"animation_sequence"`
	Timing           TimingSummary           `json:"timing"`
	Metadata         Metadata                `json:"metadata"`
}

// ToMap renders the package as plain nested maps for transports that do not
// take typed payloads.
func (p *Package) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal package: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal package: %w", err)
	}
	return out, nil
}

// Request is one utterance to animate. Transition overrides the synthesizer's
// transition time when positive. Sampled selects the four-frame raised-cosine
// sequence spread over the speech duration instead of the three-keyframe one.
type Request struct {
	Text       string
	Mix        emotion.Mix
	Transition float64
	Sampled    bool
}

// Animator runs the face mapping, lip sync and keyframe synthesis for a request.
// It holds no per-session state.
type Animator struct {
	mapper   *face.Mapper
	timeline *lipsync.Timeline
	synth    *animation.Synthesizer
	cfg      Config

	now   func() time.Time
	newID func() uuid.UUID
}

type Option func(*Animator)

func WithClock(now func() time.Time) Option {
	return func(a *Animator) { a.now = now }
}

func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(a *Animator) { a.newID = gen }
}

// NewAnimator wires the three stages. Nil stages get their defaults.
func NewAnimator(mapper *face.Mapper, timeline *lipsync.Timeline, synth *animation.Synthesizer, cfg Config, opts ...Option) *Animator {
	if mapper == nil {
		mapper = face.NewMapper(face.BlendAdditive)
	}
	if timeline == nil {
		timeline = lipsync.NewTimeline(lipsync.DefaultConfig())
	}
	if synth == nil {
		synth = animation.NewSynthesizer(mapper, animation.DefaultConfig())
	}
	if cfg.SpeechRate <= 0 {
		cfg.SpeechRate = DefaultConfig().SpeechRate
	}
	a := &Animator{
		mapper:   mapper,
		timeline: timeline,
		synth:    synth,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build produces the package for req. The mix is copied before the stages run
// concurrently, so callers may reuse it afterwards.
func (a *Animator) Build(req Request) *Package {
	mix := req.Mix.Clone()

	var (
		wg       sync.WaitGroup
		expr     face.Expression
		units    []lipsync.Unit
		sequence *animation.Sequence
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		expr = a.mapper.Map(mix)
	}()
	go func() {
		defer wg.Done()
		units = a.timeline.FromText(req.Text)
	}()
	go func() {
		defer wg.Done()
		speech := a.speechDuration(req.Text, peakIntensity(mix))
		if req.Sampled {
			sequence = a.synth.SynthesizeSampled(mix, speech)
			return
		}
		sequence = a.synth.SynthesizeWithTransition(mix, speech, req.Transition)
	}()
	wg.Wait()

	timing := a.TimingWithTransition(req.Text, mix, req.Transition)
	timing.LipSyncDuration = lipsync.Duration(units)
	timing.EmotionTransition = sequence.Keyframes[1].Timestamp

	return &Package{
		ID:               a.newID(),
		FacialExpression: expr,
		Phonemes:         units,
		Visemes:          lipsync.ToVisemeTimeline(units),
		Sequence:         sequence,
		Timing:           timing,
		Metadata: Metadata{
			PrimaryEmotion: sequence.Metadata.PrimaryEmotion,
			Intensity:      sequence.Metadata.Intensity,
			EmotionMix:     sequence.Metadata.EmotionMix,
			TextLength:     utf8.RuneCountInString(req.Text),
			GeneratedAt:    a.now(),
		},
	}
}

// Timing estimates speech and animation durations for text spoken with mix.
// Speech runs at SpeechRate characters per second and stretches by
// 1 + (intensity-0.5)*IntensityScale, intensity being the dominant level.
func (a *Animator) Timing(text string, mix emotion.Mix) TimingSummary {
	return a.TimingWithTransition(text, mix, 0)
}

// TimingWithTransition is Timing with the transition time replaced. Non-positive
// values fall back to the configured transition time.
func (a *Animator) TimingWithTransition(text string, mix emotion.Mix, transition float64) TimingSummary {
	intensity := peakIntensity(mix)
	cfg := a.synth.Config()
	if transition <= 0 {
		transition = cfg.TransitionTime
	}
	speech := a.speechDuration(text, intensity)
	return TimingSummary{
		SpeechDuration:  speech,
		TransitionIn:    transition,
		TransitionOut:   transition,
		HoldTime:        cfg.HoldTime,
		TotalDuration:   speech + 2*transition,
		WordCount:       len(strings.Fields(text)),
		EmotionModifier: a.modifier(intensity),
	}
}

func (a *Animator) speechDuration(text string, intensity float64) float64 {
	return float64(utf8.RuneCountInString(text)) / a.cfg.SpeechRate * a.modifier(intensity)
}

func (a *Animator) modifier(intensity float64) float64 {
	return 1 + (intensity-0.5)*a.cfg.IntensityScale
}

func peakIntensity(mix emotion.Mix) float64 {
	peak := math.Inf(-1)
	for e, level := range mix {
		if e.Valid() && level > 0 && level > peak {
			peak = level
		}
	}
	if math.IsInf(peak, -1) {
		return animation.EmptyMixIntensity
	}
	return math.Min(peak, 1)
}
