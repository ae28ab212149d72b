package lipsync

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/normanking/cortexaffect/internal/face"
)

// Config holds the duration model. All values are seconds.
type Config struct {
	VowelDuration     float64
	ConsonantDuration float64
	Transition        float64
	WordPause         float64
}

func DefaultConfig() Config {
	return Config{
		VowelDuration:     0.15,
		ConsonantDuration: 0.08,
		Transition:        0.05,
		WordPause:         0.1,
	}
}

// Unit is one timed phoneme.
type Unit struct {
	Phoneme       Phoneme         `json:"phoneme"`
	StartTime     float64         `json:"start_time"`
	Duration      float64         `json:"duration"`
	MouthShape    face.MouthShape `json:"mouth_shape"`
	Intensity     float64         `json:"intensity"`
	TransitionIn  float64         `json:"transition_in"`
	TransitionOut float64         `json:"transition_out"`
}

func (u Unit) EndTime() float64 {
	return u.StartTime + u.Duration
}

func (u Unit) MarshalJSON() ([]byte, error) {
	type unit Unit
	return json.Marshal(struct {
		unit
		EndTime float64 `json:"end_time"`
	}{unit(u), u.EndTime()})
}

// Timeline converts text to units. It holds only configuration and is safe for
// concurrent use.
type Timeline struct {
	cfg Config
}

func NewTimeline(cfg Config) *Timeline {
	def := DefaultConfig()
	if cfg.VowelDuration <= 0 {
		cfg.VowelDuration = def.VowelDuration
	}
	if cfg.ConsonantDuration <= 0 {
		cfg.ConsonantDuration = def.ConsonantDuration
	}
	if cfg.Transition < 0 {
		cfg.Transition = def.Transition
	}
	if cfg.WordPause < 0 {
		cfg.WordPause = def.WordPause
	}
	return &Timeline{cfg: cfg}
}

func (t *Timeline) Config() Config {
	return t.cfg
}

// FromText produces a flat, non-overlapping sequence of units with monotonic
// start times. Each word is followed by the configured pause. Empty or
// punctuation-only text yields an empty sequence.
func (t *Timeline) FromText(text string) []Unit {
	words := Words(text)
	units := make([]Unit, 0, len(text))

	var now float64
	for _, word := range words {
		for _, p := range Phonemize(word) {
			d := t.cfg.ConsonantDuration
			if p.IsVowel() {
				d = t.cfg.VowelDuration
			}
			units = append(units, Unit{
				Phoneme:       p,
				StartTime:     now,
				Duration:      d,
				MouthShape:    p.Shape(),
				Intensity:     1.0,
				TransitionIn:  t.cfg.Transition,
				TransitionOut: t.cfg.Transition,
			})
			now += d
		}
		now += t.cfg.WordPause
	}
	return units
}

// FromText runs the default timeline.
func FromText(text string) []Unit {
	return NewTimeline(DefaultConfig()).FromText(text)
}

// Words strips punctuation, lowercases and splits on whitespace. Letters, digits
// and underscores survive.
func Words(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// Duration is the end time of the last unit, or 0 for an empty sequence.
func Duration(units []Unit) float64 {
	if len(units) == 0 {
		return 0
	}
	return units[len(units)-1].EndTime()
}

// ShapeAt returns the mouth shape active at time t, or the rest shape between
// units and outside the sequence.
func ShapeAt(units []Unit, t float64) face.MouthShape {
	for _, u := range units {
		if t < u.StartTime {
			break
		}
		if t < u.EndTime() {
			return u.MouthShape
		}
	}
	return face.MouthNeutral
}
