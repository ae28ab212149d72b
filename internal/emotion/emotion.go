// Package emotion holds the character's persistent affect state: the fixed set of
// emotion identifiers, the intensity vector over them, and the Engine that evolves
// that vector with decay, cross-excitation and a baseline floor.
package emotion

import (
	"encoding/json"
	"fmt"
	"math"
)

// Emotion identifies one of the twelve tracked emotions. Declaration order is
// significant: it is the tie-break order whenever two emotions share a level.
type Emotion int

const (
	Happy Emotion = iota
	Excited
	Shy
	Playful
	Caring
	Curious
	Embarrassed
	Confident
	Gentle
	Mischievous
	Tsundere
	Romantic
	Count
)

var names = [Count]string{
	"happy",
	"excited",
	"shy",
	"playful",
	"caring",
	"curious",
	"embarrassed",
	"confident",
	"gentle",
	"mischievous",
	"tsundere",
	"romantic",
}

// NeutralName is reported as the primary emotion of an empty mix.
const NeutralName = "neutral"

// All returns every emotion in declaration order.
func All() []Emotion {
	all := make([]Emotion, Count)
	for i := range all {
		all[i] = Emotion(i)
	}
	return all
}

func (e Emotion) Valid() bool {
	return e >= 0 && e < Count
}

func (e Emotion) String() string {
	if !e.Valid() {
		return fmt.Sprintf("emotion(%d)", int(e))
	}
	return names[e]
}

// Parse resolves an identifier such as "happy". Unknown names report false.
func Parse(name string) (Emotion, bool) {
	for i, n := range names {
		if n == name {
			return Emotion(i), true
		}
	}
	return -1, false
}

func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid emotion %d", int(e))
	}
	return []byte(names[e]), nil
}

func (e *Emotion) UnmarshalText(text []byte) error {
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("unknown emotion %q", string(text))
	}
	*e = parsed
	return nil
}

// Vector is a complete intensity assignment: every emotion is always present.
type Vector [Count]float64

// Get returns the intensity of e, or 0 for an invalid identifier.
func (v *Vector) Get(e Emotion) float64 {
	if !e.Valid() {
		return 0
	}
	return v[e]
}

// Set stores value clamped to [0,1]. Invalid identifiers are ignored.
func (v *Vector) Set(e Emotion, value float64) {
	if !e.Valid() {
		return
	}
	v[e] = clamp01(value)
}

// Mix returns the emotions whose intensity is at least threshold.
func (v *Vector) Mix(threshold float64) Mix {
	mix := make(Mix)
	for i, level := range v {
		if level >= threshold {
			mix[Emotion(i)] = level
		}
	}
	return mix
}

// Primary returns the strongest emotion. Ties go to the earliest declared emotion.
func (v *Vector) Primary() (Emotion, float64) {
	best := Emotion(0)
	for i := 1; i < int(Count); i++ {
		if v[i] > v[best] {
			best = Emotion(i)
		}
	}
	return best, v[best]
}

func (v Vector) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, Count)
	for i, level := range v {
		out[names[i]] = level
	}
	return json.Marshal(out)
}

func (v *Vector) UnmarshalJSON(data []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var out Vector
	for name, level := range in {
		if e, ok := Parse(name); ok {
			out.Set(e, level)
		}
	}
	*v = out
	return nil
}

// Mix is a partial view of the vector, usually everything above a reporting
// threshold. It is the input to every derived-expression computation.
type Mix map[Emotion]float64

// ParseMix converts caller-supplied identifier strings into a Mix. Unknown
// identifiers and non-finite values are dropped; intensities are clamped to [0,1].
func ParseMix(raw map[string]float64) Mix {
	mix := make(Mix, len(raw))
	for name, level := range raw {
		e, ok := Parse(name)
		if !ok || math.IsNaN(level) || math.IsInf(level, 0) {
			continue
		}
		mix[e] = clamp01(level)
	}
	return mix
}

// Clone returns an independent copy.
func (m Mix) Clone() Mix {
	out := make(Mix, len(m))
	for e, level := range m {
		out[e] = level
	}
	return out
}

// Scale returns a copy with every intensity multiplied by factor.
func (m Mix) Scale(factor float64) Mix {
	out := make(Mix, len(m))
	for e, level := range m {
		out[e] = clamp01(level * factor)
	}
	return out
}

// Total sums the intensities.
func (m Mix) Total() float64 {
	var total float64
	for _, level := range m {
		total += level
	}
	return total
}

// Strings converts the mix to plain identifier keys.
func (m Mix) Strings() map[string]float64 {
	out := make(map[string]float64, len(m))
	for e, level := range m {
		if e.Valid() {
			out[names[e]] = level
		}
	}
	return out
}

func (m *Mix) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ParseMix(raw)
	return nil
}

// Dominant returns the strongest member of mix using the same tie-break as
// Vector.Primary. ok is false for an empty mix.
func Dominant(mix Mix) (e Emotion, level float64, ok bool) {
	for i := 0; i < int(Count); i++ {
		candidate := Emotion(i)
		l, present := mix[candidate]
		if !present {
			continue
		}
		if !ok || l > level {
			e, level, ok = candidate, l, true
		}
	}
	return e, level, ok
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
