package animation

import (
	"math"

	"github.com/normanking/cortexaffect/internal/emotion"
)

// BaseTransition is the transition time in seconds between two emotions at equal
// levels with no pair modifier.
const BaseTransition = 0.5

// Levels exposes live emotion intensities. *emotion.Engine satisfies it.
type Levels interface {
	Level(e emotion.Emotion) float64
}

type pair struct {
	from, to emotion.Emotion
}

// pairModifiers is directional: (a,b) and (b,a) are separate entries.
var pairModifiers = map[pair]float64{
	{emotion.Caring, emotion.Gentle}:       0.6,
	{emotion.Gentle, emotion.Caring}:       0.7,
	{emotion.Happy, emotion.Excited}:       0.7,
	{emotion.Excited, emotion.Happy}:       0.8,
	{emotion.Shy, emotion.Embarrassed}:     0.7,
	{emotion.Embarrassed, emotion.Shy}:     0.6,
	{emotion.Playful, emotion.Mischievous}: 0.7,
	{emotion.Mischievous, emotion.Playful}: 0.8,
	{emotion.Romantic, emotion.Gentle}:     0.8,
	{emotion.Happy, emotion.Tsundere}:      1.4,
	{emotion.Tsundere, emotion.Happy}:      1.2,
	{emotion.Confident, emotion.Shy}:       1.5,
	{emotion.Shy, emotion.Confident}:       1.6,
	{emotion.Excited, emotion.Gentle}:      1.3,
	{emotion.Mischievous, emotion.Caring}:  1.2,
}

// Timer computes transition durations between emotional states.
type Timer struct {
	base float64
}

func NewTimer(base float64) *Timer {
	if base <= 0 {
		base = BaseTransition
	}
	return &Timer{base: base}
}

// Modifier returns the directional pair modifier, 1.0 when the pair is unlisted.
func (t *Timer) Modifier(from, to emotion.Emotion) float64 {
	if m, ok := pairModifiers[pair{from, to}]; ok {
		return m
	}
	return 1.0
}

// Timing returns base * (1 + 0.5*|level(to)-level(from)|) * modifier(from, to),
// reading both levels from the live state.
func (t *Timer) Timing(levels Levels, from, to emotion.Emotion) float64 {
	delta := math.Abs(levels.Level(to) - levels.Level(from))
	return t.base * (1 + 0.5*delta) * t.Modifier(from, to)
}
