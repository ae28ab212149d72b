package animation

import (
	"math"
	"sort"

	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/face"
)

// Keyframe is a timestamped facial snapshot and the curve used to reach it.
type Keyframe struct {
	Timestamp  float64                `json:"timestamp"`
	Expression face.Expression        `json:"facial_expression"`
	Intensity  float64                `json:"emotion_intensity"`
	Curve      Curve                  `json:"transition_type"`
	Duration   float64                `json:"duration"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// SequenceMetadata records what a sequence was built from.
type SequenceMetadata struct {
	EmotionMix     emotion.Mix `json:"emotion_mix"`
	PrimaryEmotion string      `json:"primary_emotion"`
	Intensity      float64     `json:"intensity"`
	DurationHint   float64     `json:"duration_hint"`
}

// Sequence owns its keyframes. TotalDuration only grows as keyframes are added.
type Sequence struct {
	Keyframes     []Keyframe       `json:"keyframes"`
	TotalDuration float64          `json:"total_duration"`
	Loop          bool             `json:"loop"`
	Metadata      SequenceMetadata `json:"metadata"`
}

func NewSequence(meta SequenceMetadata) *Sequence {
	if meta.EmotionMix == nil {
		meta.EmotionMix = emotion.Mix{}
	}
	return &Sequence{
		Keyframes: make([]Keyframe, 0, 4),
		Metadata:  meta,
	}
}

// Add appends kf and extends TotalDuration to cover it. Negative timestamps and
// durations are raised to 0 and the intensity is clamped.
func (s *Sequence) Add(kf Keyframe) {
	kf.Timestamp = math.Max(kf.Timestamp, 0)
	kf.Duration = math.Max(kf.Duration, 0)
	kf.Intensity = clamp01(kf.Intensity)
	if !kf.Curve.Valid() {
		kf.Curve = CurveLinear
	}
	s.Keyframes = append(s.Keyframes, kf)
	if end := kf.Timestamp + kf.Duration; end > s.TotalDuration {
		s.TotalDuration = end
	}
}

// ActiveAt returns every keyframe whose [timestamp, timestamp+duration] span
// contains t, in insertion order.
func (s *Sequence) ActiveAt(t float64) []Keyframe {
	var active []Keyframe
	for _, kf := range s.Keyframes {
		if kf.Timestamp <= t && t <= kf.Timestamp+kf.Duration {
			active = append(active, kf)
		}
	}
	return active
}

// Sample interpolates the expression at time t. The segment ending at the next
// keyframe is eased with that keyframe's curve. When several keyframes share a
// timestamp the one added last wins. Looping sequences wrap t by TotalDuration.
func (s *Sequence) Sample(t float64) (face.Expression, float64) {
	if len(s.Keyframes) == 0 {
		return face.Neutral(), 0
	}
	if s.Loop && s.TotalDuration > 0 {
		t = math.Mod(t, s.TotalDuration)
		if t < 0 {
			t += s.TotalDuration
		}
	}

	order := make([]int, len(s.Keyframes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Keyframes[order[a]].Timestamp < s.Keyframes[order[b]].Timestamp
	})

	prev, next := -1, -1
	for i, idx := range order {
		if s.Keyframes[idx].Timestamp <= t {
			prev = idx
			continue
		}
		next = s.lastAt(order, i)
		break
	}

	if prev < 0 {
		first := s.Keyframes[s.lastAt(order, 0)]
		return first.Expression, first.Intensity
	}
	from := s.Keyframes[prev]
	if next < 0 {
		return from.Expression, from.Intensity
	}
	to := s.Keyframes[next]

	progress := (t - from.Timestamp) / (to.Timestamp - from.Timestamp)
	eased := to.Curve.Apply(progress)
	intensity := clamp01(from.Intensity + (to.Intensity-from.Intensity)*eased)
	return from.Expression.Lerp(to.Expression, eased), intensity
}

// lastAt returns the latest-added keyframe sharing order[i]'s timestamp.
func (s *Sequence) lastAt(order []int, i int) int {
	ts := s.Keyframes[order[i]].Timestamp
	for i+1 < len(order) && s.Keyframes[order[i+1]].Timestamp == ts {
		i++
	}
	return order[i]
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
