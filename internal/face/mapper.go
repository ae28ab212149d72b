package face

import (
	"fmt"

	"github.com/normanking/cortexaffect/internal/emotion"
)

// Coefficient is one muscle's response to a unit of emotion intensity.
type Coefficient struct {
	Muscle Muscle
	Weight float64
}

// BlendMode selects how several emotions combine on a shared muscle.
type BlendMode int

const (
	// BlendAdditive adds intensity*weight per emotion on top of the neutral face.
	BlendAdditive BlendMode = iota
	// BlendNormalized averages each emotion's target pose weighted by its share of
	// the total intensity.
	BlendNormalized
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormalized:
		return "normalized"
	default:
		return "additive"
	}
}

func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case "", "additive":
		return BlendAdditive, nil
	case "normalized":
		return BlendNormalized, nil
	}
	return BlendAdditive, fmt.Errorf("unknown blend mode %q", s)
}

// SmileMouthThreshold is the average smile activation at which the mouth reads as
// a smile rather than at rest.
const SmileMouthThreshold = 0.5

// Eye openness rests at 1 so its coefficients are negative: they pull the lids
// down toward the emotion's target openness.
var coefficients = [emotion.Count][]Coefficient{
	emotion.Happy: {
		{SmileLeft, 0.8}, {SmileRight, 0.8},
		{CheekRaiseLeft, 0.6}, {CheekRaiseRight, 0.6},
		{EyeOpennessLeft, -0.1}, {EyeOpennessRight, -0.1},
		{EyeSquintLeft, 0.3}, {EyeSquintRight, 0.3},
	},
	emotion.Excited: {
		{SmileLeft, 0.9}, {SmileRight, 0.9},
		{CheekRaiseLeft, 0.8}, {CheekRaiseRight, 0.8},
		{EyebrowRaiseLeft, 0.7}, {EyebrowRaiseRight, 0.7},
		{MouthOpenness, 0.3},
	},
	emotion.Shy: {
		{SmileLeft, 0.4}, {SmileRight, 0.4},
		{CheekRaiseLeft, 0.7}, {CheekRaiseRight, 0.7},
		{EyeOpennessLeft, -0.3}, {EyeOpennessRight, -0.3},
		{EyebrowRaiseLeft, 0.2}, {EyebrowRaiseRight, 0.2},
	},
	emotion.Playful: {
		{SmileLeft, 0.6}, {SmileRight, 0.6},
		{CheekRaiseLeft, 0.5}, {CheekRaiseRight, 0.5},
		{EyeSquintLeft, 0.4}, {EyeSquintRight, 0.4},
		{EyebrowRaiseLeft, 0.3}, {EyebrowRaiseRight, 0.3},
	},
	emotion.Caring: {
		{SmileLeft, 0.5}, {SmileRight, 0.5},
		{CheekRaiseLeft, 0.3}, {CheekRaiseRight, 0.3},
		{EyeOpennessLeft, -0.2}, {EyeOpennessRight, -0.2},
		{EyebrowRaiseLeft, 0.2}, {EyebrowRaiseRight, 0.2},
	},
	emotion.Curious: {
		{EyebrowRaiseLeft, 0.6}, {EyebrowRaiseRight, 0.6},
		{MouthOpenness, 0.2},
	},
	emotion.Embarrassed: {
		{SmileLeft, 0.3}, {SmileRight, 0.3},
		{CheekRaiseLeft, 0.8}, {CheekRaiseRight, 0.8},
		{EyeOpennessLeft, -0.4}, {EyeOpennessRight, -0.4},
		{EyebrowRaiseLeft, 0.4}, {EyebrowRaiseRight, 0.4},
	},
	emotion.Confident: {
		{SmileLeft, 0.6}, {SmileRight, 0.6},
		{CheekRaiseLeft, 0.4}, {CheekRaiseRight, 0.4},
		{EyeOpennessLeft, -0.1}, {EyeOpennessRight, -0.1},
		{EyebrowRaiseLeft, 0.1}, {EyebrowRaiseRight, 0.1},
	},
	emotion.Gentle: {
		{SmileLeft, 0.4}, {SmileRight, 0.4},
		{CheekRaiseLeft, 0.3}, {CheekRaiseRight, 0.3},
		{EyeOpennessLeft, -0.2}, {EyeOpennessRight, -0.2},
	},
	emotion.Mischievous: {
		{SmileLeft, 0.7}, {SmileRight, 0.7},
		{CheekRaiseLeft, 0.6}, {CheekRaiseRight, 0.6},
		{EyeSquintLeft, 0.5}, {EyeSquintRight, 0.5},
		{EyebrowRaiseLeft, 0.3}, {EyebrowRaiseRight, 0.3},
	},
	emotion.Tsundere: {
		{MouthFrown, 0.3},
		{EyebrowFurrow, 0.4},
		{EyeSquintLeft, 0.2}, {EyeSquintRight, 0.2},
		{CheekRaiseLeft, 0.2}, {CheekRaiseRight, 0.2},
	},
	emotion.Romantic: {
		{SmileLeft, 0.5}, {SmileRight, 0.5},
		{CheekRaiseLeft, 0.6}, {CheekRaiseRight, 0.6},
		{EyeOpennessLeft, -0.3}, {EyeOpennessRight, -0.3},
		{EyebrowRaiseLeft, 0.1}, {EyebrowRaiseRight, 0.1},
	},
}

// Coefficients returns the static muscle table for e.
func Coefficients(e emotion.Emotion) []Coefficient {
	if !e.Valid() {
		return nil
	}
	out := make([]Coefficient, len(coefficients[e]))
	copy(out, coefficients[e])
	return out
}

// Mapper turns an emotion mix into an Expression. It holds no mutable state and
// may be shared between goroutines.
type Mapper struct {
	mode BlendMode
}

func NewMapper(mode BlendMode) *Mapper {
	return &Mapper{mode: mode}
}

func (m *Mapper) Mode() BlendMode {
	return m.mode
}

// Map derives the expression for mix. Unknown emotions and non-positive
// intensities contribute nothing; an empty or all-zero mix yields Neutral. Every
// muscle is clamped to [0,1] and the expression intensity is min(total, 1).
func (m *Mapper) Map(mix emotion.Mix) Expression {
	var total float64
	for _, e := range emotion.All() {
		if level := mix[e]; level > 0 {
			total += clamp(level)
		}
	}
	if total == 0 {
		return Neutral()
	}

	var raw [MuscleCount]float64
	switch m.mode {
	case BlendNormalized:
		raw = m.normalized(mix, total)
	default:
		raw = m.additive(mix)
	}

	var frame MuscleFrame
	for i, v := range raw {
		frame[i] = clamp(v)
	}

	expr := Expression{
		Muscles:    frame,
		MouthShape: MouthNeutral,
		Intensity:  clamp(total),
	}
	if expr.Smile() >= SmileMouthThreshold {
		expr.MouthShape = MouthSmile
	}
	return expr
}

// additive accumulates unclamped so suppressive and excitatory contributions on
// one muscle cancel before the final clamp.
func (m *Mapper) additive(mix emotion.Mix) [MuscleCount]float64 {
	raw := [MuscleCount]float64(NeutralFrame())
	for _, e := range emotion.All() {
		level, ok := mix[e]
		if !ok || level <= 0 {
			continue
		}
		level = clamp(level)
		for _, c := range coefficients[e] {
			raw[c.Muscle] += level * c.Weight
		}
	}
	return raw
}

func (m *Mapper) normalized(mix emotion.Mix, total float64) [MuscleCount]float64 {
	var raw [MuscleCount]float64
	neutral := NeutralFrame()
	for _, e := range emotion.All() {
		level, ok := mix[e]
		if !ok || level <= 0 {
			continue
		}
		share := clamp(level) / total
		target := neutral
		for _, c := range coefficients[e] {
			target[c.Muscle] += c.Weight
		}
		for i, v := range target {
			raw[i] += share * v
		}
	}
	return raw
}
