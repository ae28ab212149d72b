package animation

import (
	"math"

	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/face"
)

// EmptyMixIntensity is the nominal peak used when the mix is empty.
const EmptyMixIntensity = 0.5

// Config controls keyframe spacing. Times are seconds.
type Config struct {
	TransitionTime float64
	HoldTime       float64
	RelaxFactor    float64
}

func DefaultConfig() Config {
	return Config{
		TransitionTime: 0.2,
		HoldTime:       0.3,
		RelaxFactor:    0.7,
	}
}

// Synthesizer builds keyframe sequences. It is stateless apart from its
// configuration and may be shared.
type Synthesizer struct {
	mapper *face.Mapper
	cfg    Config
}

func NewSynthesizer(mapper *face.Mapper, cfg Config) *Synthesizer {
	if mapper == nil {
		mapper = face.NewMapper(face.BlendAdditive)
	}
	def := DefaultConfig()
	if cfg.TransitionTime <= 0 {
		cfg.TransitionTime = def.TransitionTime
	}
	if cfg.HoldTime <= 0 {
		cfg.HoldTime = def.HoldTime
	}
	if cfg.RelaxFactor <= 0 || cfg.RelaxFactor > 1 {
		cfg.RelaxFactor = def.RelaxFactor
	}
	return &Synthesizer{mapper: mapper, cfg: cfg}
}

func (s *Synthesizer) Config() Config {
	return s.cfg
}

// Synthesize builds the three-keyframe sequence for one utterance:
//
//	start  t=0                      neutral face, intensity 0, ease_in
//	peak   t=transition             full expression, dominant intensity, smooth
//	end    t=transition+hold        expression of the mix relaxed by RelaxFactor, ease_out
//
// durationHint is recorded in the metadata and does not change the spacing.
func (s *Synthesizer) Synthesize(mix emotion.Mix, durationHint float64) *Sequence {
	return s.SynthesizeWithTransition(mix, durationHint, s.cfg.TransitionTime)
}

// SynthesizeWithTransition is Synthesize with the transition time replaced, as
// computed by a Timer when the dominant emotion changes between utterances.
// Non-positive values fall back to the configured transition time.
func (s *Synthesizer) SynthesizeWithTransition(mix emotion.Mix, durationHint, transition float64) *Sequence {
	if transition <= 0 {
		transition = s.cfg.TransitionTime
	}
	clean := sanitize(mix)
	primary, peak := dominant(clean)

	seq := NewSequence(SequenceMetadata{
		EmotionMix:     clean,
		PrimaryEmotion: primary,
		Intensity:      peak,
		DurationHint:   math.Max(durationHint, 0),
	})

	neutral := face.Neutral()
	neutral.Intensity = 0
	seq.Add(Keyframe{
		Timestamp:  0,
		Expression: neutral,
		Intensity:  0,
		Curve:      CurveEaseIn,
		Duration:   transition,
		Metadata:   map[string]interface{}{"phase": "start"},
	})
	seq.Add(Keyframe{
		Timestamp:  transition,
		Expression: s.mapper.Map(clean),
		Intensity:  peak,
		Curve:      CurveSmooth,
		Duration:   s.cfg.HoldTime,
		Metadata:   map[string]interface{}{"phase": "peak"},
	})
	seq.Add(Keyframe{
		Timestamp:  transition + s.cfg.HoldTime,
		Expression: s.mapper.Map(clean.Scale(s.cfg.RelaxFactor)),
		Intensity:  peak * s.cfg.RelaxFactor,
		Curve:      CurveEaseOut,
		Duration:   transition,
		Metadata:   map[string]interface{}{"phase": "end"},
	})
	return seq
}

// keyframeSamples are the progress points and curves of the sampled variant.
var keyframeSamples = []struct {
	progress float64
	curve    Curve
	phase    string
}{
	{0, CurveEaseIn, "onset"},
	{0.3, CurveSmooth, "build"},
	{0.7, CurveSmooth, "sustain"},
	{1.0, CurveEaseOut, "release"},
}

const (
	onsetAttenuation   = 0.3
	releaseAttenuation = 0.8
)

// Keyframes samples four frames across total seconds. Intensity follows the
// raised cosine 0.5*(1+sin(pi*p - pi/2)) of the dominant level, except that the
// first frame sits at 30% and the last at 80% of the dominant level. Each frame's
// duration is the gap to the next; the last has none.
func (s *Synthesizer) Keyframes(mix emotion.Mix, total float64) []Keyframe {
	total = math.Max(total, 0)
	clean := sanitize(mix)
	_, nominal := dominant(clean)

	frames := make([]Keyframe, 0, len(keyframeSamples))
	for i, sample := range keyframeSamples {
		factor := 0.5 * (1 + math.Sin(math.Pi*sample.progress-math.Pi/2))
		switch i {
		case 0:
			factor = onsetAttenuation
		case len(keyframeSamples) - 1:
			factor = releaseAttenuation
		}

		var duration float64
		if i+1 < len(keyframeSamples) {
			duration = (keyframeSamples[i+1].progress - sample.progress) * total
		}

		frames = append(frames, Keyframe{
			Timestamp:  sample.progress * total,
			Expression: s.mapper.Map(clean.Scale(factor)),
			Intensity:  clamp01(nominal * factor),
			Curve:      sample.curve,
			Duration:   duration,
			Metadata: map[string]interface{}{
				"phase":    sample.phase,
				"progress": sample.progress,
			},
		})
	}
	return frames
}

// SynthesizeSampled builds a sequence from the four sampled frames spread over
// durationHint seconds. A non-positive hint spans one transition, the hold and
// another transition.
func (s *Synthesizer) SynthesizeSampled(mix emotion.Mix, durationHint float64) *Sequence {
	total := durationHint
	if total <= 0 {
		total = 2*s.cfg.TransitionTime + s.cfg.HoldTime
	}
	clean := sanitize(mix)
	primary, peak := dominant(clean)

	seq := NewSequence(SequenceMetadata{
		EmotionMix:     clean,
		PrimaryEmotion: primary,
		Intensity:      peak,
		DurationHint:   math.Max(durationHint, 0),
	})
	for _, kf := range s.Keyframes(clean, total) {
		seq.Add(kf)
	}
	return seq
}

// sanitize drops unknown emotions and non-positive levels and clamps the rest.
func sanitize(mix emotion.Mix) emotion.Mix {
	clean := make(emotion.Mix, len(mix))
	for e, level := range mix {
		if !e.Valid() || math.IsNaN(level) || level <= 0 {
			continue
		}
		clean[e] = clamp01(level)
	}
	return clean
}

func dominant(mix emotion.Mix) (string, float64) {
	e, level, ok := emotion.Dominant(mix)
	if !ok {
		return emotion.NeutralName, EmptyMixIntensity
	}
	return e.String(), level
}
