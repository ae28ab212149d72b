package emotion

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppingClock() func() time.Time {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestNewEngine_StartsAtBaseline(t *testing.T) {
	e := NewEngine(nil, WithSeed(1))

	assert.Equal(t, 0.7, e.Level(Happy))
	assert.Equal(t, 0.5, e.Level(Caring))
	assert.Equal(t, 0.3, e.Level(Curious))
	assert.Equal(t, 0.4, e.Level(Confident))
	assert.Equal(t, 0.5, e.Level(Gentle))
	assert.Equal(t, 0.0, e.Level(Tsundere))

	primary, level := e.Primary()
	assert.Equal(t, Happy, primary)
	assert.Equal(t, 0.7, level)
}

func TestEngine_UpdateEmptyOnlyDecays(t *testing.T) {
	e := NewEngine(nil)
	before := e.Vector()

	e.Update(Mix{})

	after := e.Vector()
	baseline := e.Baseline()
	for i := range after {
		decayed := before[i] * DecayFactor
		floor := baseline[i] * BaselineFloorRatio
		expected := decayed
		if floor > expected {
			expected = floor
		}
		assert.InDelta(t, expected, after[i], 1e-12, "emotion %s", Emotion(i))
	}
}

func TestEngine_UpdateEmptyConvergesToFloor(t *testing.T) {
	e := NewEngine(nil)
	for i := 0; i < 200; i++ {
		e.Update(nil)
	}

	baseline := e.Baseline()
	steady := e.Vector()
	for i := range steady {
		assert.Equal(t, baseline[i]*BaselineFloorRatio, steady[i], "emotion %s", Emotion(i))
	}

	e.Update(Mix{})
	assert.Equal(t, steady, e.Vector(), "steady state must be a fixed point")
}

func TestEngine_UpdateCrossExcitation(t *testing.T) {
	e := NewEngine(nil)
	e.Update(Mix{Shy: 0.8})

	expected := map[Emotion]float64{
		Happy:       0.63,
		Excited:     0.63 * 0.3,
		Shy:         0.8,
		Playful:     0.63 * 0.2,
		Caring:      0.45 + 0.8*0.1,
		Curious:     0.27 + 0.63*0.1,
		Embarrassed: 0.8 * 0.4,
		Confident:   0.36,
		Gentle:      0.45 + 0.8*0.2,
		Mischievous: 0,
		Tsundere:    0,
		Romantic:    0,
	}
	for em, want := range expected {
		assert.InDelta(t, want, e.Level(em), 1e-9, "emotion %s", em)
	}

	primary, level := e.Primary()
	assert.Equal(t, Shy, primary)
	assert.InDelta(t, 0.8, level, 1e-9)
}

func TestEngine_UpdateReinforcementClamps(t *testing.T) {
	e := NewEngine(nil)
	e.Update(Mix{Happy: 0.5})
	assert.Equal(t, 1.0, e.Level(Happy))

	e.Update(Mix{Happy: 5, Romantic: -2})
	assert.Equal(t, 1.0, e.Level(Happy))
	assert.GreaterOrEqual(t, e.Level(Romantic), 0.0)
}

func TestEngine_UpdateIgnoresUnknownEmotions(t *testing.T) {
	e := NewEngine(nil)
	reference := NewEngine(nil)

	e.Update(Mix{Emotion(42): 1, Emotion(-3): 1})
	reference.Update(Mix{})

	assert.Equal(t, reference.Vector(), e.Vector())
}

func TestEngine_UpdateIsDeterministic(t *testing.T) {
	a := NewEngine(nil)
	b := NewEngine(nil)
	stimuli := []Mix{
		{Excited: 0.9, Playful: 0.6},
		{Mischievous: 0.7},
		{Tsundere: 0.4, Caring: 0.9},
		{},
	}
	for _, s := range stimuli {
		a.Update(s)
		b.Update(s.Clone())
	}
	assert.Equal(t, a.Vector(), b.Vector())
}

func TestEngine_ValuesStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := NewEngine(nil)
	for i := 0; i < 500; i++ {
		detected := Mix{}
		for j := 0; j < rng.Intn(5); j++ {
			detected[Emotion(rng.Intn(int(Count)))] = rng.Float64()*2 - 0.5
		}
		e.Update(detected)
		v := e.Vector()
		for k, level := range v {
			require.GreaterOrEqual(t, level, 0.0, "emotion %s", Emotion(k))
			require.LessOrEqual(t, level, 1.0, "emotion %s", Emotion(k))
		}
	}
}

func TestEngine_HistoryRecordsPreUpdatePrimary(t *testing.T) {
	e := NewEngine(nil, WithClock(steppingClock()))
	e.Update(Mix{Shy: 0.8})
	e.Update(Mix{})

	history := e.History()
	require.Len(t, history, 2)
	assert.Equal(t, Happy, history[0].Emotion)
	assert.Equal(t, 0.7, history[0].Intensity)
	assert.Equal(t, Shy, history[1].Emotion)
	assert.InDelta(t, 0.8, history[1].Intensity, 1e-9)
}

func TestEngine_HistoryBatchTrim(t *testing.T) {
	e := NewEngine(nil, WithClock(steppingClock()))
	for i := 0; i < HistoryLimit; i++ {
		e.Update(Mix{})
	}
	assert.Len(t, e.History(), HistoryLimit)

	e.Update(Mix{})
	history := e.History()
	require.Len(t, history, HistoryRetain)

	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Time.After(history[i-1].Time), "history must stay chronological")
	}
	last := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(101 * time.Second)
	assert.Equal(t, last, history[len(history)-1].Time)
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngine(nil)
	e.Update(Mix{Romantic: 1})
	e.Reset()
	assert.Equal(t, e.Baseline(), e.Vector())
	assert.Len(t, e.History(), 1)
}

func TestEngine_SnapshotRestore(t *testing.T) {
	e := NewEngine(nil, WithClock(steppingClock()))
	e.Update(Mix{Curious: 0.6})
	e.Update(Mix{Playful: 0.9})

	restored := NewEngine(nil)
	restored.Restore(e.Snapshot())

	assert.Equal(t, e.Vector(), restored.Vector())
	assert.Equal(t, e.History(), restored.History())
}

func TestEngine_SuggestIsSeedable(t *testing.T) {
	a := NewEngine(nil, WithSeed(99))
	b := NewEngine(nil, WithSeed(99))

	for i := 0; i < 10; i++ {
		sa, sb := a.Suggest(), b.Suggest()
		assert.Equal(t, sa, sb)
	}

	s := a.Suggest()
	assert.Equal(t, Happy, s.Primary)
	assert.Contains(t, a.Profiles().Get(Happy).Responses, s.Response)
	assert.Contains(t, a.Profiles().Get(Happy).AnimationCues, s.AnimationCue)
	assert.Equal(t, "moderately cheerful and bright", s.Tone)
}

func TestEngine_Summary(t *testing.T) {
	e := NewEngine(nil, WithClock(steppingClock()))
	for i := 0; i < 8; i++ {
		e.Update(Mix{})
	}

	s := e.Summary()
	assert.Equal(t, Happy, s.Primary)
	assert.Len(t, s.RecentChanges, 5)
	for em := range s.Mix {
		assert.GreaterOrEqual(t, s.All[em], 0.3)
	}
}

func TestTone(t *testing.T) {
	tests := []struct {
		emotion   Emotion
		intensity float64
		want      string
	}{
		{Happy, 0.9, "very cheerful and bright"},
		{Tsundere, 0.5, "moderately conflicted between tough and caring"},
		{Gentle, 0.2, "subtly soft and calming"},
		{Emotion(99), 0.2, "subtly neutral"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Tone(tt.emotion, tt.intensity))
		})
	}
}
