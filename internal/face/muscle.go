// Package face derives facial-muscle activations and expression snapshots from an
// emotion mix.
package face

import (
	"encoding/json"
	"fmt"
	"math"
)

type Muscle int

const (
	EyebrowRaiseLeft Muscle = iota
	EyebrowRaiseRight
	EyebrowFurrow
	EyeOpennessLeft
	EyeOpennessRight
	EyeSquintLeft
	EyeSquintRight
	MouthOpenness
	SmileLeft
	SmileRight
	MouthFrown
	LipPucker
	CheekRaiseLeft
	CheekRaiseRight
	CheekPuff
	JawDrop
	JawLeft
	JawRight
	ChinRaise
	NoseWrinkle
	NostrilFlare
	MuscleCount
)

var MuscleNames = [MuscleCount]string{
	"eyebrow_raise_left",
	"eyebrow_raise_right",
	"eyebrow_furrow",
	"eye_openness_left",
	"eye_openness_right",
	"eye_squint_left",
	"eye_squint_right",
	"mouth_openness",
	"smile_left",
	"smile_right",
	"mouth_frown",
	"lip_pucker",
	"cheek_raise_left",
	"cheek_raise_right",
	"cheek_puff",
	"jaw_drop",
	"jaw_left",
	"jaw_right",
	"chin_raise",
	"nose_wrinkle",
	"nostril_flare",
}

func (m Muscle) String() string {
	if m < 0 || m >= MuscleCount {
		return fmt.Sprintf("muscle(%d)", int(m))
	}
	return MuscleNames[m]
}

func MuscleFromName(name string) Muscle {
	for i, n := range MuscleNames {
		if n == name {
			return Muscle(i)
		}
	}
	return -1
}

// MuscleFrame holds one activation per muscle, each kept in [0,1].
type MuscleFrame [MuscleCount]float64

// NeutralFrame is the resting face: eyes fully open, everything else relaxed.
func NeutralFrame() MuscleFrame {
	var f MuscleFrame
	f[EyeOpennessLeft] = 1
	f[EyeOpennessRight] = 1
	return f
}

func (f *MuscleFrame) Set(m Muscle, value float64) {
	if m < 0 || m >= MuscleCount {
		return
	}
	f[m] = clamp(value)
}

func (f *MuscleFrame) Get(m Muscle) float64 {
	if m < 0 || m >= MuscleCount {
		return 0
	}
	return f[m]
}

func (f *MuscleFrame) Lerp(target *MuscleFrame, t float64) MuscleFrame {
	if t <= 0 {
		return *f
	}
	if t >= 1 {
		return *target
	}

	var result MuscleFrame
	for i := range f {
		result[i] = clamp(f[i] + (target[i]-f[i])*t)
	}
	return result
}

func (f *MuscleFrame) Add(other *MuscleFrame) MuscleFrame {
	var result MuscleFrame
	for i := range f {
		result[i] = clamp(f[i] + other[i])
	}
	return result
}

func (f *MuscleFrame) Scale(factor float64) MuscleFrame {
	var result MuscleFrame
	for i := range f {
		result[i] = clamp(f[i] * factor)
	}
	return result
}

func (f MuscleFrame) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, MuscleCount)
	for i, v := range f {
		out[MuscleNames[i]] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON fills a frame from muscle names. Missing muscles take their
// neutral value; unknown names are ignored.
func (f *MuscleFrame) UnmarshalJSON(data []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := NeutralFrame()
	for name, v := range in {
		out.Set(MuscleFromName(name), v)
	}
	*f = out
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
