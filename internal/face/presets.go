package face

import (
	"errors"
	"sort"
)

var ErrUnknownPreset = errors.New("unknown expression preset")

// PresetFunc builds an expression at the given intensity.
type PresetFunc func(intensity float64) Expression

var presets = map[string]PresetFunc{
	"smile":     Smile,
	"surprised": Surprised,
	"sad":       Sad,
	"angry":     Angry,
}

func Smile(intensity float64) Expression {
	i := clamp(intensity)
	e := Neutral()
	e.Muscles.Set(SmileLeft, i)
	e.Muscles.Set(SmileRight, i)
	e.Muscles.Set(CheekRaiseLeft, i*0.5)
	e.Muscles.Set(CheekRaiseRight, i*0.5)
	e.Muscles.Set(EyeSquintLeft, i*0.3)
	e.Muscles.Set(EyeSquintRight, i*0.3)
	e.MouthShape = MouthSmile
	e.Intensity = i
	return e
}

func Surprised(intensity float64) Expression {
	i := clamp(intensity)
	e := Neutral()
	e.Muscles.Set(EyebrowRaiseLeft, i)
	e.Muscles.Set(EyebrowRaiseRight, i)
	e.Muscles.Set(EyeOpennessLeft, 1)
	e.Muscles.Set(EyeOpennessRight, 1)
	e.Muscles.Set(MouthOpenness, i*0.6)
	e.Muscles.Set(JawDrop, i*0.4)
	e.MouthShape = MouthO
	e.Intensity = i
	return e
}

func Sad(intensity float64) Expression {
	i := clamp(intensity)
	e := Neutral()
	e.Muscles.Set(EyebrowFurrow, i*0.7)
	e.Muscles.Set(MouthFrown, i)
	e.Muscles.Set(EyeOpennessLeft, 0.7)
	e.Muscles.Set(EyeOpennessRight, 0.7)
	e.Intensity = i
	return e
}

func Angry(intensity float64) Expression {
	i := clamp(intensity)
	e := Neutral()
	e.Muscles.Set(EyebrowFurrow, i)
	e.Muscles.Set(EyeSquintLeft, i*0.6)
	e.Muscles.Set(EyeSquintRight, i*0.6)
	e.Muscles.Set(MouthFrown, i*0.5)
	e.Muscles.Set(NoseWrinkle, i*0.4)
	e.Intensity = i
	return e
}

// Preset looks up a named preset.
func Preset(name string, intensity float64) (Expression, error) {
	fn, ok := presets[name]
	if !ok {
		return Expression{}, ErrUnknownPreset
	}
	return fn(intensity), nil
}

// PresetNames lists the registered presets alphabetically.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
