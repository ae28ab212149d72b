package lipsync

import (
	"math"

	"github.com/normanking/cortexaffect/internal/face"
)

// OculusViseme is one of the 15 Oculus lip-sync viseme ids used by browser and
// game-engine renderers.
type OculusViseme int

const (
	VisemeSil OculusViseme = 0  // silence
	VisemePP  OculusViseme = 1  // p, b, m
	VisemeFF  OculusViseme = 2  // f, v
	VisemeTH  OculusViseme = 3  // th
	VisemeDD  OculusViseme = 4  // t, d
	VisemeKK  OculusViseme = 5  // k, g
	VisemeCH  OculusViseme = 6  // ch, j, sh
	VisemeSS  OculusViseme = 7  // s, z
	VisemeNN  OculusViseme = 8  // n, l
	VisemeRR  OculusViseme = 9  // r
	VisemeAA  OculusViseme = 10 // a
	VisemeE   OculusViseme = 11 // e
	VisemeIH  OculusViseme = 12 // i
	VisemeOH  OculusViseme = 13 // o
	VisemeOU  OculusViseme = 14 // u
)

// VisemeWeight scales unit intensity into event weight.
const VisemeWeight = 0.8

// VisemeEvent is a single viseme onset. Time is milliseconds from the start.
type VisemeEvent struct {
	VisemeID OculusViseme `json:"visemeId"`
	Time     float64      `json:"time"`
	Weight   float64      `json:"weight"`
}

// VisemeTimeline is the renderer-facing lip-sync track. Duration is milliseconds.
type VisemeTimeline struct {
	Events   []VisemeEvent `json:"events"`
	Duration float64       `json:"duration"`
}

var shapeToOculus = map[face.MouthShape]OculusViseme{
	face.MouthNeutral: VisemeSil,
	face.MouthClosed:  VisemeSil,
	face.MouthA:       VisemeAA,
	face.MouthE:       VisemeE,
	face.MouthI:       VisemeIH,
	face.MouthO:       VisemeOH,
	face.MouthU:       VisemeOU,
	face.MouthAI:      VisemeAA,
	face.MouthEI:      VisemeE,
	face.MouthOU:      VisemeOU,
	face.MouthMBP:     VisemePP,
	face.MouthFV:      VisemeFF,
	face.MouthTH:      VisemeTH,
	face.MouthTDNL:    VisemeDD,
	face.MouthKG:      VisemeKK,
	face.MouthCHSH:    VisemeCH,
	face.MouthR:       VisemeRR,
	face.MouthSmile:   VisemeE,
	face.MouthWide:    VisemeAA,
}

// OculusFor maps a mouth shape to its closest Oculus viseme.
func OculusFor(shape face.MouthShape) OculusViseme {
	if v, ok := shapeToOculus[shape]; ok {
		return v
	}
	return VisemeSil
}

// ToVisemeTimeline converts units to an Oculus track framed by silence.
func ToVisemeTimeline(units []Unit) *VisemeTimeline {
	if len(units) == 0 {
		return &VisemeTimeline{
			Events:   []VisemeEvent{{VisemeID: VisemeSil, Time: 0, Weight: 1.0}},
			Duration: 0,
		}
	}

	events := make([]VisemeEvent, 0, len(units)+2)
	events = append(events, VisemeEvent{VisemeID: VisemeSil, Time: 0, Weight: 1.0})

	var maxTime float64
	for _, u := range units {
		events = append(events, VisemeEvent{
			VisemeID: OculusFor(u.MouthShape),
			Time:     millis(u.StartTime),
			Weight:   u.Intensity * VisemeWeight,
		})
		if end := millis(u.EndTime()); end > maxTime {
			maxTime = end
		}
	}

	events = append(events, VisemeEvent{VisemeID: VisemeSil, Time: maxTime + 50, Weight: 1.0})

	return &VisemeTimeline{
		Events:   events,
		Duration: maxTime + 100,
	}
}

func millis(seconds float64) float64 {
	return math.Round(seconds * 1000)
}
