// Package animation assembles timed keyframe sequences from an emotion mix and
// times the blend between successive emotional states.
package animation

import (
	"fmt"
	"math"
)

// Curve names how a keyframe is approached from the one before it.
type Curve string

const (
	CurveLinear    Curve = "linear"
	CurveSmooth    Curve = "smooth"
	CurveEaseIn    Curve = "ease_in"
	CurveEaseOut   Curve = "ease_out"
	CurveEaseInOut Curve = "ease_in_out"
	CurveBounce    Curve = "bounce"
	CurveElastic   Curve = "elastic"
)

var Curves = []Curve{
	CurveLinear, CurveSmooth, CurveEaseIn, CurveEaseOut, CurveEaseInOut, CurveBounce, CurveElastic,
}

func (c Curve) Valid() bool {
	for _, known := range Curves {
		if c == known {
			return true
		}
	}
	return false
}

func (c *Curve) UnmarshalText(text []byte) error {
	curve := Curve(text)
	if !curve.Valid() {
		return fmt.Errorf("unknown transition curve %q", string(text))
	}
	*c = curve
	return nil
}

func (c Curve) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

// Apply maps linear progress t in [0,1] to eased progress. The endpoints are
// pinned: Apply(0) is 0 and Apply(1) is 1 for every curve.
func (c Curve) Apply(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	switch c {
	case CurveSmooth:
		return t * t * (3 - 2*t)
	case CurveEaseIn:
		return easeInCubic(t)
	case CurveEaseOut:
		return easeOutCubic(t)
	case CurveEaseInOut:
		return easeInOutCubic(t)
	case CurveBounce:
		return easeOutBounce(t)
	case CurveElastic:
		return springInterpolation(t, 0.3, 8.0)
	default:
		return t
	}
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func easeInCubic(t float64) float64 {
	return t * t * t
}

func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

func easeOutBounce(t float64) float64 {
	const n1, d1 = 7.5625, 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}

// springInterpolation overshoots and settles; it may leave [0,1] mid-curve.
func springInterpolation(t, damping, frequency float64) float64 {
	decay := math.Exp(-damping * t * frequency)
	oscillation := math.Cos(frequency * t * (1 - damping))
	return 1 - decay*oscillation
}
