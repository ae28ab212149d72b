package face

// NeutralIntensity is the expression intensity of the resting face.
const NeutralIntensity = 0.5

// Expression is a full facial snapshot: muscle activations, the mouth shape and an
// overall expression intensity.
type Expression struct {
	Muscles    MuscleFrame `json:"muscles"`
	MouthShape MouthShape  `json:"mouth_shape"`
	Intensity  float64     `json:"expression_intensity"`
}

// Neutral returns the resting expression.
func Neutral() Expression {
	return Expression{
		Muscles:    NeutralFrame(),
		MouthShape: MouthNeutral,
		Intensity:  NeutralIntensity,
	}
}

// Lerp blends toward target. The mouth shape switches halfway through.
func (e Expression) Lerp(target Expression, t float64) Expression {
	if t <= 0 {
		return e
	}
	if t >= 1 {
		return target
	}
	out := Expression{
		Muscles:    e.Muscles.Lerp(&target.Muscles, t),
		MouthShape: e.MouthShape,
		Intensity:  clamp(e.Intensity + (target.Intensity-e.Intensity)*t),
	}
	if t >= 0.5 {
		out.MouthShape = target.MouthShape
	}
	return out
}

// WithMouth returns a copy using the given mouth shape.
func (e Expression) WithMouth(shape MouthShape) Expression {
	e.MouthShape = shape
	return e
}

// Smile averages the two smile muscles.
func (e Expression) Smile() float64 {
	return (e.Muscles[SmileLeft] + e.Muscles[SmileRight]) / 2
}
