package emotion

var tones = [Count]string{
	Happy:       "cheerful and bright",
	Excited:     "energetic and enthusiastic",
	Shy:         "soft and bashful",
	Playful:     "mischievous and fun",
	Caring:      "gentle and nurturing",
	Curious:     "inquisitive and engaged",
	Embarrassed: "flustered but cute",
	Confident:   "self-assured and determined",
	Gentle:      "soft and calming",
	Mischievous: "playfully sneaky",
	Tsundere:    "conflicted between tough and caring",
	Romantic:    "sweet and dreamy",
}

// Tone describes how a reply in emotion e at the given intensity should read.
func Tone(e Emotion, intensity float64) string {
	base := "neutral"
	if e.Valid() {
		base = tones[e]
	}
	switch {
	case intensity > 0.7:
		return "very " + base
	case intensity > 0.4:
		return "moderately " + base
	default:
		return "subtly " + base
	}
}
