package emotion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one emotion's fixed personality data.
type Profile struct {
	Emotion          Emotion             `yaml:"-"`
	Triggers         []string            `yaml:"triggers"`
	Baseline         float64             `yaml:"baseline"`
	TypicalIntensity float64             `yaml:"typical_intensity"`
	DurationMinutes  float64             `yaml:"duration_minutes"`
	Responses        []string            `yaml:"responses"`
	AnimationCues    []string            `yaml:"animation_cues"`
	Interactions     map[Emotion]float64 `yaml:"interactions"`
}

// ProfileSet is the immutable per-emotion table loaded at startup.
type ProfileSet struct {
	profiles [Count]Profile
}

// Get returns the profile for e. Invalid identifiers yield an empty profile.
func (s *ProfileSet) Get(e Emotion) Profile {
	if !e.Valid() {
		return Profile{Emotion: e}
	}
	return s.profiles[e]
}

// Baselines returns the resting vector.
func (s *ProfileSet) Baselines() Vector {
	var v Vector
	for i := range s.profiles {
		v.Set(Emotion(i), s.profiles[i].Baseline)
	}
	return v
}

// DefaultProfiles returns the built-in personality table.
func DefaultProfiles() *ProfileSet {
	s := &ProfileSet{}
	s.profiles = [Count]Profile{
		Happy: {
			Triggers:         []string{"good", "great", "awesome", "wonderful", "nice", "thank you", "thanks"},
			Baseline:         0.7,
			TypicalIntensity: 0.7,
			Responses: []string{
				"I'm so glad to hear that! 😊",
				"That makes me happy too! ✨",
				"Yay! That's wonderful! 🎉",
			},
			AnimationCues: []string{"smile", "bounce", "sparkle"},
			Interactions:  map[Emotion]float64{Excited: 0.3, Playful: 0.2, Curious: 0.1},
		},
		Excited: {
			Triggers:         []string{"amazing", "incredible", "wow", "fantastic", "awesome", "party", "celebration"},
			TypicalIntensity: 0.8,
			Responses: []string{
				"OMG that's so exciting! ✨😄",
				"Wow! I can't contain my excitement! 🎉",
				"That's AMAZING! Tell me more! ⭐",
			},
			AnimationCues: []string{"jump", "sparkle", "energetic_wave"},
			Interactions:  map[Emotion]float64{Happy: 0.4, Playful: 0.3, Mischievous: 0.2},
		},
		Shy: {
			Triggers:         []string{"cute", "beautiful", "pretty", "lovely", "gorgeous", "compliment"},
			TypicalIntensity: 0.6,
			Responses: []string{
				"Oh... t-thank you... 😳💕",
				"*blushes* You're too kind... ☺️",
				"I-I don't know what to say... 😊💦",
			},
			AnimationCues: []string{"blush", "look_away", "fidget"},
			Interactions:  map[Emotion]float64{Embarrassed: 0.4, Gentle: 0.2, Caring: 0.1},
		},
		Playful: {
			Triggers:         []string{"play", "game", "fun", "joke", "tease", "silly", "prank"},
			TypicalIntensity: 0.7,
			Responses: []string{
				"Ooh, I love games! What should we play? 😏",
				"Hehe, you're being silly! I like that! 😆",
				"Want to have some fun? I'm in! 🎮",
			},
			AnimationCues: []string{"wink", "playful_pose", "mischievous_grin"},
			Interactions:  map[Emotion]float64{Mischievous: 0.3, Excited: 0.2, Happy: 0.2},
		},
		Caring: {
			Triggers:         []string{"sad", "tired", "problem", "help", "worried", "stressed", "hurt"},
			Baseline:         0.5,
			TypicalIntensity: 0.8,
			Responses: []string{
				"I'm here for you, don't worry 💕",
				"Let me help you with that 🤗",
				"It's okay, we'll figure this out together 💝",
			},
			AnimationCues: []string{"gentle_smile", "reaching_out", "comforting"},
			Interactions:  map[Emotion]float64{Gentle: 0.3, Tsundere: 0.2, Happy: 0.1},
		},
		Curious: {
			Triggers:         []string{"what", "how", "why", "tell me", "explain", "interesting", "learn"},
			Baseline:         0.3,
			TypicalIntensity: 0.6,
			Responses: []string{
				"Ooh, that sounds interesting! Tell me more! 🤔",
				"I'm curious about that too! ✨",
				"That's fascinating! How does it work? 💭",
			},
			AnimationCues: []string{"lean_forward", "thinking", "eyes_sparkle"},
			Interactions:  map[Emotion]float64{Excited: 0.2, Happy: 0.1, Playful: 0.1},
		},
		Embarrassed: {
			Triggers:         []string{"embarrassing", "awkward", "mistake", "oops", "sorry"},
			TypicalIntensity: 0.7,
			Responses: []string{
				"Oh no... that's so embarrassing! 😅💦",
				"*covers face* I can't believe that happened! 😳",
				"Aaah, I want to hide! 🙈",
			},
			AnimationCues: []string{"cover_face", "steam", "nervous_laugh"},
			Interactions:  map[Emotion]float64{Shy: 0.4, Gentle: 0.2},
		},
		Confident: {
			Triggers:         []string{"strong", "capable", "smart", "talented", "skilled", "confident"},
			Baseline:         0.4,
			TypicalIntensity: 0.8,
			Responses: []string{
				"You're absolutely right! I can do this! 💪",
				"I'm feeling confident about this! ✨",
				"Let's show them what we can do! 😤",
			},
			AnimationCues: []string{"confident_pose", "hands_on_hips", "determined"},
			Interactions:  map[Emotion]float64{Playful: 0.2, Mischievous: 0.1, Happy: 0.2},
		},
		Gentle: {
			Triggers:         []string{"soft", "gentle", "calm", "peaceful", "quiet", "tender"},
			Baseline:         0.5,
			TypicalIntensity: 0.6,
			Responses: []string{
				"Let's take this gently... 😌",
				"I'll be here, nice and calm 💕",
				"Sometimes quiet moments are the best ✨",
			},
			AnimationCues: []string{"gentle_sway", "soft_smile", "peaceful"},
			Interactions:  map[Emotion]float64{Caring: 0.3, Happy: 0.2, Romantic: 0.1},
		},
		Mischievous: {
			Triggers:         []string{"secret", "surprise", "sneaky", "naughty", "mischief", "trick"},
			TypicalIntensity: 0.7,
			Responses: []string{
				"Hehe, I have an idea... 😏",
				"Want to do something a little naughty? 😈",
				"I'm feeling a bit mischievous today! 😼",
			},
			AnimationCues: []string{"evil_grin", "sneaky_look", "finger_to_lips"},
			Interactions:  map[Emotion]float64{Playful: 0.4, Excited: 0.2, Confident: 0.1},
		},
		Tsundere: {
			Triggers:         []string{"care", "worry", "concern", "important", "special"},
			TypicalIntensity: 0.6,
			Responses: []string{
				"I-It's not like I care or anything! 😤",
				"Don't get the wrong idea! I'm just... 😳",
				"Hmph! I was just worried, that's all! 💕",
			},
			AnimationCues: []string{"turn_away", "arms_crossed", "secret_smile"},
			Interactions:  map[Emotion]float64{Shy: 0.3, Caring: 0.2, Embarrassed: 0.2},
		},
		Romantic: {
			Triggers:         []string{"love", "romance", "kiss", "date", "heart", "sweet"},
			TypicalIntensity: 0.5,
			Responses: []string{
				"Oh my... that's so romantic 💕",
				"*heart eyes* That's so sweet! 💝",
				"You're making my heart flutter... 💓",
			},
			AnimationCues: []string{"heart_eyes", "dreamy_sigh", "romantic_pose"},
			Interactions:  map[Emotion]float64{Shy: 0.3, Gentle: 0.2, Happy: 0.2},
		},
	}
	for i := range s.profiles {
		s.profiles[i].Emotion = Emotion(i)
		s.profiles[i].DurationMinutes = 5
	}
	return s
}

// LoadProfilesFile reads a YAML profile table from path. A missing file yields the
// built-in defaults. Entries in the file override the matching default profile
// field by field; emotions absent from the file keep their defaults. A profile
// that lists interactions replaces the default table rather than extending it.
func LoadProfilesFile(path string) (*ProfileSet, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultProfiles(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return LoadProfilesYAML(data)
}

// LoadProfilesYAML parses a profile table keyed by emotion identifier.
func LoadProfilesYAML(data []byte) (*ProfileSet, error) {
	set := DefaultProfiles()

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profiles YAML: %w", err)
	}

	for name, node := range raw {
		e, ok := Parse(name)
		if !ok {
			return nil, fmt.Errorf("unknown emotion %q in profiles", name)
		}
		p := set.profiles[e]
		if hasKey(&node, "interactions") {
			p.Interactions = nil
		}
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", name, err)
		}
		p.Emotion = e
		set.profiles[e] = p
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profiles: %w", err)
	}
	return set, nil
}

// hasKey reports whether a mapping node defines key.
func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// Validate checks baselines and interaction coefficients.
func (s *ProfileSet) Validate() error {
	for i, p := range s.profiles {
		e := Emotion(i)
		if p.Baseline < 0 || p.Baseline > 1 {
			return fmt.Errorf("%s: baseline %.2f outside [0,1]", e, p.Baseline)
		}
		for related, boost := range p.Interactions {
			if !related.Valid() {
				return fmt.Errorf("%s: invalid interaction target", e)
			}
			if boost <= 0 || boost >= 1 {
				return fmt.Errorf("%s: boost toward %s must be in (0,1), got %.2f", e, related, boost)
			}
		}
	}
	return nil
}

// MarshalYAML renders the set keyed by identifier so it round-trips through
// LoadProfilesYAML.
func (s *ProfileSet) MarshalYAML() (interface{}, error) {
	out := make(map[string]Profile, Count)
	for i, p := range s.profiles {
		out[names[i]] = p
	}
	return out, nil
}
