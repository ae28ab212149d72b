package emotion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultProfiles_Valid(t *testing.T) {
	set := DefaultProfiles()
	require.NoError(t, set.Validate())

	for _, e := range All() {
		p := set.Get(e)
		assert.Equal(t, e, p.Emotion)
		assert.NotEmpty(t, p.Responses, "emotion %s", e)
		assert.NotEmpty(t, p.AnimationCues, "emotion %s", e)
		assert.NotEmpty(t, p.Interactions, "emotion %s", e)
		assert.Equal(t, 5.0, p.DurationMinutes)
	}

	assert.Empty(t, set.Get(Emotion(50)).Responses)
}

func TestLoadProfilesYAML_Overrides(t *testing.T) {
	data := []byte(`
happy:
  baseline: 0.2
shy:
  interactions:
    romantic: 0.5
`)
	set, err := LoadProfilesYAML(data)
	require.NoError(t, err)

	assert.Equal(t, 0.2, set.Get(Happy).Baseline)
	assert.Equal(t, DefaultProfiles().Get(Happy).Responses, set.Get(Happy).Responses)
	assert.Equal(t, map[Emotion]float64{Romantic: 0.5}, set.Get(Shy).Interactions)
	assert.Equal(t, DefaultProfiles().Get(Happy).Interactions, set.Get(Happy).Interactions)
	assert.Equal(t, 0.5, set.Get(Caring).Baseline)
}

func TestLoadProfilesYAML_EmptyInteractionsClearsDefaults(t *testing.T) {
	set, err := LoadProfilesYAML([]byte("excited:\n  interactions: {}\n"))
	require.NoError(t, err)

	assert.Empty(t, set.Get(Excited).Interactions)
	assert.NotEmpty(t, DefaultProfiles().Get(Excited).Interactions)
}

func TestLoadProfilesYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown emotion", "angry:\n  baseline: 0.1\n"},
		{"baseline out of range", "happy:\n  baseline: 1.5\n"},
		{"boost out of range", "shy:\n  interactions:\n    gentle: 1.5\n"},
		{"unknown interaction target", "shy:\n  interactions:\n    sleepy: 0.2\n"},
		{"malformed", "happy: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfilesYAML([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestProfileSet_YAMLRoundTrip(t *testing.T) {
	original := DefaultProfiles()
	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	loaded, err := LoadProfilesYAML(data)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadProfilesFile(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		set, err := LoadProfilesFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultProfiles(), set)
	})

	t.Run("reads overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		require.NoError(t, os.WriteFile(path, []byte("romantic:\n  baseline: 0.3\n"), 0644))

		set, err := LoadProfilesFile(path)
		require.NoError(t, err)
		assert.Equal(t, 0.3, set.Get(Romantic).Baseline)

		e := NewEngine(set)
		assert.Equal(t, 0.3, e.Level(Romantic))
	})
}
