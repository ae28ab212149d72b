package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexaffect/internal/animation"
	"github.com/normanking/cortexaffect/internal/face"
	"github.com/normanking/cortexaffect/internal/lipsync"
)

func TestLoadFromPath_WritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be created")

	assert.Equal(t, 0.2, cfg.Emotion.MixThreshold)
	assert.Equal(t, "additive", cfg.Face.BlendMode)
	assert.Equal(t, lipsync.DefaultConfig(), cfg.LipSync.Timeline())
	assert.Equal(t, animation.DefaultConfig(), cfg.Animation.Synthesizer())
	assert.Equal(t, animation.BaseTransition, cfg.Animation.BaseTransition)
	assert.Equal(t, 5*time.Second, cfg.Renderer.WriteTimeout)
	assert.False(t, cfg.Store.Enabled)
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
face:
  blend_mode: normalized
animation:
  hold_time: 0.5
renderer:
  url: ws://localhost:9000/avatar
  write_timeout: 2s
`), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "normalized", cfg.Face.BlendMode)
	assert.Equal(t, 0.5, cfg.Animation.HoldTime)
	assert.Equal(t, 0.2, cfg.Animation.TransitionTime)
	assert.Equal(t, 0.15, cfg.LipSync.VowelDuration)
	assert.Equal(t, "ws://localhost:9000/avatar", cfg.Renderer.URL)
	assert.Equal(t, 2*time.Second, cfg.Renderer.WriteTimeout)

	mapper, err := cfg.Mapper()
	require.NoError(t, err)
	assert.Equal(t, face.BlendNormalized, mapper.Mode())
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CORTEXAFFECT_FACE_BLEND_MODE", "normalized")
	t.Setenv("CORTEXAFFECT_LIPSYNC_WORD_PAUSE", "0.25")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "normalized", cfg.Face.BlendMode)
	assert.Equal(t, 0.25, cfg.LipSync.WordPause)
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Emotion.Seed = 42
	cfg.Store.Enabled = true
	cfg.Store.Path = filepath.Join(t.TempDir(), "sessions.db")
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.SaveToPath(path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Emotion.Seed)
	assert.True(t, loaded.Store.Enabled)
	assert.Equal(t, cfg.Store.Path, loaded.Store.Path)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mix threshold", func(c *Config) { c.Emotion.MixThreshold = 1.5 }},
		{"blend mode", func(c *Config) { c.Face.BlendMode = "multiply" }},
		{"vowel duration", func(c *Config) { c.LipSync.VowelDuration = 0 }},
		{"word pause", func(c *Config) { c.LipSync.WordPause = -1 }},
		{"hold time", func(c *Config) { c.Animation.HoldTime = 0 }},
		{"relax factor", func(c *Config) { c.Animation.RelaxFactor = 2 }},
		{"base transition", func(c *Config) { c.Animation.BaseTransition = 0 }},
		{"speech rate", func(c *Config) { c.Animation.SpeechRate = 0 }},
		{"store path", func(c *Config) { c.Store.Enabled = true; c.Store.Path = "" }},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestProfiles_MissingFileUsesDefaults(t *testing.T) {
	cfg := Default()
	cfg.Emotion.ProfilesPath = filepath.Join(t.TempDir(), "absent.yaml")

	set, err := cfg.Profiles()
	require.NoError(t, err)
	assert.Equal(t, 0.7, set.Baselines()[0])
}

func TestLoggingConfig_Logger(t *testing.T) {
	lc := LoggingConfig{Dir: "/tmp/x", Level: "warn", Console: true, MaxHistory: 5}
	got := lc.Logger()
	assert.Equal(t, "/tmp/x", got.Dir)
	assert.EqualValues(t, "warn", got.Level)
	assert.Equal(t, 5, got.MaxHistory)
	assert.True(t, got.Console)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := LoadFromPath(path)
	require.NoError(t, err)

	changes := make(chan *Config, 16)
	w, err := Watch(path, zerolog.Nop(), func(c *Config) { changes <- c })
	require.NoError(t, err)
	defer w.Close()

	cfg := Default()
	cfg.Animation.HoldTime = 0.9
	require.NoError(t, cfg.SaveToPath(path))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Animation.HoldTime == 0.9 {
				return
			}
		case <-deadline:
			t.Fatal("watcher did not deliver the updated config")
		}
	}
}

func TestWatch_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w, err := Watch(path, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
