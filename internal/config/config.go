// Package config provides configuration management for cortexaffect.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexaffect/internal/animation"
	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/face"
	"github.com/normanking/cortexaffect/internal/lipsync"
	"github.com/normanking/cortexaffect/internal/logging"
	"github.com/normanking/cortexaffect/internal/pipeline"
)

// EnvPrefix prefixes environment overrides, e.g. CORTEXAFFECT_FACE_BLEND_MODE.
const EnvPrefix = "CORTEXAFFECT"

// Config holds all application configuration.
// It is loaded from ~/.cortexaffect/config.yaml and can be overridden by environment variables.
type Config struct {
	Emotion   EmotionConfig   `mapstructure:"emotion" yaml:"emotion"`
	Face      FaceConfig      `mapstructure:"face" yaml:"face"`
	LipSync   LipSyncConfig   `mapstructure:"lipsync" yaml:"lipsync"`
	Animation AnimationConfig `mapstructure:"animation" yaml:"animation"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Renderer  RendererConfig  `mapstructure:"renderer" yaml:"renderer"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// EmotionConfig configures the emotion engine.
type EmotionConfig struct {
	// ProfilesPath points at an optional YAML profile override file.
	ProfilesPath string `mapstructure:"profiles_path" yaml:"profiles_path"`

	// Seed fixes the random source for response selection. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`

	// MixThreshold is the minimum level for an emotion to enter the animated mix.
	MixThreshold float64 `mapstructure:"mix_threshold" yaml:"mix_threshold"`
}

// FaceConfig configures the facial muscle mapper.
type FaceConfig struct {
	BlendMode string `mapstructure:"blend_mode" yaml:"blend_mode"` // additive, normalized
}

// LipSyncConfig holds phoneme durations in seconds.
type LipSyncConfig struct {
	VowelDuration     float64 `mapstructure:"vowel_duration" yaml:"vowel_duration"`
	ConsonantDuration float64 `mapstructure:"consonant_duration" yaml:"consonant_duration"`
	Transition        float64 `mapstructure:"transition" yaml:"transition"`
	WordPause         float64 `mapstructure:"word_pause" yaml:"word_pause"`
}

// AnimationConfig holds keyframe spacing and speech timing.
type AnimationConfig struct {
	TransitionTime float64 `mapstructure:"transition_time" yaml:"transition_time"`
	HoldTime       float64 `mapstructure:"hold_time" yaml:"hold_time"`
	RelaxFactor    float64 `mapstructure:"relax_factor" yaml:"relax_factor"`

	// BaseTransition is the emotion-to-emotion transition before modifiers.
	BaseTransition float64 `mapstructure:"base_transition" yaml:"base_transition"`

	SpeechRate     float64 `mapstructure:"speech_rate" yaml:"speech_rate"` // characters per second
	IntensityScale float64 `mapstructure:"intensity_scale" yaml:"intensity_scale"`
}

// StoreConfig configures the session snapshot store.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// RendererConfig configures the websocket renderer sink.
type RendererConfig struct {
	URL          string        `mapstructure:"url" yaml:"url"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	Level      string `mapstructure:"level" yaml:"level"`
	Console    bool   `mapstructure:"console" yaml:"console"`
	MaxHistory int    `mapstructure:"max_history" yaml:"max_history"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	timeline := lipsync.DefaultConfig()
	synth := animation.DefaultConfig()
	speech := pipeline.DefaultConfig()

	return &Config{
		Emotion: EmotionConfig{
			ProfilesPath: "~/.cortexaffect/profiles.yaml",
			MixThreshold: 0.2,
		},
		Face: FaceConfig{
			BlendMode: face.BlendAdditive.String(),
		},
		LipSync: LipSyncConfig{
			VowelDuration:     timeline.VowelDuration,
			ConsonantDuration: timeline.ConsonantDuration,
			Transition:        timeline.Transition,
			WordPause:         timeline.WordPause,
		},
		Animation: AnimationConfig{
			TransitionTime: synth.TransitionTime,
			HoldTime:       synth.HoldTime,
			RelaxFactor:    synth.RelaxFactor,
			BaseTransition: animation.BaseTransition,
			SpeechRate:     speech.SpeechRate,
			IntensityScale: speech.IntensityScale,
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    "~/.cortexaffect/sessions.db",
		},
		Renderer: RendererConfig{
			WriteTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Dir:        "~/.cortexaffect/logs",
			Level:      "info",
			Console:    false,
			MaxHistory: 200,
		},
	}
}

// DefaultPath is ~/.cortexaffect/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cortexaffect", "config.yaml"), nil
}

// Load reads configuration from the default location.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with default
// values. Keys missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Example: CORTEXAFFECT_ANIMATION_HOLD_TIME
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Emotion.ProfilesPath = expandPath(cfg.Emotion.ProfilesPath)
	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Logging.Dir = expandPath(cfg.Logging.Dir)

	return cfg, nil
}

// SaveToPath writes the configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Emotion.MixThreshold < 0 || c.Emotion.MixThreshold > 1 {
		return fmt.Errorf("emotion.mix_threshold must be between 0 and 1")
	}

	if _, err := face.ParseBlendMode(c.Face.BlendMode); err != nil {
		return fmt.Errorf("face.blend_mode: %w", err)
	}

	if c.LipSync.VowelDuration <= 0 || c.LipSync.ConsonantDuration <= 0 {
		return fmt.Errorf("lipsync phoneme durations must be positive")
	}
	if c.LipSync.Transition < 0 || c.LipSync.WordPause < 0 {
		return fmt.Errorf("lipsync transition and word_pause cannot be negative")
	}

	if c.Animation.TransitionTime <= 0 || c.Animation.HoldTime <= 0 {
		return fmt.Errorf("animation transition_time and hold_time must be positive")
	}
	if c.Animation.RelaxFactor <= 0 || c.Animation.RelaxFactor > 1 {
		return fmt.Errorf("animation.relax_factor must be in (0, 1]")
	}
	if c.Animation.BaseTransition <= 0 {
		return fmt.Errorf("animation.base_transition must be positive")
	}
	if c.Animation.SpeechRate <= 0 {
		return fmt.Errorf("animation.speech_rate must be positive")
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path cannot be empty when the store is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// Profiles loads the emotion profile table, falling back to the defaults when
// the override file does not exist.
func (c *Config) Profiles() (*emotion.ProfileSet, error) {
	if c.Emotion.ProfilesPath == "" {
		return emotion.DefaultProfiles(), nil
	}
	return emotion.LoadProfilesFile(c.Emotion.ProfilesPath)
}

// Mapper builds the facial muscle mapper for the configured blend mode.
func (c *Config) Mapper() (*face.Mapper, error) {
	mode, err := face.ParseBlendMode(c.Face.BlendMode)
	if err != nil {
		return nil, err
	}
	return face.NewMapper(mode), nil
}

func (c LipSyncConfig) Timeline() lipsync.Config {
	return lipsync.Config{
		VowelDuration:     c.VowelDuration,
		ConsonantDuration: c.ConsonantDuration,
		Transition:        c.Transition,
		WordPause:         c.WordPause,
	}
}

func (c AnimationConfig) Synthesizer() animation.Config {
	return animation.Config{
		TransitionTime: c.TransitionTime,
		HoldTime:       c.HoldTime,
		RelaxFactor:    c.RelaxFactor,
	}
}

func (c AnimationConfig) Speech() pipeline.Config {
	return pipeline.Config{
		SpeechRate:     c.SpeechRate,
		IntensityScale: c.IntensityScale,
	}
}

func (c LoggingConfig) Logger() *logging.Config {
	return &logging.Config{
		Dir:        c.Dir,
		Level:      logging.LogLevel(c.Level),
		MaxHistory: c.MaxHistory,
		Console:    c.Console,
	}
}

// writeConfigFile writes a Config struct to a YAML file.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
