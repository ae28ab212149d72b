// Command affect drives the avatar emotion and animation pipeline from the
// terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/normanking/cortexaffect/internal/animation"
	"github.com/normanking/cortexaffect/internal/bridge"
	"github.com/normanking/cortexaffect/internal/bus"
	"github.com/normanking/cortexaffect/internal/config"
	"github.com/normanking/cortexaffect/internal/lipsync"
	"github.com/normanking/cortexaffect/internal/logging"
	"github.com/normanking/cortexaffect/internal/pipeline"
	"github.com/normanking/cortexaffect/internal/session"
	"github.com/normanking/cortexaffect/internal/store"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	log     *logging.Logger
)

func main() {
	root := rootCmd()
	if cmd, err := root.ExecuteC(); err != nil {
		logFailure(log, cmd.Name(), err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "affect",
		Short: "Emotion-driven facial animation for conversational avatars",
		Long: `affect turns text and detected emotion intensities into animation packages:
a facial expression, a timed phoneme and viseme track, and an easing keyframe
sequence.

One-shot package:   affect animate "hello there" -e happy=0.8
Conversation:       affect chat --session alice
Configuration:      affect config show`,
		PersistentPreRunE: initLogging,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				log.Close()
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.cortexaffect/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "affect v%s\n", version)
		},
	})

	root.AddCommand(animateCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(profilesCmd())
	root.AddCommand(presetCmd())
	root.AddCommand(configCmd())

	return root
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func initLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lc := cfg.Logging.Logger()
	if verbose {
		lc.Level = logging.LevelDebug
		lc.Console = true
	}

	log, err = logging.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
		lc.Dir = ""
		log, err = logging.New(lc)
		if err != nil {
			return err
		}
	}
	log.Debug("cli", "affect started", map[string]interface{}{"command": cmd.Name()})
	return nil
}

func componentLogger(name string) zerolog.Logger {
	if log == nil {
		return zerolog.Nop()
	}
	return log.Component(name)
}

// runtime bundles the pipeline stages and optional collaborators built from config.
type runtime struct {
	cfg      *config.Config
	log      *logging.Logger
	animator *pipeline.Animator
	manager  *session.Manager
	events   *bus.EventBus
	store    *store.Store
	sink     *bridge.RendererSink
}

type runtimeOptions struct {
	withStore    bool
	withRenderer bool
}

func newRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*runtime, error) {
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	mapper, err := cfg.Mapper()
	if err != nil {
		return nil, err
	}

	timeline := lipsync.NewTimeline(cfg.LipSync.Timeline())
	synth := animation.NewSynthesizer(mapper, cfg.Animation.Synthesizer())
	animator := pipeline.NewAnimator(mapper, timeline, synth, cfg.Animation.Speech())
	timer := animation.NewTimer(cfg.Animation.BaseTransition)

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		animator: animator,
		events:   bus.NewEventBus(),
	}
	if rt.log != nil {
		logEvents(rt.events, rt.log)
	}

	managerOpts := []session.Option{
		session.WithEventBus(rt.events),
		session.WithLogger(componentLogger("session")),
		session.WithMixThreshold(cfg.Emotion.MixThreshold),
		session.WithSeed(cfg.Emotion.Seed),
	}

	if opts.withStore && cfg.Store.Enabled {
		rt.store, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		managerOpts = append(managerOpts, session.WithStore(rt.store))
	}

	if opts.withRenderer && cfg.Renderer.URL != "" {
		rt.sink, err = bridge.NewRendererSink(cfg.Renderer.URL, cfg.Renderer.WriteTimeout, componentLogger("bridge"))
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.sink.SetErrorCallback(func(err error) {
			rt.events.Publish(bus.Event{
				Type: bus.EventTypeRendererError,
				Data: map[string]any{"error": err.Error()},
			})
		})
		if err := rt.sink.Connect(ctx); err != nil {
			l := componentLogger("cli")
			l.Warn().Err(err).Msg("Renderer unavailable, will retry on send")
		}
		managerOpts = append(managerOpts, session.WithSink(rt.sink))
	}

	rt.manager = session.NewManager(profiles, animator, timer, managerOpts...)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.sink != nil {
		rt.sink.Close()
	}
	if rt.store != nil {
		rt.store.Close()
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
