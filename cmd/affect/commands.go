package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/cortexaffect/internal/config"
	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/face"
	"github.com/normanking/cortexaffect/internal/logging"
	"github.com/normanking/cortexaffect/internal/pipeline"
)

// parseEmotions reads name=level pairs. Names are validated; levels must parse
// as floats.
func parseEmotions(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		for _, item := range strings.Split(pair, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			name, raw, ok := strings.Cut(item, "=")
			if !ok {
				return nil, fmt.Errorf("expected name=level, got %q", item)
			}
			name = strings.ToLower(strings.TrimSpace(name))
			if _, known := emotion.Parse(name); !known {
				return nil, fmt.Errorf("unknown emotion %q", name)
			}
			level, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid level for %s: %w", name, err)
			}
			out[name] = level
		}
	}
	return out, nil
}

// splitChatLine separates an optional leading "[happy=0.8, shy=0.2]" block from
// the text of a chat line.
func splitChatLine(line string) (map[string]float64, string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return nil, line, nil
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return nil, line, nil
	}
	detected, err := parseEmotions([]string{line[1:end]})
	if err != nil {
		return nil, "", err
	}
	return detected, strings.TrimSpace(line[end+1:]), nil
}

func animateCmd() *cobra.Command {
	var (
		emotions   []string
		transition float64
		visemes    bool
		asMap      bool
		sampled    bool
	)

	cmd := &cobra.Command{
		Use:   "animate [text]",
		Short: "Build one animation package from text and an emotion mix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detected, err := parseEmotions(emotions)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			pkg := rt.animator.Build(pipeline.Request{
				Text:       strings.Join(args, " "),
				Mix:        emotion.ParseMix(detected),
				Transition: transition,
				Sampled:    sampled,
			})

			out := cmd.OutOrStdout()
			switch {
			case visemes:
				return writeJSON(out, pkg.Visemes)
			case asMap:
				m, err := pkg.ToMap()
				if err != nil {
					return err
				}
				return writeJSON(out, m)
			default:
				return writeJSON(out, pkg)
			}
		},
	}

	cmd.Flags().StringSliceVarP(&emotions, "emotion", "e", nil, "detected emotion as name=level (repeatable)")
	cmd.Flags().Float64Var(&transition, "transition", 0, "transition seconds into the peak (0 uses config)")
	cmd.Flags().BoolVar(&visemes, "visemes", false, "print only the viseme timeline")
	cmd.Flags().BoolVar(&asMap, "map", false, "print the package as a generic map")
	cmd.Flags().BoolVar(&sampled, "sampled", false, "use the four-frame sampled sequence")
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		sessionID string
		asJSON    bool
		push      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a conversation from stdin, one utterance per line",
		Long: `Each line is an utterance, optionally prefixed with detected emotions:

  [happy=0.8, excited=0.4] that's wonderful news!

Commands: /summary, /suggest, /reset, /quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, runtimeOptions{withStore: true, withRenderer: push})
			if err != nil {
				return err
			}
			defer rt.Close()

			return runChat(ctx, rt, sessionID, cmd.InOrStdin(), cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print full packages as JSON")
	cmd.Flags().BoolVar(&push, "push", false, "push packages to the configured renderer")
	return cmd
}

func runChat(ctx context.Context, rt *runtime, sessionID string, in io.Reader, out io.Writer, asJSON bool) error {
	s, err := rt.manager.Session(ctx, sessionID)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/log" || strings.HasPrefix(line, "/log ") {
			printLog(out, rt.log, strings.TrimSpace(strings.TrimPrefix(line, "/log")))
			continue
		}
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/summary":
			if err := writeJSON(out, s.Summary()); err != nil {
				return err
			}
			continue
		case "/suggest":
			if err := writeJSON(out, s.Suggest()); err != nil {
				return err
			}
			continue
		case "/reset":
			s.Reset(ctx)
			fmt.Fprintln(out, "reset to baseline")
			continue
		}

		detected, text, err := splitChatLine(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		pkg := s.Respond(ctx, text, detected)
		if asJSON {
			if err := writeJSON(out, pkg); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%-12s %.2f  %s  speech %.2fs  total %.2fs  phonemes %d\n",
			pkg.Metadata.PrimaryEmotion,
			pkg.Metadata.Intensity,
			emotion.Tone(s.Summary().Primary, pkg.Metadata.Intensity),
			pkg.Timing.SpeechDuration,
			pkg.Timing.TotalDuration,
			len(pkg.Phonemes))
	}
	return scanner.Err()
}

// printLog writes the most recent log entries, ten unless arg names a count.
func printLog(out io.Writer, l *logging.Logger, arg string) {
	if l == nil {
		fmt.Fprintln(out, "logging disabled")
		return
	}
	limit := 10
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintf(out, "error: invalid log count %q\n", arg)
			return
		}
		limit = n
	}
	if path := l.GetLogPath(); path != "" {
		fmt.Fprintf(out, "log file: %s\n", path)
	}
	for _, e := range l.GetHistory(limit) {
		fmt.Fprintf(out, "%s %-5s %-8s %s", e.Timestamp, e.Level, e.Component, e.Message)
		if e.Data != "" {
			fmt.Fprintf(out, " (%s)", e.Data)
		}
		fmt.Fprintln(out)
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [session]",
		Short: "Show recent packages generated for a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Store.Enabled {
				return fmt.Errorf("session store is disabled (store.enabled)")
			}
			rt, err := newRuntime(cmd.Context(), cfg, runtimeOptions{withStore: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.store.Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-12s %.2f  %5.2fs  %s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.PrimaryEmotion, e.Intensity, e.TotalDuration, e.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Print the effective emotion profile table as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			set, err := cfg.Profiles()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(set)
		},
	}
}

func presetCmd() *cobra.Command {
	var intensity float64

	cmd := &cobra.Command{
		Use:       "preset [name]",
		Short:     "Print a preset facial expression",
		Args:      cobra.ExactArgs(1),
		ValidArgs: face.PresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := face.Preset(args[0], intensity)
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(face.PresetNames(), ", "))
			}
			return writeJSON(cmd.OutOrStdout(), expr)
		},
	}

	cmd.Flags().Float64VarP(&intensity, "intensity", "i", 1.0, "preset intensity in [0,1]")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print the configuration each time the file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			w, err := config.Watch(path, componentLogger("config"), func(c *config.Config) {
				fmt.Fprintf(out, "reloaded: blend=%s transition=%.2fs hold=%.2fs vowel=%.2fs\n",
					c.Face.BlendMode, c.Animation.TransitionTime, c.Animation.HoldTime, c.LipSync.VowelDuration)
			})
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Fprintf(out, "watching %s\n", path)
			<-ctx.Done()
			return nil
		},
	})

	return cmd
}

func resolvedConfigPath() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return config.DefaultPath()
}
