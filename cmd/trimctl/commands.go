package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sid-Veeravalli/trim-pro/internal/bootstrap"
	"github.com/Sid-Veeravalli/trim-pro/internal/config"
	"github.com/Sid-Veeravalli/trim-pro/internal/storage"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcribe"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim"
)

var (
	// ErrFileNotFound is returned when the input recording does not exist.
	ErrFileNotFound = errors.New("input file not found")
	// ErrOutputExists is returned when the output file exists and --force is not set.
	ErrOutputExists = errors.New("output file already exists (use --force to overwrite)")
)

// env holds the injectable dependencies of the commands.
type env struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (*config.Config, error)
	newEngine  func(cfg *config.Config, logger *slog.Logger) (transcribe.Engine, error)
}

func defaultEnv() *env {
	return &env{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		loadConfig: config.Load,
		newEngine:  bootstrap.NewEngine,
	}
}

func newRootCmd(e *env) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:     "trimctl",
		Short:   "Transcribe recordings and cut unwanted phrases out of them",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	root.AddCommand(transcribeCmd(e, &verbose))
	root.AddCommand(trimCmd(e, &verbose))
	return root
}

func transcribeCmd(e *env, verbose *bool) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Print the timed transcript of a recording",
		Long: `Print the timed transcript of a recording.

Segment texts are printed quoted, exactly as the engine returned them; use
them verbatim as --phrase values for an exact-match trim.`,
		Example: `  trimctl transcribe talk.wav
  trimctl transcribe talk.wav --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, cleanup, err := openService(e, *verbose, "")
			if err != nil {
				return err
			}
			defer cleanup()

			assetID, err := uploadFile(cmd, svc, args[0])
			if err != nil {
				return err
			}
			segments, err := svc.Transcribe(ctx, assetID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(e.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(segments)
			}
			for _, s := range segments {
				fmt.Fprintf(e.stdout, "[%8.3f - %8.3f] %q\n", s.Start, s.End, s.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print segments as JSON")
	return cmd
}

func trimCmd(e *env, verbose *bool) *cobra.Command {
	var (
		phrases []string
		output  string
		force   bool
		match   string
	)

	cmd := &cobra.Command{
		Use:   "trim <audio-file>",
		Short: "Remove every segment matching a phrase and write the result",
		Long: `Remove every transcript segment matching one of the phrases and write the
trimmed recording as WAV.

Nothing is written unless every phrase matches at least one segment.`,
		Example: `  trimctl trim talk.wav -p " um" -p " you know" -o clean.wav
  trimctl trim talk.wav -p um --match normalized`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input := args[0]

			if output == "" {
				output = deriveOutputPath(input)
			}
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%w: %s", ErrOutputExists, output)
				}
			}

			svc, cleanup, err := openService(e, *verbose, match)
			if err != nil {
				return err
			}
			defer cleanup()

			assetID, err := uploadFile(cmd, svc, input)
			if err != nil {
				return err
			}

			op, err := svc.Trim(ctx, assetID, phrases)
			if err != nil {
				var missing *trim.MissingPhrasesError
				if errors.As(err, &missing) {
					fmt.Fprintln(e.stderr, "Phrases with no matching segment:")
					for _, p := range missing.Phrases {
						fmt.Fprintf(e.stderr, "  %q\n", p)
					}
				}
				return err
			}

			body, _, err := svc.Download(ctx, assetID)
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			data, err := io.ReadAll(body)
			if err != nil {
				return fmt.Errorf("read trimmed audio: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			fmt.Fprintf(e.stdout, "Removed %d interval(s): %.3fs -> %.3fs\n",
				len(op.Intervals), op.OriginalDuration, op.NewDuration)
			fmt.Fprintf(e.stdout, "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&phrases, "phrase", "p", nil, "Phrase to remove (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>_trimmed.wav)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite the output file")
	cmd.Flags().StringVar(&match, "match", "", "Match strategy: exact, normalized (default: MATCH_STRATEGY)")
	_ = cmd.MarkFlagRequired("phrase")
	return cmd
}

// openService builds a trim service over a scratch directory. The returned
// cleanup removes the directory.
func openService(e *env, verbose bool, match string) (*trim.Service, func(), error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if match != "" {
		if _, err := transcript.StrategyByName(strings.ToLower(match)); err != nil {
			return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownMatchStrategy, match)
		}
		cfg.MatchStrategy = match
	}

	level := slog.LevelWarn
	if verbose {
		level = parseVerboseLevel(cfg.LogLevel)
	}
	logger := slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))

	dir, err := os.MkdirTemp("", "trimctl-")
	if err != nil {
		return nil, nil, fmt.Errorf("create scratch directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	store, err := storage.NewLocalStore(dir)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create scratch store: %w", err)
	}

	engine, err := e.newEngine(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svc, err := bootstrap.NewTrimService(cfg, store, engine, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func uploadFile(cmd *cobra.Command, svc *trim.Service, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := svc.Upload(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return "", err
	}
	return res.AssetID, nil
}

// deriveOutputPath maps "talk.mp3" to "talk_trimmed.wav".
func deriveOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + "_trimmed.wav"
}

// parseVerboseLevel keeps LOG_LEVEL=debug and otherwise logs at info.
func parseVerboseLevel(level string) slog.Level {
	if strings.EqualFold(level, "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
