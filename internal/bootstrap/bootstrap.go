// Package bootstrap provides dependency initialization for trim-pro.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sid-Veeravalli/trim-pro/internal/audio"
	"github.com/Sid-Veeravalli/trim-pro/internal/beam"
	"github.com/Sid-Veeravalli/trim-pro/internal/config"
	"github.com/Sid-Veeravalli/trim-pro/internal/runpod"
	"github.com/Sid-Veeravalli/trim-pro/internal/storage"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcribe"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	Store       storage.Store
	Engine      transcribe.Engine
	TrimService *trim.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc, err := NewTrimService(cfg, store, engine, logger)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Store:       store,
		Engine:      engine,
		TrimService: svc,
	}, nil
}

// NewTrimService wires a trim.Service over store and engine using the
// matcher, cache and normaliser settings of cfg.
func NewTrimService(cfg *config.Config, store storage.Store, engine transcribe.Engine, logger *slog.Logger) (*trim.Service, error) {
	matcher, err := transcript.StrategyByName(strings.ToLower(cfg.MatchStrategy))
	if err != nil {
		return nil, fmt.Errorf("select matcher: %w", err)
	}

	opts := []trim.Option{
		trim.WithMatcher(matcher),
		trim.WithLogger(logger),
	}
	if cfg.TranscriptCache {
		opts = append(opts, trim.WithCache(transcript.NewCache()))
	}
	if cfg.NormalizerEnabled() {
		normalizer := audio.NewFFmpegNormalizer(cfg.FFmpegPath, "")
		opts = append(opts, trim.WithNormalizer(normalizer, audio.NormalizeOpts{}))
	}

	logger.Info("trim service configured",
		slog.String("matcher", matcher.Name()),
		slog.Bool("transcript_cache", cfg.TranscriptCache),
		slog.Bool("normalizer", cfg.NormalizerEnabled()),
	)
	return trim.NewService(store, engine, opts...), nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Store(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", localStore.Dir()),
	)
	return localStore, nil
}

// NewEngine creates the transcription engine selected by TRANSCRIBER.
func NewEngine(cfg *config.Config, logger *slog.Logger) (transcribe.Engine, error) {
	switch strings.ToLower(cfg.Transcriber) {
	case config.TranscriberOpenAI:
		client := transcribe.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		logger.Info("OpenAI transcription configured",
			slog.String("model", cfg.OpenAIModel),
			slog.Bool("custom_base_url", cfg.OpenAIBaseURL != ""),
		)
		return transcribe.NewOpenAIEngine(client,
			transcribe.WithOpenAIModel(cfg.OpenAIModel),
			transcribe.WithLanguage(cfg.Language),
			transcribe.WithOpenAILogger(logger),
		), nil

	case config.TranscriberRunPod:
		client, err := runpod.NewClient(cfg.RunPodEndpointID, runpod.WithAPIKey(cfg.RunPodAPIKey))
		if err != nil {
			return nil, fmt.Errorf("create RunPod client: %w", err)
		}
		submit := runpod.DefaultSubmitOptions()
		submit.Model = cfg.WhisperModel
		submit.Language = cfg.Language
		logger.Info("RunPod transcription configured",
			slog.String("endpoint_id", cfg.RunPodEndpointID),
			slog.String("model", submit.Model),
		)
		return transcribe.NewRunPodEngine(client,
			transcribe.WithSubmitOptions(submit),
			transcribe.WithRunPodLogger(logger),
		), nil

	case config.TranscriberBeam:
		client, err := beam.NewClient(cfg.BeamQueueURL, beam.WithToken(cfg.BeamToken))
		if err != nil {
			return nil, fmt.Errorf("create Beam client: %w", err)
		}
		submit := beam.DefaultSubmitOptions()
		submit.Model = cfg.WhisperModel
		submit.Language = cfg.Language
		logger.Info("Beam transcription configured",
			slog.String("queue_url", cfg.BeamQueueURL),
			slog.String("model", submit.Model),
		)
		return transcribe.NewBeamEngine(client,
			transcribe.WithBeamSubmitOptions(submit),
			transcribe.WithBeamLogger(logger),
		), nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTranscriber, cfg.Transcriber)
	}
}
