// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Transcription engines selectable with TRANSCRIBER.
const (
	TranscriberOpenAI = "openai"
	TranscriberRunPod = "runpod"
	TranscriberBeam   = "beam"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIKeyRequired is returned when TRANSCRIBER=openai and OPENAI_API_KEY is not set.
	ErrOpenAIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrRunPodAPIKeyRequired is returned when TRANSCRIBER=runpod and RUNPOD_API_KEY is not set.
	ErrRunPodAPIKeyRequired = errors.New("config: RUNPOD_API_KEY is required")
	// ErrRunPodEndpointIDRequired is returned when TRANSCRIBER=runpod and RUNPOD_ENDPOINT_ID is not set.
	ErrRunPodEndpointIDRequired = errors.New("config: RUNPOD_ENDPOINT_ID is required")
	// ErrBeamQueueURLRequired is returned when TRANSCRIBER=beam and BEAM_QUEUE_URL is not set.
	ErrBeamQueueURLRequired = errors.New("config: BEAM_QUEUE_URL is required")
	// ErrBeamTokenRequired is returned when TRANSCRIBER=beam and BEAM_TOKEN is not set.
	ErrBeamTokenRequired = errors.New("config: BEAM_TOKEN is required")
	// ErrUnknownTranscriber is returned for a TRANSCRIBER that names no engine.
	ErrUnknownTranscriber = errors.New("config: unknown TRANSCRIBER")
	// ErrUnknownMatchStrategy is returned for a MATCH_STRATEGY other than exact or normalized.
	ErrUnknownMatchStrategy = errors.New("config: unknown MATCH_STRATEGY")
	// ErrInvalidUploadLimit is returned when MAX_UPLOAD_MB is not positive.
	ErrInvalidUploadLimit = errors.New("config: MAX_UPLOAD_MB must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	MaxUploadMB    int      `env:"MAX_UPLOAD_MB, default=100" json:"max_upload_mb"`

	// Storage settings
	DataDir string `env:"DATA_DIR, default=/tmp/trim-pro" json:"data_dir"`

	// Transcription settings
	Transcriber string `env:"TRANSCRIBER, default=openai" json:"transcriber"` // "openai" or "runpod"
	Language    string `env:"TRANSCRIBE_LANGUAGE" json:"language,omitempty"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY" json:"-"` // Masked in JSON
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" json:"openai_base_url,omitempty"`
	OpenAIModel   string `env:"OPENAI_MODEL, default=whisper-1" json:"openai_model"`

	RunPodAPIKey     string `env:"RUNPOD_API_KEY" json:"-"` // Masked in JSON
	RunPodEndpointID string `env:"RUNPOD_ENDPOINT_ID" json:"runpod_endpoint_id,omitempty"`
	WhisperModel     string `env:"WHISPER_MODEL, default=base" json:"whisper_model"`

	BeamQueueURL string `env:"BEAM_QUEUE_URL" json:"beam_queue_url,omitempty"`
	BeamToken    string `env:"BEAM_TOKEN" json:"-"` // Masked in JSON

	// Processing settings
	MatchStrategy   string `env:"MATCH_STRATEGY, default=exact" json:"match_strategy"` // "exact" or "normalized"
	TranscriptCache bool   `env:"TRANSCRIPT_CACHE, default=true" json:"transcript_cache"`
	FFmpegPath      string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"` // "off" disables conversion

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// NormalizerEnabled reports whether non-WAV uploads are converted with ffmpeg.
func (c *Config) NormalizerEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.FFmpegPath)) {
	case "", "off", "none", "false":
		return false
	}
	return true
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings of the selected transcriber are present.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Transcriber) {
	case TranscriberOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrOpenAIKeyRequired
		}
	case TranscriberRunPod:
		if c.RunPodAPIKey == "" {
			return ErrRunPodAPIKeyRequired
		}
		if c.RunPodEndpointID == "" {
			return ErrRunPodEndpointIDRequired
		}
	case TranscriberBeam:
		if c.BeamQueueURL == "" {
			return ErrBeamQueueURLRequired
		}
		if c.BeamToken == "" {
			return ErrBeamTokenRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTranscriber, c.Transcriber)
	}

	switch strings.ToLower(c.MatchStrategy) {
	case "exact", "normalized":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMatchStrategy, c.MatchStrategy)
	}

	if c.MaxUploadMB <= 0 {
		return ErrInvalidUploadLimit
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DataDir: %s, MaxUploadMB: %d, Transcriber: %s, OpenAIModel: %s, RunPodEndpointID: %s, BeamQueueURL: %s, WhisperModel: %s, MatchStrategy: %s, TranscriptCache: %t, FFmpegPath: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DataDir,
		c.MaxUploadMB,
		c.Transcriber,
		c.OpenAIModel,
		c.RunPodEndpointID,
		c.BeamQueueURL,
		c.WhisperModel,
		c.MatchStrategy,
		c.TranscriptCache,
		c.FFmpegPath,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
