package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /upload-audio", h.UploadAudio)
	mux.HandleFunc("GET /transcribe-audio/{file_id}", h.TranscribeAudio)
	mux.HandleFunc("POST /trim-audio", h.TrimAudio)
	mux.HandleFunc("GET /download-audio/{file_id}", h.DownloadAudio)
	mux.HandleFunc("GET /trims/{id}", h.GetTrim)
	mux.HandleFunc("GET /assets/{file_id}/trims", h.ListTrims)
	mux.HandleFunc("DELETE /assets/{file_id}", h.DeleteAsset)

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
