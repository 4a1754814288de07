// Package main provides trimctl, a command line client that transcribes and
// trims local recordings with the same pipeline as the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Sid-Veeravalli/trim-pro/internal/config"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcribe"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim"
)

// Injected at build time via ldflags.
var version = "dev"

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitInterrupt     = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(defaultEnv())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupt
	case errors.Is(err, config.ErrOpenAIKeyRequired),
		errors.Is(err, config.ErrRunPodAPIKeyRequired),
		errors.Is(err, config.ErrRunPodEndpointIDRequired),
		errors.Is(err, config.ErrBeamQueueURLRequired),
		errors.Is(err, config.ErrBeamTokenRequired),
		errors.Is(err, config.ErrUnknownTranscriber),
		errors.Is(err, config.ErrUnknownMatchStrategy),
		errors.Is(err, config.ErrInvalidUploadLimit),
		errors.Is(err, transcript.ErrUnknownStrategy):
		return ExitSetup
	case errors.Is(err, transcribe.ErrRateLimit),
		errors.Is(err, transcribe.ErrQuotaExceeded),
		errors.Is(err, transcribe.ErrTimeout),
		errors.Is(err, transcribe.ErrAuthFailed),
		errors.Is(err, transcribe.ErrJobFailed),
		errors.Is(err, transcribe.ErrServerError),
		errors.Is(err, transcribe.ErrBadRequest):
		return ExitTranscription
	}

	switch trim.Classify(err) {
	case trim.KindValidation, trim.KindNotFound, trim.KindConflict:
		return ExitValidation
	}
	if errors.Is(err, ErrOutputExists) || errors.Is(err, ErrFileNotFound) {
		return ExitValidation
	}
	return ExitGeneral
}
