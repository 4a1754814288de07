package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrEmptyInput is returned when there is nothing to convert.
var ErrEmptyInput = errors.New("audio: empty input")

// durationRe matches the "Duration: HH:MM:SS.frac" line ffmpeg prints for
// every input it opens.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// NormalizeOpts configures conversion to PCM WAV.
type NormalizeOpts struct {
	// SampleRate forces the output rate in Hz. Zero keeps the source rate.
	SampleRate int
	// Channels forces the output channel count. Zero keeps the source layout.
	Channels int
}

// Normalized is the result of converting an upload to PCM WAV.
type Normalized struct {
	// WAV is the 16-bit PCM WAV file.
	WAV []byte
	// SourceDurationSec is the input duration reported by ffmpeg, or zero
	// when it could not be read.
	SourceDurationSec float64
}

// Normalizer converts arbitrary audio containers to PCM WAV.
type Normalizer interface {
	// Normalize converts data to a 16-bit PCM WAV file.
	Normalize(ctx context.Context, data []byte, opts NormalizeOpts) (Normalized, error)
}

// FFmpegNormalizer implements Normalizer using the ffmpeg CLI.
type FFmpegNormalizer struct {
	ffmpegPath string
	tempDir    string
}

// NewFFmpegNormalizer creates a new FFmpegNormalizer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
// Scratch files go to tempDir, or os.TempDir() when empty.
func NewFFmpegNormalizer(ffmpegPath, tempDir string) *FFmpegNormalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegNormalizer{ffmpegPath: ffmpegPath, tempDir: tempDir}
}

// Normalize implements Normalizer.Normalize.
// Input and output go through scratch files because the WAV muxer needs a
// seekable output to write correct chunk sizes.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, data []byte, opts NormalizeOpts) (Normalized, error) {
	if len(data) == 0 {
		return Normalized{}, ErrEmptyInput
	}

	workDir, err := os.MkdirTemp(n.tempDir, "normalize_*")
	if err != nil {
		return Normalized{}, fmt.Errorf("create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	inputPath := filepath.Join(workDir, "input")
	outputPath := filepath.Join(workDir, "output.wav")
	if err := os.WriteFile(inputPath, data, 0600); err != nil {
		return Normalized{}, fmt.Errorf("write input: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-i", inputPath,
		"-vn",                  // Drop any video stream
		"-map_metadata", "-1",  // No LIST/INFO chunk in the output
		"-fflags", "+bitexact", // Same input, same bytes
		"-acodec", "pcm_s16le", // 16-bit little-endian PCM
	}
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	args = append(args, "-f", "wav", outputPath)

	cmd := exec.CommandContext(ctx, n.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Normalized{}, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return Normalized{}, fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	wavData, err := os.ReadFile(outputPath) // #nosec G304 - path is inside our work directory
	if err != nil {
		return Normalized{}, fmt.Errorf("read output: %w", err)
	}

	// A missing duration line is not fatal; the WAV decoder has the final say.
	duration, _ := parseDuration(stderr.String())

	return Normalized{WAV: wavData, SourceDurationSec: duration}, nil
}

// parseDuration extracts the input duration in seconds from ffmpeg stderr.
func parseDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %s", output)
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	frac, _ := strconv.ParseFloat(matches[4], 64)

	// The fractional part has variable precision
	divisor := 1.0
	for i := 0; i < len(matches[4]); i++ {
		divisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + frac/divisor, nil
}

// Verify interface implementation at compile time.
var _ Normalizer = (*FFmpegNormalizer)(nil)
