package trim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/Sid-Veeravalli/trim-pro/internal/audio"
	"github.com/Sid-Veeravalli/trim-pro/internal/storage"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcribe"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim/id"
)

// durationDriftSec is how far the converted WAV may drift from the duration
// ffmpeg reported for the source before it is logged.
const durationDriftSec = 0.5

// UploadResult describes a stored upload.
type UploadResult struct {
	// AssetID identifies the recording in later calls.
	AssetID string
	// DurationSeconds is the duration of the stored recording.
	DurationSeconds float64
	// Ref is the storage reference of the original recording.
	Ref string
}

// Service orchestrates the upload, transcribe, trim and download workflows.
//
// Dependencies:
//   - storage.Store: original and trimmed recordings
//   - transcribe.Engine: segments for a recording
//   - audio.Normalizer: optional conversion of non-WAV uploads
//   - transcript.Cache: optional per-asset transcript cache
//   - Repository: trim operation records
type Service struct {
	store      storage.Store
	engine     transcribe.Engine
	normalizer audio.Normalizer
	normOpts   audio.NormalizeOpts
	matcher    transcript.Matcher
	cache      *transcript.Cache
	repo       Repository
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNormalizer enables conversion of uploads the WAV decoder rejects.
func WithNormalizer(n audio.Normalizer, opts audio.NormalizeOpts) Option {
	return func(s *Service) {
		s.normalizer = n
		s.normOpts = opts
	}
}

// WithMatcher sets the phrase matching strategy. The default is exact matching.
func WithMatcher(m transcript.Matcher) Option {
	return func(s *Service) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithCache keeps transcripts between calls. Without it every Transcribe and
// Trim call runs the engine.
func WithCache(c *transcript.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithRepository sets where trim operations are recorded.
func WithRepository(r Repository) Option {
	return func(s *Service) {
		if r != nil {
			s.repo = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service.
func NewService(store storage.Store, engine transcribe.Engine, opts ...Option) *Service {
	s := &Service{
		store:   store,
		engine:  engine,
		matcher: transcript.Exact{},
		repo:    NewMemoryRepository(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload reads a recording, converts it to PCM WAV if needed, and stores it
// under a new asset ID.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return UploadResult{}, ErrEmptyUpload
	}

	wav, buf, err := s.decodeUpload(ctx, data)
	if err != nil {
		return UploadResult{}, err
	}

	assetID := id.NewAssetID()
	ref, err := s.store.Store(ctx, storage.OriginalKey(assetID), wav)
	if err != nil {
		s.logger.Error("failed to store upload",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
		)
		return UploadResult{}, fmt.Errorf("store upload: %w", err)
	}
	s.invalidate(assetID)

	s.logger.Info("audio uploaded",
		slog.String("asset_id", assetID),
		slog.String("file", name),
		slog.Int("bytes", len(wav)),
		slog.Float64("duration_sec", buf.DurationSeconds()),
		slog.Int("sample_rate", buf.SampleRate()),
		slog.Int("channels", buf.Channels()),
	)

	return UploadResult{
		AssetID:         assetID,
		DurationSeconds: buf.DurationSeconds(),
		Ref:             ref,
	}, nil
}

// decodeUpload returns WAV bytes for data and the decoded buffer.
func (s *Service) decodeUpload(ctx context.Context, data []byte) ([]byte, *audio.Buffer, error) {
	buf, err := audio.Decode(data)
	if err == nil {
		return data, buf, nil
	}
	if s.normalizer == nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnsupportedAudio, err)
	}

	s.logger.Debug("upload is not PCM WAV, normalising", slog.String("reason", err.Error()))

	norm, nErr := s.normalizer.Normalize(ctx, data, s.normOpts)
	if nErr != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("normalise upload: %w", nErr)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrUnsupportedAudio, nErr)
	}

	buf, err = audio.Decode(norm.WAV)
	if err != nil {
		return nil, nil, fmt.Errorf("decode normalised upload: %w", err)
	}
	if src := norm.SourceDurationSec; src > 0 && math.Abs(src-buf.DurationSeconds()) > durationDriftSec {
		s.logger.Warn("normalised duration differs from source",
			slog.Float64("source_seconds", src),
			slog.Float64("wav_seconds", buf.DurationSeconds()),
		)
	}
	return norm.WAV, buf, nil
}

// Transcribe returns the ordered transcript segments of an asset.
func (s *Service) Transcribe(ctx context.Context, assetID string) ([]transcript.Segment, error) {
	data, err := s.loadOriginal(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return s.segments(ctx, assetID, data)
}

// Trim removes every segment matching a requested phrase from the asset and
// stores the result as the asset's trimmed recording.
//
// The returned operation records how far the request got. On failure it is in
// FAILED state and err carries the cause; nothing is stored and any previous
// trimmed recording is left as it was.
func (s *Service) Trim(ctx context.Context, assetID string, phrases []string) (*Operation, error) {
	op := NewOperation(assetID, phrases)
	op.Matcher = s.matcher.Name()

	logger := s.logger.With(
		slog.String("op_id", op.ID),
		slog.String("asset_id", assetID),
	)
	logger.Info("trim requested", slog.Int("phrases", len(phrases)))

	if err := s.repo.Save(ctx, op); err != nil {
		return nil, fmt.Errorf("save operation: %w", err)
	}

	// VALIDATING
	if len(phrases) == 0 {
		return s.fail(ctx, logger, op, ErrNoPhrases)
	}
	data, err := s.loadOriginal(ctx, assetID)
	if err != nil {
		return s.fail(ctx, logger, op, err)
	}
	original, err := audio.Decode(data)
	if err != nil {
		return s.fail(ctx, logger, op, fmt.Errorf("decode original: %w", err))
	}
	op.SetOriginalDuration(original.DurationSeconds())

	// MATCHING
	if err := s.advance(ctx, op, StatusMatching); err != nil {
		return s.fail(ctx, logger, op, err)
	}
	segments, err := s.segments(ctx, assetID, data)
	if err != nil {
		return s.fail(ctx, logger, op, err)
	}
	result := transcript.Match(s.matcher, segments, phrases)
	if len(result.Missing) > 0 {
		return s.fail(ctx, logger, op, &MissingPhrasesError{Phrases: result.Missing, Strategy: s.matcher.Name()})
	}

	// BUILDING
	if err := s.advance(ctx, op, StatusBuilding); err != nil {
		return s.fail(ctx, logger, op, err)
	}
	intervals := audio.BuildIntervals(result.Segments())
	op.SetIntervals(intervals)
	if earlier, later, found := audio.FindOverlap(intervals); found {
		return s.fail(ctx, logger, op, &IntervalConflictError{Earlier: earlier, Later: later})
	}

	// SPLICING
	if err := s.advance(ctx, op, StatusSplicing); err != nil {
		return s.fail(ctx, logger, op, err)
	}
	start := time.Now()
	trimmed := audio.Splice(original, intervals)
	encoded, err := trimmed.Encode()
	if err != nil {
		return s.fail(ctx, logger, op, fmt.Errorf("encode trimmed audio: %w", err))
	}
	ref, err := s.store.Store(ctx, storage.TrimmedKey(assetID), encoded)
	if err != nil {
		return s.fail(ctx, logger, op, fmt.Errorf("store trimmed audio: %w", err))
	}

	if err := op.Complete(ref, trimmed.DurationSeconds()); err != nil {
		return s.fail(ctx, logger, op, err)
	}
	if err := s.repo.Save(ctx, op); err != nil {
		logger.Warn("failed to save completed operation", slog.String("error", err.Error()))
	}

	logger.Info("audio trimmed",
		slog.Int("segments_removed", len(intervals)),
		slog.Float64("removed_ms", audio.TotalMs(intervals)),
		slog.Float64("original_duration_sec", original.DurationSeconds()),
		slog.Float64("new_duration_sec", trimmed.DurationSeconds()),
		slog.Duration("splice_time", time.Since(start)),
	)
	return op.Clone(), nil
}

// Download returns the trimmed recording of an asset and its size in bytes.
func (s *Service) Download(ctx context.Context, assetID string) (io.ReadCloser, int64, error) {
	if !id.IsAssetID(assetID) {
		return nil, 0, fmt.Errorf("%w: %s", ErrTrimNotFound, assetID)
	}

	data, err := s.store.Load(ctx, storage.TrimmedKey(assetID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrTrimNotFound, assetID)
		}
		return nil, 0, fmt.Errorf("load trimmed audio: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Delete removes an asset's original and trimmed recordings and forgets its
// transcript. Operation records are kept.
func (s *Service) Delete(ctx context.Context, assetID string) error {
	if !id.IsAssetID(assetID) {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}

	exists, err := s.store.Exists(ctx, storage.OriginalKey(assetID))
	if err != nil {
		return fmt.Errorf("check asset: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}

	if err := s.store.Delete(ctx, storage.TrimmedKey(assetID)); err != nil {
		return fmt.Errorf("delete trimmed audio: %w", err)
	}
	if err := s.store.Delete(ctx, storage.OriginalKey(assetID)); err != nil {
		return fmt.Errorf("delete original audio: %w", err)
	}
	s.invalidate(assetID)

	s.logger.Info("asset deleted", slog.String("asset_id", assetID))
	return nil
}

// GetOperation returns the last recorded state of a trim operation.
func (s *Service) GetOperation(ctx context.Context, opID string) (*Operation, error) {
	op, err := s.repo.FindByID(ctx, opID)
	if err != nil {
		if errors.Is(err, ErrOperationNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, opID)
		}
		return nil, err
	}
	return op, nil
}

// ListOperations returns the trim operations run against an asset, oldest first.
func (s *Service) ListOperations(ctx context.Context, assetID string) ([]*Operation, error) {
	return s.repo.ListByAsset(ctx, assetID)
}

// loadOriginal fetches the uploaded recording of an asset.
func (s *Service) loadOriginal(ctx context.Context, assetID string) ([]byte, error) {
	if !id.IsAssetID(assetID) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}

	data, err := s.store.Load(ctx, storage.OriginalKey(assetID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
		}
		return nil, fmt.Errorf("load original audio: %w", err)
	}
	return data, nil
}

// segments returns the transcript of an asset whose bytes are already loaded.
func (s *Service) segments(ctx context.Context, assetID string, data []byte) ([]transcript.Segment, error) {
	load := func(ctx context.Context) ([]transcript.Segment, error) {
		start := time.Now()
		segments, err := s.engine.Transcribe(ctx, data, storage.OriginalKey(assetID))
		if err != nil {
			s.logger.Error("transcription failed",
				slog.String("asset_id", assetID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("transcribe: %w", err)
		}
		s.logger.Info("audio transcribed",
			slog.String("asset_id", assetID),
			slog.Int("segments", len(segments)),
			slog.Duration("took", time.Since(start)),
		)
		return segments, nil
	}

	if s.cache == nil {
		return load(ctx)
	}
	t, err := s.cache.Get(ctx, assetID, load)
	if err != nil {
		return nil, err
	}
	return t.Segments, nil
}

// advance moves op to the next state and records it.
func (s *Service) advance(ctx context.Context, op *Operation, status Status) error {
	if err := op.TransitionTo(status); err != nil {
		return fmt.Errorf("operation %s to %s: %w", op.ID, status, err)
	}
	if err := s.repo.Save(ctx, op); err != nil {
		return fmt.Errorf("save operation: %w", err)
	}
	return nil
}

// fail records err on op and returns both to the caller.
func (s *Service) fail(ctx context.Context, logger *slog.Logger, op *Operation, err error) (*Operation, error) {
	from := op.GetStatus()
	if fErr := op.Fail(err); fErr != nil {
		logger.Error("failed to mark operation failed", slog.String("error", fErr.Error()))
	}
	if sErr := s.repo.Save(ctx, op); sErr != nil {
		logger.Warn("failed to save failed operation", slog.String("error", sErr.Error()))
	}

	kind := Classify(err)
	level := slog.LevelWarn
	if kind == KindInternal {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "trim failed",
		slog.String("state", string(from)),
		slog.String("kind", kind.String()),
		slog.String("error", err.Error()),
	)
	return op.Clone(), err
}

func (s *Service) invalidate(assetID string) {
	if s.cache != nil {
		s.cache.Invalidate(assetID)
	}
}
