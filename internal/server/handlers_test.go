package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sid-Veeravalli/trim-pro/internal/audio"
	"github.com/Sid-Veeravalli/trim-pro/internal/storage"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim"
)

// mockEngine implements transcribe.Engine for testing.
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Transcribe(ctx context.Context, data []byte, name string) ([]transcript.Segment, error) {
	args := m.Called(ctx, data, name)
	segments, _ := args.Get(0).([]transcript.Segment)
	return segments, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandlers(t *testing.T, opts ...HandlerOption) (*Handlers, *mockEngine) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	engine := &mockEngine{}
	svc := trim.NewService(store, engine, trim.WithLogger(testLogger()))
	return NewHandlers(svc, testLogger(), opts...), engine
}

// testWAV encodes a mono 16-bit recording at 1kHz.
func testWAV(t *testing.T, seconds float64) []byte {
	t.Helper()
	data := make([]int, int(seconds*1000))
	for i := range data {
		data[i] = i % 20000
	}
	buf, err := audio.NewBuffer(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 1000},
		Data:           data,
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	out, err := buf.Encode()
	require.NoError(t, err)
	return out
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func upload(t *testing.T, h *Handlers, seconds float64) string {
	t.Helper()
	body, contentType := multipartBody(t, "file", "talk.wav", testWAV(t, seconds))
	req := httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.FileID
}

func trimRequest(t *testing.T, h *Handlers, fileID string, phrases []string) *httptest.ResponseRecorder {
	t.Helper()
	bodyJSON, err := json.Marshal(TrimRequest{FileID: fileID, DeleteTexts: phrases})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/trim-audio", bytes.NewReader(bodyJSON))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.TrimAudio(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func scenarioSegments() []transcript.Segment {
	return []transcript.Segment{
		{Text: "hello world", Start: 1.0, End: 2.0},
		{Text: "um", Start: 2.0, End: 2.2},
		{Text: "goodbye", Start: 5.0, End: 5.5},
		{Text: "um", Start: 7.0, End: 7.3},
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestUploadAudio_Success(t *testing.T) {
	h, _ := newTestHandlers(t)

	body, contentType := multipartBody(t, "file", "talk.wav", testWAV(t, 2.5))
	req := httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "Audio file uploaded successfully.", resp.Message)
	assert.NotEmpty(t, resp.FileID)
	assert.InDelta(t, 2.5, resp.Duration, 0.001)
}

func TestUploadAudio_MissingFile(t *testing.T) {
	h, _ := newTestHandlers(t)

	body, contentType := multipartBody(t, "audio", "talk.wav", testWAV(t, 1))
	req := httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FILE", decodeError(t, rec).Code)
}

func TestUploadAudio_NotMultipart(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/upload-audio", bytes.NewReader([]byte("raw")))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FORM", decodeError(t, rec).Code)
}

func TestUploadAudio_EmptyFile(t *testing.T) {
	h, _ := newTestHandlers(t)

	body, contentType := multipartBody(t, "file", "empty.wav", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_FILE", decodeError(t, rec).Code)
}

func TestUploadAudio_UnsupportedFormat(t *testing.T) {
	h, _ := newTestHandlers(t)

	body, contentType := multipartBody(t, "file", "talk.mp3", []byte("ID3 definitely not a wav file"))
	req := httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_AUDIO", decodeError(t, rec).Code)
}

func TestUploadAudio_TooLarge(t *testing.T) {
	h, _ := newTestHandlers(t, WithMaxUploadBytes(1024))

	body, contentType := multipartBody(t, "file", "talk.wav", testWAV(t, 30))
	req := httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadAudio(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeError(t, rec).Code)
}

func TestTranscribeAudio_Success(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 8)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)

	req := httptest.NewRequest(http.MethodGet, "/transcribe-audio/"+fileID, nil)
	req.SetPathValue("file_id", fileID)
	rec := httptest.NewRecorder()

	h.TranscribeAudio(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp TranscriptionResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp.Transcription, 4)
	assert.Equal(t, SegmentResponse{Text: "hello world", Start: 1.0, End: 2.0}, resp.Transcription[0])
	assert.Equal(t, "um", resp.Transcription[3].Text)
	engine.AssertExpectations(t)
}

func TestTranscribeAudio_NotFound(t *testing.T) {
	h, engine := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/transcribe-audio/nonexistent", nil)
	req.SetPathValue("file_id", "nonexistent")
	rec := httptest.NewRecorder()

	h.TranscribeAudio(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, rec).Code)
	engine.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestTranscribeAudio_EngineFailure(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 1)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("engine down"))

	req := httptest.NewRequest(http.MethodGet, "/transcribe-audio/"+fileID, nil)
	req.SetPathValue("file_id", fileID)
	rec := httptest.NewRecorder()

	h.TranscribeAudio(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.NotContains(t, resp.Error, "engine down")
}

func TestTrimAudio_Success(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 10)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)

	rec := trimRequest(t, h, fileID, []string{"um"})

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TrimResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "Audio trimmed successfully.", resp.Message)
	assert.NotEmpty(t, resp.TrimID)
	assert.InDelta(t, 9.5, resp.NewDuration, 0.001)
	assert.Contains(t, resp.TrimmedAudioPath, storage.TrimmedKey(fileID))
}

func TestTrimAudio_InvalidJSON(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/trim-audio", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.TrimAudio(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_JSON", decodeError(t, rec).Code)
}

func TestTrimAudio_ValidationError_MissingFileID(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := trimRequest(t, h, "", []string{"um"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestTrimAudio_NoPhrases(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 3)

	rec := trimRequest(t, h, fileID, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_PHRASES", decodeError(t, rec).Code)
	engine.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestTrimAudio_PhrasesNotFound(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 10)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)

	rec := trimRequest(t, h, fileID, []string{"um", "uh", "hello"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "PHRASES_NOT_FOUND", resp.Code)
	assert.Equal(t, "Some phrases are not found as exact matches in the transcription.", resp.Error)
	assert.Equal(t, []string{"uh", "hello"}, resp.MissingPhrases)
}

func TestTrimAudio_FileNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := trimRequest(t, h, "4b0d2c1e-31a5-4f0c-9a6f-1b1c2d3e4f50", []string{"um"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, rec).Code)
}

func TestTrimAudio_IntervalConflict(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 5)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return([]transcript.Segment{
		{Text: "so", Start: 1.0, End: 2.0},
		{Text: "like", Start: 1.5, End: 2.5},
	}, nil)

	rec := trimRequest(t, h, fileID, []string{"so", "like"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INTERVAL_CONFLICT", decodeError(t, rec).Code)
}

func TestDownloadAudio_Success(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 10)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)
	require.Equal(t, http.StatusOK, trimRequest(t, h, fileID, []string{"goodbye"}).Code)

	req := httptest.NewRequest(http.MethodGet, "/download-audio/"+fileID, nil)
	req.SetPathValue("file_id", fileID)
	rec := httptest.NewRecorder()

	h.DownloadAudio(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+fileID+`_trimmed.wav"`, rec.Header().Get("Content-Disposition"))

	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, rec.Header().Get("Content-Length"), strconv.Itoa(len(data)))

	buf, err := audio.Decode(data)
	require.NoError(t, err)
	assert.InDelta(t, 9.5, buf.DurationSeconds(), 0.001)
}

func TestDownloadAudio_NeverTrimmed(t *testing.T) {
	h, _ := newTestHandlers(t)
	fileID := upload(t, h, 1)

	req := httptest.NewRequest(http.MethodGet, "/download-audio/"+fileID, nil)
	req.SetPathValue("file_id", fileID)
	rec := httptest.NewRecorder()

	h.DownloadAudio(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TRIMMED_FILE_NOT_FOUND", decodeError(t, rec).Code)
}

func TestGetTrim(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 10)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)

	var trimResp TrimResponse
	require.NoError(t, json.NewDecoder(trimRequest(t, h, fileID, []string{"um"}).Body).Decode(&trimResp))

	req := httptest.NewRequest(http.MethodGet, "/trims/"+trimResp.TrimID, nil)
	req.SetPathValue("id", trimResp.TrimID)
	rec := httptest.NewRecorder()

	h.GetTrim(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp OperationResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, trimResp.TrimID, resp.ID)
	assert.Equal(t, fileID, resp.FileID)
	assert.Equal(t, "DONE", resp.Status)
	assert.Equal(t, "exact", resp.Matcher)
	assert.Equal(t, []IntervalResponse{{StartMs: 2000, EndMs: 2200}, {StartMs: 7000, EndMs: 7300}}, resp.Intervals)
	assert.NotNil(t, resp.CompletedAt)
}

func TestGetTrim_NotFound(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/trims/trim-missing", nil)
	req.SetPathValue("id", "trim-missing")
	rec := httptest.NewRecorder()

	h.GetTrim(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TRIM_NOT_FOUND", decodeError(t, rec).Code)
}

func TestListTrims_IncludesFailures(t *testing.T) {
	h, engine := newTestHandlers(t)
	fileID := upload(t, h, 10)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)

	require.Equal(t, http.StatusOK, trimRequest(t, h, fileID, []string{"um"}).Code)
	require.Equal(t, http.StatusBadRequest, trimRequest(t, h, fileID, []string{"uh"}).Code)

	req := httptest.NewRequest(http.MethodGet, "/assets/"+fileID+"/trims", nil)
	req.SetPathValue("file_id", fileID)
	rec := httptest.NewRecorder()

	h.ListTrims(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp OperationListResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	require.Len(t, resp.Trims, 2)
	assert.Equal(t, "DONE", resp.Trims[0].Status)
	assert.Equal(t, "FAILED", resp.Trims[1].Status)
	assert.Equal(t, []string{"uh"}, resp.Trims[1].MissingPhrases)
}

func TestDeleteAsset(t *testing.T) {
	h, _ := newTestHandlers(t)
	fileID := upload(t, h, 1)

	req := httptest.NewRequest(http.MethodDelete, "/assets/"+fileID, nil)
	req.SetPathValue("file_id", fileID)
	rec := httptest.NewRecorder()

	h.DeleteAsset(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	t.Run("second delete is not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.DeleteAsset(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "FILE_NOT_FOUND", decodeError(t, rec).Code)
	})
}

func TestRouter_Integration(t *testing.T) {
	h, engine := newTestHandlers(t)
	engine.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(scenarioSegments(), nil)

	router := NewRouter(h, testLogger(), DefaultConfig())

	// Test health endpoint
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	// Upload
	body, contentType := multipartBody(t, "file", "talk.wav", testWAV(t, 10))
	req = httptest.NewRequest(http.MethodPost, "/upload-audio", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&uploadResp))

	// Transcribe
	req = httptest.NewRequest(http.MethodGet, "/transcribe-audio/"+uploadResp.FileID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Trim
	bodyJSON, _ := json.Marshal(TrimRequest{FileID: uploadResp.FileID, DeleteTexts: []string{"um"}})
	req = httptest.NewRequest(http.MethodPost, "/trim-audio", bytes.NewReader(bodyJSON))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var trimResp TrimResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&trimResp))

	// Download
	req = httptest.NewRequest(http.MethodGet, "/download-audio/"+uploadResp.FileID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))

	// Operation record
	req = httptest.NewRequest(http.MethodGet, "/trims/"+trimResp.TrimID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/assets/"+uploadResp.FileID+"/trims", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/assets/"+uploadResp.FileID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// No transcript cache is configured, so transcribe and trim each ran the engine.
	engine.AssertNumberOfCalls(t, "Transcribe", 2)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/trim-audio", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDMiddleware_EchoesClientID(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied", rec.Header().Get(RequestIDHeader))
}

func TestCORSMiddleware(t *testing.T) {
	h, _ := newTestHandlers(t)

	cfg := Config{AllowedOrigins: []string{"https://example.com"}}
	router := NewRouter(h, testLogger(), cfg)

	// Test with allowed origin
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	// Test with a foreign origin
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Test OPTIONS preflight
	req = httptest.NewRequest(http.MethodOptions, "/trim-audio", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	// Create a handler that panics
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := RecoveryMiddleware(testLogger())(panicHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
}
