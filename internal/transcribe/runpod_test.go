package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sid-Veeravalli/trim-pro/internal/runpod"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
)

type mockRunPodClient struct {
	mock.Mock
}

func (m *mockRunPodClient) Submit(ctx context.Context, audioB64 string, opts runpod.SubmitOptions) (string, error) {
	args := m.Called(ctx, audioB64, opts)
	return args.String(0), args.Error(1)
}

func (m *mockRunPodClient) Poll(ctx context.Context, jobID string) (runpod.PollResult, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(runpod.PollResult), args.Error(1)
}

func newTestRunPodEngine(client runpod.Client) *RunPodEngine {
	return NewRunPodEngine(client, WithPollInterval(time.Millisecond), WithMaxWait(time.Second))
}

func TestRunPodEngine_Transcribe(t *testing.T) {
	client := &mockRunPodClient{}
	engine := newTestRunPodEngine(client)
	audio := []byte("RIFF-audio")

	client.On("Submit", mock.Anything, base64.StdEncoding.EncodeToString(audio), runpod.DefaultSubmitOptions()).
		Return("job-1", nil)
	client.On("Poll", mock.Anything, "job-1").
		Return(runpod.PollResult{Status: runpod.StatusInQueue}, nil).Once()
	client.On("Poll", mock.Anything, "job-1").
		Return(runpod.PollResult{Status: runpod.StatusInProgress}, nil).Once()
	client.On("Poll", mock.Anything, "job-1").
		Return(runpod.PollResult{
			Status: runpod.StatusCompleted,
			Segments: []runpod.Segment{
				{ID: 0, Start: 0, End: 1, Text: " hello"},
				{ID: 1, Start: 1, End: 1.4, Text: " um "},
			},
		}, nil).Once()

	segments, err := engine.Transcribe(context.Background(), audio, "a.wav")
	require.NoError(t, err)
	assert.Equal(t, []transcript.Segment{
		{Text: " hello", Start: 0, End: 1},
		{Text: " um ", Start: 1, End: 1.4},
	}, segments)
	client.AssertNumberOfCalls(t, "Poll", 3)
}

func TestRunPodEngine_CustomSubmitOptions(t *testing.T) {
	client := &mockRunPodClient{}
	opts := runpod.SubmitOptions{Model: "large-v3", Language: "en", WordTimestamps: true}
	engine := NewRunPodEngine(client, WithSubmitOptions(opts), WithPollInterval(time.Millisecond))

	client.On("Submit", mock.Anything, mock.Anything, opts).Return("job-2", nil)
	client.On("Poll", mock.Anything, "job-2").Return(runpod.PollResult{Status: runpod.StatusCompleted}, nil)

	segments, err := engine.Transcribe(context.Background(), []byte("x"), "a.wav")
	require.NoError(t, err)
	assert.Empty(t, segments)
	client.AssertExpectations(t)
}

func TestRunPodEngine_JobFailed(t *testing.T) {
	client := &mockRunPodClient{}
	engine := newTestRunPodEngine(client)

	client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return("job-3", nil)
	client.On("Poll", mock.Anything, "job-3").
		Return(runpod.PollResult{Status: runpod.StatusFailed, Error: "CUDA out of memory"}, nil)

	_, err := engine.Transcribe(context.Background(), []byte("x"), "a.wav")
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "CUDA out of memory")
}

func TestRunPodEngine_WorkerTimedOut(t *testing.T) {
	client := &mockRunPodClient{}
	engine := newTestRunPodEngine(client)

	client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return("job-4", nil)
	client.On("Poll", mock.Anything, "job-4").Return(runpod.PollResult{Status: runpod.StatusTimedOut}, nil)

	_, err := engine.Transcribe(context.Background(), []byte("x"), "a.wav")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRunPodEngine_MaxWaitExceeded(t *testing.T) {
	client := &mockRunPodClient{}
	engine := NewRunPodEngine(client, WithPollInterval(time.Millisecond), WithMaxWait(20*time.Millisecond))

	client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return("job-5", nil)
	client.On("Poll", mock.Anything, "job-5").Return(runpod.PollResult{Status: runpod.StatusRunning}, nil)

	_, err := engine.Transcribe(context.Background(), []byte("x"), "a.wav")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRunPodEngine_SubmitErrorsClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", runpod.ErrRateLimited, ErrRateLimit},
		{"server error", runpod.ErrServerError, ErrServerError},
		{"unauthorized", runpod.ErrUnauthorized, ErrAuthFailed},
		{"rejected", runpod.ErrSubmitFailed, ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockRunPodClient{}
			engine := newTestRunPodEngine(client)
			client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return("", tt.err)

			_, err := engine.Transcribe(context.Background(), []byte("x"), "a.wav")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)
			client.AssertNotCalled(t, "Poll", mock.Anything, mock.Anything)
		})
	}
}

func TestRunPodEngine_PollError(t *testing.T) {
	client := &mockRunPodClient{}
	engine := newTestRunPodEngine(client)

	client.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return("job-6", nil)
	client.On("Poll", mock.Anything, "job-6").Return(runpod.PollResult{}, errors.New("connection reset"))

	_, err := engine.Transcribe(context.Background(), []byte("x"), "a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job-6")
}

func TestRunPodEngine_EmptyAudio(t *testing.T) {
	engine := newTestRunPodEngine(&mockRunPodClient{})

	_, err := engine.Transcribe(context.Background(), nil, "a.wav")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}
