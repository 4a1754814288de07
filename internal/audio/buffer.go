// Package audio provides the in-memory PCM buffer, the conversion of matched
// transcript segments into removal intervals, and the splicer that cuts
// those intervals out of a recording.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// WAV format tags accepted by Decode.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Static errors for buffer decoding and encoding.
var (
	// ErrNotWAV is returned when the input is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("audio: input is not a WAV file")
	// ErrUnsupportedEncoding is returned for WAV files that are not integer PCM.
	ErrUnsupportedEncoding = errors.New("audio: only integer PCM WAV is supported")
	// ErrInvalidFormat is returned when sample rate, channel count or bit depth is unusable.
	ErrInvalidFormat = errors.New("audio: invalid PCM format")
)

// Buffer is a finite, decoded PCM recording. Samples are interleaved frame
// by frame. A Buffer is never modified after construction.
type Buffer struct {
	pcm *goaudio.IntBuffer
}

// NewBuffer wraps an integer PCM buffer. The buffer is used as-is; callers
// must not modify it afterwards.
func NewBuffer(pcm *goaudio.IntBuffer) (*Buffer, error) {
	if pcm == nil || pcm.Format == nil {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidFormat)
	}
	if pcm.Format.SampleRate <= 0 || pcm.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: sample_rate=%d channels=%d",
			ErrInvalidFormat, pcm.Format.SampleRate, pcm.Format.NumChannels)
	}
	switch pcm.SourceBitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: bit_depth=%d", ErrInvalidFormat, pcm.SourceBitDepth)
	}
	if len(pcm.Data)%pcm.Format.NumChannels != 0 {
		return nil, fmt.Errorf("%w: %d samples do not fill %d-channel frames",
			ErrInvalidFormat, len(pcm.Data), pcm.Format.NumChannels)
	}
	return &Buffer{pcm: pcm}, nil
}

// Decode parses a PCM WAV file held in memory.
func Decode(data []byte) (*Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, dec.WavAudioFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: read PCM data: %w", err)
	}
	pcm.SourceBitDepth = int(dec.BitDepth)

	return NewBuffer(pcm)
}

// Encode writes the buffer as a PCM WAV file. Identical buffers always
// encode to identical bytes.
func (b *Buffer) Encode() ([]byte, error) {
	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, b.SampleRate(), b.BitDepth(), b.Channels(), wavFormatPCM)

	if err := enc.Write(b.pcm); err != nil {
		return nil, fmt.Errorf("audio: encode PCM data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("audio: finalize WAV header: %w", err)
	}

	out, err := io.ReadAll(ws.Reader())
	if err != nil {
		return nil, fmt.Errorf("audio: read encoded WAV: %w", err)
	}
	return out, nil
}

// SampleRate returns frames per second.
func (b *Buffer) SampleRate() int { return b.pcm.Format.SampleRate }

// Channels returns the number of interleaved channels.
func (b *Buffer) Channels() int { return b.pcm.Format.NumChannels }

// BitDepth returns the bits per sample of the source encoding.
func (b *Buffer) BitDepth() int { return b.pcm.SourceBitDepth }

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int { return len(b.pcm.Data) / b.Channels() }

// DurationMs returns the playback length in milliseconds.
func (b *Buffer) DurationMs() float64 {
	return float64(b.Frames()) * 1000 / float64(b.SampleRate())
}

// DurationSeconds returns the playback length in seconds.
func (b *Buffer) DurationSeconds() float64 {
	return float64(b.Frames()) / float64(b.SampleRate())
}

// frameAt maps a millisecond offset to the nearest frame boundary.
func (b *Buffer) frameAt(ms float64) int {
	return int(math.Round(ms * float64(b.SampleRate()) / 1000))
}

// withData returns a buffer sharing b's format with new sample data.
func (b *Buffer) withData(data []int) *Buffer {
	return &Buffer{pcm: &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: b.Channels(),
			SampleRate:  b.SampleRate(),
		},
		Data:           data,
		SourceBitDepth: b.BitDepth(),
	}}
}
