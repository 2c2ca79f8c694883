// Package audio holds the in-memory clip type, WAV file IO, ffmpeg decoding
// and the real-time crossfade pipeline used by the preview stream.
package audio

import "time"

// Stream format used by the preview pipeline and the Opus/MP3 encoders.
const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Clip is a synthesized audio buffer. Samples are interleaved and normalized
// to [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of samples per channel.
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playing time of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Mono averages all channels into one.
func (c Clip) Mono() []float64 {
	n := c.Frames()
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	ch := c.Channels
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < ch; j++ {
			sum += float64(c.Samples[i*ch+j])
		}
		out[i] = sum / float64(ch)
	}
	return out
}

// FromInt16 builds a clip from interleaved int16 PCM.
func FromInt16(pcm []int16, sampleRate, channels int) Clip {
	s := make([]float32, len(pcm))
	for i, v := range pcm {
		s[i] = float32(v) / 32768
	}
	return Clip{Samples: s, SampleRate: sampleRate, Channels: channels}
}

// Track identifies a generated track for the pipeline.
type Track struct {
	UserID string
	Title  string
	Mood   string
	Path   string
}
