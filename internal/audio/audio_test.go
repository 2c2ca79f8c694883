package audio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/tailortune/internal/errors"
)

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	assert.Equal(t, FrameSize, SampleRate*int(FrameDuration/time.Millisecond)/1000)
	assert.Equal(t, FrameSize*Channels, FrameSamples)
	assert.Equal(t, FrameSamples*2, FrameBytes)
}

func TestSmoothstep(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Smoothstep(tt.input), "Smoothstep(%v)", tt.input)
	}

	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := Smoothstep(float64(i) / 100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}

	// Symmetric around 0.5
	for _, d := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		assert.InDelta(t, 1.0, Smoothstep(0.5+d)+Smoothstep(0.5-d), 1e-10)
	}
}

func TestCrossfadeFrames(t *testing.T) {
	out := []int16{1000, -1000, 500, -500}
	in := []int16{2000, -2000, 1500, -1500}
	assert.Equal(t, out, CrossfadeFrames(out, in, 0))
	assert.Equal(t, in, CrossfadeFrames(out, in, 1))
	assert.Equal(t, []int16{1500, -1500, 1000, -1000}, CrossfadeFrames(out, in, 0.5))

	loud := []int16{32767, -32768}
	assert.Equal(t, loud, CrossfadeFrames(loud, loud, 0.5))
}

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	require.Len(t, buf, len(samples)*2)
	// 256 = 0x0100, little endian
	assert.Equal(t, []byte{0x00, 0x01}, buf[10:12])
	assert.Equal(t, []byte{0xff, 0xff}, buf[4:6])
}

func TestClipHelpers(t *testing.T) {
	c := Clip{
		Samples:    []float32{0.5, -0.5, 1, 0, 0.25, 0.75},
		SampleRate: 3,
		Channels:   2,
	}
	assert.Equal(t, 3, c.Frames())
	assert.Equal(t, time.Second, c.Duration())
	assert.Equal(t, []float64{0, 0.5, 0.5}, c.Mono())

	assert.Equal(t, 0, Clip{}.Frames())
	assert.Equal(t, time.Duration(0), Clip{}.Duration())

	back := FromInt16([]int16{16384, -32768}, 8000, 1)
	assert.Equal(t, []float32{0.5, -1}, back.Samples)
	assert.Equal(t, []int16{32767, -32767, 0}, ToInt16(Clip{Samples: []float32{2, -1, 0}}))
}

func TestWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "music.wav")
	in := Clip{
		Samples:    []float32{0, 0.5, -0.5, 0.25, -1, 1},
		SampleRate: 32000,
		Channels:   1,
	}
	require.NoError(t, WriteWAV(path, in))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 32000, got.SampleRate)
	assert.Equal(t, 1, got.Channels)
	require.Len(t, got.Samples, len(in.Samples))
	for i := range in.Samples {
		assert.InDelta(t, in.Samples[i], got.Samples[i], 1.0/16384)
	}

	// Writing again overwrites in place.
	require.NoError(t, WriteWAV(path, Clip{Samples: []float32{0.1}, SampleRate: 16000, Channels: 1}))
	got, err = ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 16000, got.SampleRate)
	assert.Len(t, got.Samples, 1)
}

func TestWriteWAVRejectsBadFormat(t *testing.T) {
	err := WriteWAV(filepath.Join(t.TempDir(), "x.wav"), Clip{Samples: []float32{0}})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestReadWAVMissing(t *testing.T) {
	_, err := ReadWAV(filepath.Join(t.TempDir(), "nope.wav"))
	assert.True(t, errors.Is(err, errors.ErrFileSystem))
}

// --- Pipeline ---

func TestPipelineInitialState(t *testing.T) {
	p := NewPipeline(8*time.Second, nil)
	assert.Equal(t, 8*time.Second, p.fade)
	assert.Equal(t, 0, p.QueueSize())

	track, pos, dur := p.Status()
	assert.Equal(t, Track{}, track)
	assert.Zero(t, pos)
	assert.Zero(t, dur)

	// Skip never blocks, even twice in a row.
	p.Skip()
	p.Skip()
}

func TestPipelineCrossfadeFrames(t *testing.T) {
	p := NewPipeline(1500*time.Millisecond, nil)
	assert.Equal(t, 75, p.crossfadeFrames(1000))
	assert.Equal(t, 10, p.crossfadeFrames(20))
}

func TestPipelinePlaysEnqueuedTrack(t *testing.T) {
	const frames = 3
	decode := func(ctx context.Context, path string) ([]int16, error) {
		pcm := make([]int16, frames*FrameSamples)
		for i := range pcm {
			pcm[i] = 7
		}
		return pcm, nil
	}
	p := NewPipelineWithDecoder(0, decode, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go p.Run(ctx)

	require.NoError(t, p.Enqueue(ctx, Track{UserID: "1", Path: "a.wav"}))

	for i := 0; i < frames; i++ {
		select {
		case f := <-p.Frames():
			require.Len(t, f, FrameSamples)
			assert.Equal(t, int16(7), f[0])
		case <-ctx.Done():
			t.Fatal("timed out waiting for frame")
		}
	}

	track, _, dur := p.Status()
	assert.Equal(t, "1", track.UserID)
	assert.Equal(t, frames*FrameDuration, dur)
}

// constDecoder returns frames frames of PCM filled with the value mapped to
// the path.
func constDecoder(frames int, values map[string]int16) DecodeFunc {
	return func(ctx context.Context, path string) ([]int16, error) {
		pcm := make([]int16, frames*FrameSamples)
		for i := range pcm {
			pcm[i] = values[path]
		}
		return pcm, nil
	}
}

func nextFrame(t *testing.T, ctx context.Context, p *Pipeline) []int16 {
	t.Helper()
	select {
	case f := <-p.Frames():
		return f
	case <-ctx.Done():
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestPipelineCrossfadesIntoNextTrack(t *testing.T) {
	decode := constDecoder(4, map[string]int16{"a.wav": 1000, "b.wav": 3000})
	p := NewPipelineWithDecoder(2*FrameDuration, decode, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Enqueue(ctx, Track{UserID: "a", Path: "a.wav"}))
	require.NoError(t, p.Enqueue(ctx, Track{UserID: "b", Path: "b.wav"}))
	go p.Run(ctx)

	// 4 + 4 frames with a 2 frame overlap.
	var got []int16
	for i := 0; i < 6; i++ {
		got = append(got, nextFrame(t, ctx, p)[0])
	}
	assert.Equal(t, int16(1000), got[0])
	assert.Equal(t, int16(1000), got[1])
	assert.Equal(t, int16(3000), got[4])
	assert.Equal(t, int16(3000), got[5])

	track, _, _ := p.Status()
	assert.Equal(t, "b", track.UserID)
}

func TestPipelineSkip(t *testing.T) {
	decode := constDecoder(500, map[string]int16{"long.wav": 1000, "next.wav": 3000})
	p := NewPipelineWithDecoder(0, decode, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Enqueue(ctx, Track{UserID: "long", Path: "long.wav"}))
	require.NoError(t, p.Enqueue(ctx, Track{UserID: "next", Path: "next.wav"}))
	go p.Run(ctx)

	assert.Equal(t, int16(1000), nextFrame(t, ctx, p)[0])
	p.Skip()

	for {
		if nextFrame(t, ctx, p)[0] == 3000 {
			break
		}
	}
	track, _, _ := p.Status()
	assert.Equal(t, "next", track.UserID)
}
