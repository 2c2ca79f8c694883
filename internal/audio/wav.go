package audio

import (
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/satindergrewal/tailortune/internal/errors"
)

const pcmFormat = 1 // WAVE_FORMAT_PCM

// EncodeWAV writes c as 16-bit PCM. Samples outside [-1, 1] are clipped.
func EncodeWAV(w io.WriteSeeker, c Clip) error {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return errors.Validation("invalid clip format: %d Hz, %d channels", c.SampleRate, c.Channels)
	}

	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		v := math.Round(float64(s) * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		data[i] = int(v)
	}

	enc := wav.NewEncoder(w, c.SampleRate, BitDepth, c.Channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: c.Channels,
			SampleRate:  c.SampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, errors.CodeFileSystem, "encode wav")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, errors.CodeFileSystem, "finalize wav")
	}
	return nil
}

// WriteWAV creates or truncates path and writes c to it.
func WriteWAV(path string, c Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.FileSystem(err, "create %s", path)
	}
	if err := EncodeWAV(f, c); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.FileSystem(err, "close %s", path)
	}
	return nil
}

// DecodeWAV reads a PCM WAV stream into a normalized clip.
func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.Data("invalid WAV data")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, errors.Wrap(err, errors.CodeData, "read PCM data")
	}

	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = BitDepth
	}
	scale := float32(int64(1) << uint(depth-1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return Clip{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}

// ReadWAV opens path and decodes it.
func ReadWAV(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, errors.FileSystem(err, "open %s", path)
	}
	defer f.Close()
	return DecodeWAV(f)
}
