// Package spectrogram computes log-power mel spectrograms and renders them as
// images. It is used for visualization only.
//
// Default parameters:
//
//	FFTSize:  2048
//	HopSize:   512
//	NumMels:   128
//	TopDB:      80
package spectrogram

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Config controls the analysis.
type Config struct {
	FFTSize int     // window and FFT length in samples
	HopSize int     // distance between frame starts
	NumMels int     // mel bands
	TopDB   float64 // dynamic range kept below the loudest cell
}

// DefaultConfig matches the common music-analysis defaults.
func DefaultConfig() Config {
	return Config{FFTSize: 2048, HopSize: 512, NumMels: 128, TopDB: 80}
}

// Matrix is a mel spectrogram. Power[t][m] is frame t, mel band m.
type Matrix struct {
	Power      [][]float64
	SampleRate int
	HopSize    int
}

// Frames returns the number of time frames.
func (m *Matrix) Frames() int { return len(m.Power) }

// Bands returns the number of mel bands.
func (m *Matrix) Bands() int {
	if len(m.Power) == 0 {
		return 0
	}
	return len(m.Power[0])
}

// Analyzer holds the precomputed window, FFT plan and filterbank for one
// sample rate.
type Analyzer struct {
	cfg        Config
	sampleRate int
	window     []float64
	fft        *fourier.FFT
	melBank    *mat.Dense
}

// NewAnalyzer prepares an analyzer for audio at sampleRate.
func NewAnalyzer(cfg Config, sampleRate int) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		sampleRate: sampleRate,
		window:     periodicHann(cfg.FFTSize),
		fft:        fourier.NewFFT(cfg.FFTSize),
		melBank:    melFilterBank(cfg.NumMels, cfg.FFTSize, sampleRate, 0, float64(sampleRate)/2),
	}
}

// Mel computes the mel power spectrogram of mono samples. Frames are
// centered: the signal is zero-padded by half a window on both sides, so
// there are 1 + len(samples)/hop frames.
func (a *Analyzer) Mel(samples []float64) *Matrix {
	n := a.cfg.FFTSize
	hop := a.cfg.HopSize
	pad := n / 2

	numFrames := 1 + len(samples)/hop
	spec := mat.NewDense(numFrames, n/2+1, nil)

	buf := make([]float64, n)
	var coeffs []complex128

	for t := 0; t < numFrames; t++ {
		start := t*hop - pad
		for i := 0; i < n; i++ {
			j := start + i
			if j >= 0 && j < len(samples) {
				buf[i] = samples[j] * a.window[i]
			} else {
				buf[i] = 0
			}
		}

		coeffs = a.fft.Coefficients(coeffs, buf)
		row := spec.RawRowView(t)
		for k := range row {
			c := coeffs[k]
			row[k] = real(c)*real(c) + imag(c)*imag(c)
		}
	}

	// frames x bins times bins x mels
	var mel mat.Dense
	mel.Mul(spec, a.melBank.T())

	power := make([][]float64, numFrames)
	for t := range power {
		power[t] = mat.Row(nil, t, &mel)
	}

	return &Matrix{Power: power, SampleRate: a.sampleRate, HopSize: hop}
}

// amin keeps log10 away from zero.
const amin = 1e-10

// ToDB converts power to decibels relative to the loudest cell, in place.
// Every value ends up in [-topDB, 0].
func ToDB(m *Matrix, topDB float64) {
	ref := amin
	for _, row := range m.Power {
		for _, v := range row {
			if v > ref {
				ref = v
			}
		}
	}
	refDB := 10 * math.Log10(ref)
	for _, row := range m.Power {
		for i, v := range row {
			db := 10*math.Log10(math.Max(v, amin)) - refDB
			if db < -topDB {
				db = -topDB
			}
			row[i] = db
		}
	}
}

// Compute is NewAnalyzer + Mel + ToDB for one mono signal.
func Compute(samples []float64, sampleRate int, cfg Config) *Matrix {
	m := NewAnalyzer(cfg, sampleRate).Mel(samples)
	ToDB(m, cfg.TopDB)
	return m
}
