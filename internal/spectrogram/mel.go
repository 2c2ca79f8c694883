package spectrogram

import (
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// periodicHann returns an n-point periodic Hann window: the first n points
// of the symmetric (n+1)-point window.
func periodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// hzToMel converts frequency in Hz to mel scale (HTK formula).
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts mel scale frequency back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds numMels triangular filters spanning lowFreq..highFreq
// as a numMels x (fftSize/2+1) matrix. Edges sit on fractional bin
// positions so narrow low-frequency filters do not collapse to zero.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) *mat.Dense {
	halfFFT := fftSize/2 + 1

	edges := floats.Span(make([]float64, numMels+2), hzToMel(lowFreq), hzToMel(highFreq))
	for i, m := range edges {
		edges[i] = melToHz(m) * float64(fftSize) / float64(sampleRate)
	}

	bank := mat.NewDense(numMels, halfFFT, nil)
	for m := 0; m < numMels; m++ {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		for k := 0; k < halfFFT; k++ {
			f := float64(k)
			switch {
			case f > left && f <= center && center > left:
				bank.Set(m, k, (f-left)/(center-left))
			case f > center && f < right && right > center:
				bank.Set(m, k, (right-f)/(right-center))
			}
		}
	}
	return bank
}
