package synth

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// ToneSampleRate matches MusicGen's output rate.
const ToneSampleRate = 32000

// Tone renders a short chord progression picked deterministically from the
// prompt. It needs no model and exists for dry runs and tests.
type Tone struct {
	opts Options
}

// NewTone returns the offline backend.
func NewTone(opts Options) *Tone {
	return &Tone{opts: opts}
}

// A minor pentatonic roots, Hz.
var toneRoots = []float64{110, 130.81, 146.83, 164.81, 196}

func (t *Tone) Synthesize(ctx context.Context, prompt string) (Clip, error) {
	if err := checkPrompt(prompt); err != nil {
		return Clip{}, err
	}
	if err := ctx.Err(); err != nil {
		return Clip{}, err
	}

	h := fnv.New64a()
	h.Write([]byte(prompt))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	n := int(t.opts.Duration().Seconds() * ToneSampleRate)
	if n <= 0 {
		n = ToneSampleRate
	}
	const chordLen = ToneSampleRate * 2
	samples := make([]float32, n)

	var chord [3]float64
	var noise float64
	for i := range samples {
		if i%chordLen == 0 {
			root := toneRoots[rng.Intn(len(toneRoots))]
			chord = [3]float64{root, root * 1.25, root * 1.5}
			if t.opts.DoSample {
				noise = 0.02 * rng.Float64()
			}
		}
		ts := float64(i) / ToneSampleRate
		pos := float64(i%chordLen) / chordLen
		env := math.Sin(math.Pi * pos)

		var v float64
		for _, f := range chord {
			v += math.Sin(2 * math.Pi * f * ts)
		}
		v = env * v / 4
		if noise > 0 {
			v += noise * math.Sin(2*math.Pi*float64(i%97)/97)
		}
		samples[i] = float32(v)
	}

	return Clip{Samples: samples, SampleRate: ToneSampleRate, Channels: 1}, nil
}
