package audio

// Smoothstep returns 3t^2 - 2t^3 for t clamped to [0,1].
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// CrossfadeFrames blends an outgoing frame with an incoming frame at the given
// progress (0.0 = all outgoing, 1.0 = all incoming) along a smoothstep curve.
// Both frames must have the same length.
func CrossfadeFrames(outgoing, incoming []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	result := make([]int16, len(outgoing))
	for i := range outgoing {
		result[i] = clip16(float64(outgoing[i])*(1-gain) + float64(incoming[i])*gain)
	}
	return result
}

// ToInt16 converts a clip to interleaved int16 PCM.
func ToInt16(c Clip) []int16 {
	out := make([]int16, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = clip16(float64(s) * 32767)
	}
	return out
}

func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
