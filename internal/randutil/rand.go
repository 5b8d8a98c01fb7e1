// Package randutil provides reproducible random sources for generating test
// models.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand whose two PCG seeds are derived from seed, so the
// same seed always yields the same sequence.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+goldenRatio64)))
}

func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Distribution draws n strictly positive weights that sum to one. floor keeps
// every weight away from zero.
func Distribution(r *rand.Rand, n int, floor float64) []float64 {
	if n <= 0 {
		return nil
	}
	weights := make([]float64, n)
	var total float64
	for i := range weights {
		weights[i] = floor + r.Float64()
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}
