package schedule

import (
	"math"
	"math/rand/v2"
	"time"
)

// SeededRand wraps math/rand/v2's generator so every stochastic stage
// (C2-C5) draws from the same reproducible stream when a job carries a
// nonzero seed (spec.md §8 "Output determinism under seed").
type SeededRand struct {
	r *rand.Rand
}

// NewSeededRand creates a generator seeded from seed. A seed of 0 derives
// a time-based seed instead, since 0 is not itself a meaningful seed value
// a caller would rely on for reproducibility.
func NewSeededRand(seed int64) *SeededRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s1 := uint64(seed)
	s2 := uint64(seed>>32) | 1
	return &SeededRand{r: rand.New(rand.NewPCG(s1, s2))}
}

// Float64 returns a uniform value in [0, 1).
func (s *SeededRand) Float64() float64 { return s.r.Float64() }

// IntN returns a uniform value in [0, n).
func (s *SeededRand) IntN(n int) int { return s.r.IntN(n) }

// Triangular samples a triangular distribution with the given min/mode/max.
func (s *SeededRand) Triangular(min, mode, max float64) float64 {
	if max <= min {
		return min
	}
	if mode < min {
		mode = min
	}
	if mode > max {
		mode = max
	}

	u := s.Float64()
	fc := (mode - min) / (max - min)
	if u < fc {
		return min + math.Sqrt(u*(max-min)*(mode-min))
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-mode))
}

// WeightedKey draws one key from weights proportional to its weight. keys
// must be pre-sorted by the caller so the draw is deterministic regardless
// of map iteration order.
func (s *SeededRand) WeightedKey(keys []string, weights []float64) string {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 || len(keys) == 0 {
		return ""
	}

	target := s.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return keys[i]
		}
	}
	return keys[len(keys)-1]
}
