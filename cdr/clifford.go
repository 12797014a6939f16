package cdr

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/qem-team/qem-engine/coreapp/circuit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	SELECT_UNIFORM  = "uniform"
	SELECT_GAUSSIAN = "gaussian"

	// Width of the gaussian selection weight over the angular distance to
	// the nearest Clifford angle.
	gaussianSigma = 0.5
)

// GenerateTrainingCircuits builds num near-Clifford copies of c. Each copy
// projects the non-Clifford rz angles to the nearest multiple of pi/2 except
// for a kept share of fraction, chosen per copy, so the copies stay close to
// c while remaining cheap to simulate exactly. The uniform method keeps a
// random subset; the gaussian method prefers angles already close to a
// Clifford angle. A fixed seed fixes the whole batch.
func GenerateTrainingCircuits(c circuit.Circuit, num int, fraction float64, method string, seed int64) ([]circuit.Circuit, error) {
	if num < 1 {
		return nil, fmt.Errorf("number of training circuits must be at least 1, got %d", num)
	}
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("non-Clifford fraction must be in [0, 1], got %g", fraction)
	}
	if method != SELECT_UNIFORM && method != SELECT_GAUSSIAN {
		return nil, fmt.Errorf("unknown selection method %q", method)
	}
	candidates := nonCliffordIndices(c)
	keep := int(math.Round(fraction * float64(len(candidates))))
	rng := rand.New(rand.NewSource(seed))
	out := make([]circuit.Circuit, 0, num)
	for i := 0; i < num; i++ {
		kept, err := selectKept(c, candidates, keep, method, rng)
		if err != nil {
			return nil, err
		}
		out = append(out, projectToClifford(c, candidates, kept))
	}
	return out, nil
}

func nonCliffordIndices(c circuit.Circuit) []int {
	indices := []int{}
	for i, g := range c.Gates {
		if g.Name == "rz" && !circuit.IsCliffordAngle(g.Param) {
			indices = append(indices, i)
		}
	}
	return indices
}

func selectKept(c circuit.Circuit, candidates []int, keep int, method string, rng *rand.Rand) (map[int]bool, error) {
	kept := make(map[int]bool, keep)
	if keep == 0 || len(candidates) == 0 {
		return kept, nil
	}
	switch method {
	case SELECT_UNIFORM:
		for _, i := range rng.Perm(len(candidates))[:keep] {
			kept[candidates[i]] = true
		}
	case SELECT_GAUSSIAN:
		dist := distuv.Normal{Mu: 0, Sigma: gaussianSigma}
		weights := make([]float64, len(candidates))
		for i, gi := range candidates {
			delta := circuit.NearestCliffordAngle(c.Gates[gi].Param) - c.Gates[gi].Param
			weights[i] = dist.Prob(delta)
		}
		chosen, err := weightedChoice(weights, keep, rng)
		if err != nil {
			return nil, err
		}
		for _, i := range chosen {
			kept[candidates[i]] = true
		}
	}
	return kept, nil
}

// weightedChoice draws count distinct indices, each round proportional to the
// remaining weights via the cumulative sum.
func weightedChoice(weights []float64, count int, rng *rand.Rand) ([]int, error) {
	remaining := append([]float64(nil), weights...)
	chosen := make([]int, 0, count)
	for len(chosen) < count {
		total := floats.Sum(remaining)
		if total <= 0 {
			return nil, fmt.Errorf("selection weights sum to zero")
		}
		r := rng.Float64() * total
		pick := -1
		acc := 0.0
		for i, w := range remaining {
			if w == 0 {
				continue
			}
			acc += w
			if r < acc {
				pick = i
				break
			}
		}
		if pick < 0 {
			// r passed the last positive weight by rounding.
			for i := len(remaining) - 1; i >= 0; i-- {
				if remaining[i] > 0 {
					pick = i
					break
				}
			}
		}
		chosen = append(chosen, pick)
		remaining[pick] = 0
	}
	return chosen, nil
}

func projectToClifford(c circuit.Circuit, candidates []int, kept map[int]bool) circuit.Circuit {
	out := c.Clone()
	for _, gi := range candidates {
		if kept[gi] {
			continue
		}
		out.Gates[gi].Param = circuit.NearestCliffordAngle(out.Gates[gi].Param)
	}
	return out
}
