// Package cdr implements Clifford data regression: near-Clifford training
// circuits are run on the noisy device and simulated exactly, the pairs of
// noisy and noiseless expectation values form a training set, and a model
// fitted on that set maps the noisy expectation value of the circuit of
// interest to its mitigated estimate.
package cdr

import (
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/core"
	"gonum.org/v1/gonum/floats"
)

// DictionaryToProbabilities normalizes a histogram of measurement counts into
// a distribution over every basis state of an nqubits register. The result
// holds exactly the 2^nqubits canonical zero-padded bitstring keys; states
// that never appeared carry probability 0. Keys may arrive as canonical
// bitstrings, shorter bare binary strings, or 0b-prefixed literals.
func DictionaryToProbabilities(counts core.Counts, nqubits int) (core.Probabilities, error) {
	if nqubits < 1 {
		return nil, fmt.Errorf("number of qubits must be at least 1, got %d", nqubits)
	}
	total := counts.Total()
	if total == 0 {
		return nil, core.ErrEmptyCounts
	}
	dim := 1 << nqubits
	acc := make([]uint64, dim)
	for key, count := range counts {
		index, err := core.ParseBasisKey(key, nqubits)
		if err != nil {
			return nil, fmt.Errorf("failed to read counts. Reason:%s", err)
		}
		acc[index] += uint64(count)
	}
	probs := make(core.Probabilities, dim)
	for i := 0; i < dim; i++ {
		probs[core.CanonicalKey(i, nqubits)] = float64(acc[i]) / float64(total)
	}
	return probs, nil
}

// CalculateObservable is the expectation value of a diagonal observable under
// one run result. A counts result is normalized first; a statevector result
// uses the exact amplitudes. The input is never modified.
func CalculateObservable(res core.RunResult, obs core.Observable) (float64, error) {
	if obs.Dim() == 0 {
		return 0, fmt.Errorf("observable is empty")
	}
	switch r := res.(type) {
	case core.CountsResult:
		probs, err := DictionaryToProbabilities(r.Counts, obs.Qubits())
		if err != nil {
			return 0, err
		}
		return expectationOfProbabilities(probs, obs), nil
	case core.StateResult:
		return expectationOfStatevector(r.Vector, obs)
	default:
		return 0, fmt.Errorf("unknown run result type %T", res)
	}
}

func expectationOfProbabilities(probs core.Probabilities, obs core.Observable) float64 {
	n := obs.Qubits()
	terms := make([]float64, obs.Dim())
	for i := range terms {
		terms[i] = probs[core.CanonicalKey(i, n)] * obs.Eigenvalue(i)
	}
	return floats.Sum(terms)
}

func expectationOfStatevector(sv core.Statevector, obs core.Observable) (float64, error) {
	if len(sv) != obs.Dim() {
		return 0, fmt.Errorf("statevector length %d does not match observable dimension %d",
			len(sv), obs.Dim())
	}
	terms := make([]float64, len(sv))
	for i, amp := range sv {
		p := real(amp)*real(amp) + imag(amp)*imag(amp)
		terms[i] = p * obs.Eigenvalue(i)
	}
	return floats.Sum(terms), nil
}

// ConstructTrainingData converts raw training-circuit results into the
// regression set. ideal holds one noiseless result per training circuit;
// noisy is indexed by noise level first, then by training circuit. The label
// of circuit i is its noiseless expectation value and its feature vector
// collects the noisy expectation values across all levels, so every feature
// vector has one entry per noise level.
func ConstructTrainingData(ideal []core.RunResult, noisy [][]core.RunResult, obs core.Observable) (labels []float64, features [][]float64, err error) {
	m := len(ideal)
	if m == 0 {
		return nil, nil, fmt.Errorf("no ideal results to build training data from")
	}
	k := len(noisy)
	if k == 0 {
		return nil, nil, fmt.Errorf("no noise levels to build training data from")
	}
	for level, results := range noisy {
		if len(results) != m {
			return nil, nil, fmt.Errorf("noise level %d holds %d results, want %d, one per training circuit",
				level, len(results), m)
		}
	}
	labels = make([]float64, m)
	for i, res := range ideal {
		v, cerr := CalculateObservable(res, obs)
		if cerr != nil {
			return nil, nil, fmt.Errorf("failed to convert the ideal result of training circuit %d. Reason:%s", i, cerr)
		}
		labels[i] = v
	}
	features = make([][]float64, m)
	for i := range features {
		features[i] = make([]float64, k)
	}
	for level, results := range noisy {
		for i, res := range results {
			v, cerr := CalculateObservable(res, obs)
			if cerr != nil {
				return nil, nil, fmt.Errorf("failed to convert the noisy result of training circuit %d at noise level %d. Reason:%s",
					i, level, cerr)
			}
			features[i][level] = v
		}
	}
	return labels, features, nil
}

// ConstructCircuitData is the feature vector of the circuit of interest: its
// noisy expectation value at every noise level, in level order.
func ConstructCircuitData(results []core.RunResult, obs core.Observable) ([]float64, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for the circuit of interest")
	}
	features := make([]float64, len(results))
	for level, res := range results {
		v, err := CalculateObservable(res, obs)
		if err != nil {
			return nil, fmt.Errorf("failed to convert the result at noise level %d. Reason:%s", level, err)
		}
		features[level] = v
	}
	return features, nil
}
