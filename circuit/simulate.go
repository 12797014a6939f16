package circuit

import (
	"math"
	"math/cmplx"
)

// Simulate propagates |0...0> through a native-basis circuit and returns the
// amplitudes in canonical basis order. Bit q of a basis-state index is the
// outcome of qubit q. The circuit must be valid; width is bounded by the
// caller, an n-qubit state takes 2^n amplitudes.
func Simulate(c Circuit) []complex128 {
	dim := 1 << c.Qubits
	sv := make([]complex128, dim)
	sv[0] = complex(1, 0)
	for _, g := range c.Gates {
		switch g.Name {
		case "rx":
			applyRX(sv, g.Qubits[0], g.Param)
		case "rz":
			applyRZ(sv, g.Qubits[0], g.Param)
		case "cx":
			applyCX(sv, g.Qubits[0], g.Qubits[1])
		}
	}
	return sv
}

func applyRX(sv []complex128, qubit int, theta float64) {
	bit := 1 << qubit
	cos := complex(math.Cos(theta/2), 0)
	isin := complex(0, math.Sin(theta/2))
	for i := range sv {
		if i&bit != 0 {
			continue
		}
		a0, a1 := sv[i], sv[i|bit]
		sv[i] = cos*a0 - isin*a1
		sv[i|bit] = -isin*a0 + cos*a1
	}
}

func applyRZ(sv []complex128, qubit int, theta float64) {
	bit := 1 << qubit
	phase0 := cmplx.Rect(1, -theta/2)
	phase1 := cmplx.Rect(1, theta/2)
	for i := range sv {
		if i&bit != 0 {
			sv[i] *= phase1
		} else {
			sv[i] *= phase0
		}
	}
}

func applyCX(sv []complex128, control, target int) {
	cbit := 1 << control
	tbit := 1 << target
	for i := range sv {
		if i&cbit != 0 && i&tbit == 0 {
			sv[i], sv[i|tbit] = sv[i|tbit], sv[i]
		}
	}
}

// MeasurementProbabilities squares the amplitudes into the exact outcome
// distribution.
func MeasurementProbabilities(sv []complex128) []float64 {
	probs := make([]float64, len(sv))
	for i, amp := range sv {
		probs[i] = real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	return probs
}
