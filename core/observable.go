package core

import (
	"fmt"
	"math/bits"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// Observable is a diagonal observable on an n-qubit register. Only the
// diagonal is stored; the expectation value under a measured distribution is
// the probability-weighted sum of its entries. The dimension is always a
// power of two covering at least one qubit.
type Observable struct {
	diag *mat.VecDense
}

func NewDiagonalObservable(diag []float64) (Observable, error) {
	if err := validObservableDim(len(diag)); err != nil {
		return Observable{}, err
	}
	d := append([]float64(nil), diag...)
	return Observable{diag: mat.NewVecDense(len(d), d)}, nil
}

// NewObservableFromDense accepts a full matrix and rejects anything that is
// not square, not of power-of-two dimension, or carries nonzero entries off
// the diagonal. All violations are reported together.
func NewObservableFromDense(m mat.Matrix) (Observable, error) {
	r, c := m.Dims()
	var errs error
	if r != c {
		errs = multierr.Append(errs, fmt.Errorf("observable matrix is %dx%d, not square", r, c))
	}
	if err := validObservableDim(r); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return Observable{}, errs
	}
	diag := make([]float64, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i == j {
				diag[i] = m.At(i, j)
				continue
			}
			if m.At(i, j) != 0 {
				errs = multierr.Append(errs,
					fmt.Errorf("observable has nonzero off-diagonal entry at (%d,%d)", i, j))
			}
		}
	}
	if errs != nil {
		return Observable{}, errs
	}
	return Observable{diag: mat.NewVecDense(len(diag), diag)}, nil
}

func validObservableDim(d int) error {
	if d < 2 || bits.OnesCount(uint(d)) != 1 {
		return fmt.Errorf("observable dimension %d is not a power of two covering at least one qubit", d)
	}
	return nil
}

// PauliZ is the single-qubit observable diag(1, -1).
func PauliZ() Observable {
	return Observable{diag: mat.NewVecDense(2, []float64{1, -1})}
}

// Kron is the tensor product of two diagonal observables, itself diagonal.
func (o Observable) Kron(p Observable) Observable {
	od, pd := o.Dim(), p.Dim()
	diag := make([]float64, od*pd)
	for i := 0; i < od; i++ {
		for j := 0; j < pd; j++ {
			diag[i*pd+j] = o.diag.AtVec(i) * p.diag.AtVec(j)
		}
	}
	return Observable{diag: mat.NewVecDense(len(diag), diag)}
}

func (o Observable) Dim() int {
	if o.diag == nil {
		return 0
	}
	return o.diag.Len()
}

// Qubits is the register width the observable acts on.
func (o Observable) Qubits() int {
	return bits.TrailingZeros(uint(o.Dim()))
}

// Eigenvalue is the diagonal entry for one basis state.
func (o Observable) Eigenvalue(index int) float64 {
	return o.diag.AtVec(index)
}
