//go:build unit
// +build unit

package circuit

import (
	"math"
	"testing"

	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/stretchr/testify/assert"
)

func nativeBellLike() Circuit {
	return Circuit{
		Qubits: 2,
		Gates: []Gate{
			{Name: "rx", Qubits: []int{0}, Param: math.Pi / 2},
			{Name: "rz", Qubits: []int{0}, Param: math.Pi / 4},
			{Name: "cx", Qubits: []int{0, 1}},
		},
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	orig := nativeBellLike()
	qasm := Write(orig)
	back, err := Parse(qasm)
	assert.Nil(t, err)
	assert.True(t, orig.Equal(back))
}

func TestWriteLayout(t *testing.T) {
	qasm := Write(Circuit{
		Qubits: 1,
		Gates:  []Gate{{Name: "rz", Qubits: []int{0}, Param: 0.5}},
	})
	expected := "OPENQASM 3;\n" +
		"qubit[1] q;\n" +
		"bit[1] c;\n" +
		"\n" +
		"rz(0.5) q[0];\n" +
		"\n" +
		"c[0] = measure q[0];\n"
	assert.Equal(t, expected, qasm)
}

func TestToCircuitRejectsForeignGate(t *testing.T) {
	testQASM, commonErr := common.GetAsset("bell_pair.qasm")
	assert.Nil(t, commonErr)
	ir, parseErr := ParseProgram(testQASM)
	assert.Nil(t, parseErr)

	_, err := ir.ToCircuit()
	assert.NotNil(t, err)
	assert.Equal(t, "gate \"h\" is outside the rx/rz/cx basis", err.Error())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		circ    Circuit
		max     int
		wantErr string
	}{
		{
			name: "valid circuit",
			circ: nativeBellLike(),
			max:  4,
		},
		{
			name:    "no qubits",
			circ:    Circuit{},
			max:     4,
			wantErr: "circuit has no qubits",
		},
		{
			name:    "too many qubits",
			circ:    Circuit{Qubits: 8},
			max:     4,
			wantErr: "circuit needs 8 qubits but only 4 are available",
		},
		{
			name: "foreign gate",
			circ: Circuit{
				Qubits: 1,
				Gates:  []Gate{{Name: "ccx", Qubits: []int{0}}},
			},
			max:     4,
			wantErr: "gate 0: \"ccx\" is outside the rx/rz/cx basis",
		},
		{
			name: "operand out of range",
			circ: Circuit{
				Qubits: 1,
				Gates:  []Gate{{Name: "rz", Qubits: []int{3}, Param: 1}},
			},
			max:     4,
			wantErr: "gate 0: qubit 3 is out of range for 1 qubit(s)",
		},
		{
			name: "cx on one qubit",
			circ: Circuit{
				Qubits: 2,
				Gates:  []Gate{{Name: "cx", Qubits: []int{1, 1}}},
			},
			max:     4,
			wantErr: "gate 0: cx control and target are the same qubit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.circ.Validate(tt.max)
			if tt.wantErr == "" {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}
		})
	}
}

func TestCliffordAngles(t *testing.T) {
	assert.True(t, IsCliffordAngle(0))
	assert.True(t, IsCliffordAngle(math.Pi/2))
	assert.True(t, IsCliffordAngle(-3*math.Pi/2))
	assert.True(t, IsCliffordAngle(2*math.Pi))
	assert.False(t, IsCliffordAngle(math.Pi/4))
	assert.False(t, IsCliffordAngle(1.0))

	assert.InDelta(t, 0.0, NearestCliffordAngle(0.2), 1e-12)
	assert.InDelta(t, math.Pi/2, NearestCliffordAngle(math.Pi/2-0.3), 1e-12)
	assert.InDelta(t, -math.Pi, NearestCliffordAngle(-math.Pi+0.1), 1e-12)
}

func TestRandomXZCircuitIsDeterministic(t *testing.T) {
	a := RandomXZCircuit(2, 3, 42)
	b := RandomXZCircuit(2, 3, 42)
	c := RandomXZCircuit(2, 3, 43)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestRandomXZCircuitShape(t *testing.T) {
	c := RandomXZCircuit(3, 4, 7)
	assert.Nil(t, c.Validate(10))
	assert.Equal(t, 3, c.Qubits)

	// one non-Clifford rz per qubit closes the circuit
	tail := c.Gates[len(c.Gates)-3:]
	for _, g := range tail {
		assert.Equal(t, "rz", g.Name)
		assert.False(t, IsCliffordAngle(g.Param))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := nativeBellLike()
	clone := orig.Clone()
	clone.Gates[0].Param = 99
	clone.Gates[2].Qubits[0] = 1

	assert.InDelta(t, math.Pi/2, orig.Gates[0].Param, 1e-12)
	assert.Equal(t, 0, orig.Gates[2].Qubits[0])
}
