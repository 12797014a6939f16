package circuit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Gate is one native-basis gate: rx and rz take a single qubit and an angle,
// cx takes control then target. Training-circuit generation projects rz
// angles, so everything the mitigation pipeline touches stays in this basis.
type Gate struct {
	Name   string
	Qubits []int
	Param  float64
}

type Circuit struct {
	Qubits int
	Gates  []Gate
}

func (c Circuit) Validate(maxQubits int) error {
	if c.Qubits < 1 {
		return fmt.Errorf("circuit has no qubits")
	}
	if maxQubits > 0 && c.Qubits > maxQubits {
		return fmt.Errorf("circuit needs %d qubits but only %d are available", c.Qubits, maxQubits)
	}
	for i, g := range c.Gates {
		var operands int
		switch g.Name {
		case "rx", "rz":
			operands = 1
		case "cx":
			operands = 2
		default:
			return fmt.Errorf("gate %d: %q is outside the rx/rz/cx basis", i, g.Name)
		}
		if len(g.Qubits) != operands {
			return fmt.Errorf("gate %d: %s takes %d operand(s), got %d", i, g.Name, operands, len(g.Qubits))
		}
		for _, q := range g.Qubits {
			if q < 0 || q >= c.Qubits {
				return fmt.Errorf("gate %d: qubit %d is out of range for %d qubit(s)", i, q, c.Qubits)
			}
		}
		if g.Name == "cx" && g.Qubits[0] == g.Qubits[1] {
			return fmt.Errorf("gate %d: cx control and target are the same qubit", i)
		}
	}
	return nil
}

// CountRZ is the number of rz gates, Clifford or not.
func (c Circuit) CountRZ() int {
	n := 0
	for _, g := range c.Gates {
		if g.Name == "rz" {
			n++
		}
	}
	return n
}

func (c Circuit) Equal(o Circuit) bool {
	if c.Qubits != o.Qubits || len(c.Gates) != len(o.Gates) {
		return false
	}
	for i, g := range c.Gates {
		h := o.Gates[i]
		if g.Name != h.Name || g.Param != h.Param || len(g.Qubits) != len(h.Qubits) {
			return false
		}
		for j, q := range g.Qubits {
			if q != h.Qubits[j] {
				return false
			}
		}
	}
	return true
}

func (c Circuit) Clone() Circuit {
	gates := make([]Gate, len(c.Gates))
	for i, g := range c.Gates {
		gates[i] = Gate{
			Name:   g.Name,
			Qubits: append([]int(nil), g.Qubits...),
			Param:  g.Param,
		}
	}
	return Circuit{Qubits: c.Qubits, Gates: gates}
}

// Write emits the circuit as the OpenQASM 3 subset ParseProgram reads back:
// header, register declarations, gate calls, then a full-register measure.
func Write(c Circuit) string {
	var b strings.Builder
	b.WriteString("OPENQASM 3;\n")
	fmt.Fprintf(&b, "qubit[%d] q;\n", c.Qubits)
	fmt.Fprintf(&b, "bit[%d] c;\n", c.Qubits)
	b.WriteString("\n")
	for _, g := range c.Gates {
		switch g.Name {
		case "cx":
			fmt.Fprintf(&b, "cx q[%d], q[%d];\n", g.Qubits[0], g.Qubits[1])
		default:
			fmt.Fprintf(&b, "%s(%s) q[%d];\n", g.Name, formatAngle(g.Param), g.Qubits[0])
		}
	}
	b.WriteString("\n")
	for i := 0; i < c.Qubits; i++ {
		fmt.Fprintf(&b, "c[%d] = measure q[%d];\n", i, i)
	}
	return b.String()
}

func formatAngle(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Parse reads a native-basis circuit back from its text form. Programs with
// gates outside the rx/rz/cx basis parse as a ProgramIR but not as a Circuit.
func Parse(qasm string) (Circuit, error) {
	ir, err := ParseProgram(qasm)
	if err != nil {
		return Circuit{}, err
	}
	return ir.ToCircuit()
}

func (p *ProgramIR) ToCircuit() (Circuit, error) {
	if p.QubitCount < 1 {
		return Circuit{}, fmt.Errorf("program declares no qubits")
	}
	c := Circuit{Qubits: p.QubitCount}
	for _, g := range p.GateCalls() {
		var params, operands int
		switch g.GateName {
		case "rx", "rz":
			params, operands = 1, 1
		case "cx":
			params, operands = 0, 2
		default:
			return Circuit{}, fmt.Errorf("gate %q is outside the rx/rz/cx basis", g.GateName)
		}
		if len(g.Params) != params {
			return Circuit{}, fmt.Errorf("gate %s takes %d parameter(s), got %d",
				g.GateName, params, len(g.Params))
		}
		if len(g.Operands) != operands {
			return Circuit{}, fmt.Errorf("gate %s takes %d operand(s), got %d",
				g.GateName, operands, len(g.Operands))
		}
		gate := Gate{Name: g.GateName}
		for _, op := range g.Operands {
			gate.Qubits = append(gate.Qubits, p.QubitAbsNum[op])
		}
		if params == 1 {
			gate.Param = g.Params[0]
		}
		c.Gates = append(c.Gates, gate)
	}
	return c, nil
}

const cliffordAngleEps = 1e-9

// IsCliffordAngle reports whether an rz rotation by theta is a Clifford
// operation, i.e. theta is an integer multiple of pi/2.
func IsCliffordAngle(theta float64) bool {
	k := math.Round(theta / (math.Pi / 2))
	return math.Abs(theta-k*(math.Pi/2)) <= cliffordAngleEps
}

// NearestCliffordAngle is the multiple of pi/2 closest to theta.
func NearestCliffordAngle(theta float64) float64 {
	return math.Round(theta/(math.Pi/2)) * (math.Pi / 2)
}

// RandomXZCircuit builds a seeded random circuit: moments of rx/rz gates at
// Clifford angles with a cx between neighbors, closed by one non-Clifford rz
// per qubit so that training-circuit generation has something to project.
func RandomXZCircuit(qubits, moments int, seed int64) Circuit {
	r := rand.New(rand.NewSource(seed))
	c := Circuit{Qubits: qubits}
	for m := 0; m < moments; m++ {
		for q := 0; q < qubits; q++ {
			name := "rz"
			if r.Intn(2) == 0 {
				name = "rx"
			}
			c.Gates = append(c.Gates, Gate{
				Name:   name,
				Qubits: []int{q},
				Param:  float64(r.Intn(4)) * math.Pi / 2,
			})
		}
		if qubits >= 2 {
			t := r.Intn(qubits - 1)
			c.Gates = append(c.Gates, Gate{Name: "cx", Qubits: []int{t, t + 1}})
		}
	}
	for q := 0; q < qubits; q++ {
		c.Gates = append(c.Gates, Gate{
			Name:   "rz",
			Qubits: []int{q},
			Param:  (0.1 + 0.8*r.Float64()) * math.Pi / 2,
		})
	}
	return c
}
