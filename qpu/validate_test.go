//go:build unit
// +build unit

package qpu

import (
	"strconv"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/qem-team/qem-engine/coreapp/circuit"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/stretchr/testify/assert"
)

var testDeviceSetting *DeviceSetting = &DeviceSetting{
	QASMSupport: NewQasmSupport(),
}

func TestCircuitValidate(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()
	maxQubits := s.GetDeviceInfo().MaxQubits
	assert.Equal(t, maxQubits, core.MockMaxQubits)

	tests := []struct {
		name          string
		qasm          string
		deviceSetting *DeviceSetting
		wantErrorMsg  string
	}{
		{
			name:          "not qasm statement",
			qasm:          "hoge",
			deviceSetting: testDeviceSetting,
			wantErrorMsg:  `line 1: statement does not end with ";"`,
		},
		{
			name:          "bad qubit declaration",
			qasm:          "qubit[3];",
			deviceSetting: testDeviceSetting,
			wantErrorMsg:  `line 1: invalid register name ""`,
		},
		{
			name:          "qubit declaration",
			qasm:          "qubit[3] a;",
			deviceSetting: testDeviceSetting,
			wantErrorMsg:  "",
		},
		{
			name:          "full size qubits",
			qasm:          "qubit[" + strconv.Itoa(maxQubits) + "] a;",
			deviceSetting: testDeviceSetting,
			wantErrorMsg:  "",
		},
		{
			name:          "too many qubits",
			qasm:          "qubit[" + strconv.Itoa(maxQubits+1) + "] a;",
			deviceSetting: testDeviceSetting,
			wantErrorMsg: "Too many quibits in your circuit. We only have " +
				strconv.Itoa(maxQubits) + " qubits.",
		},
		{
			name:          "gate call on undeclared register",
			qasm:          "h a[0];",
			deviceSetting: testDeviceSetting,
			wantErrorMsg:  "line 1: qubit a[0] is not declared",
		},
		{
			name:          "gate call",
			qasm:          "qubit[1] a;\nh a[0];",
			deviceSetting: testDeviceSetting,
			wantErrorMsg:  "",
		},
		{
			name: "allow and deny list",
			qasm: heredoc.Doc(`
				qubit[1] q;
				bit[1] c;
				c[0] = measure q[0];
			`),
			deviceSetting: &DeviceSetting{
				QASMSupport: &QASMSupport{
					AllowList: &QASMFilter{
						Enabled: true,
						Statements: []*circuit.QASMStatementType{
							{Name: "quantum_declaration"},
							{Name: "classical_declaration"},
							{Name: "assignment"},
						},
					},
					DenyList: &QASMFilter{
						Enabled: true,
						Statements: []*circuit.QASMStatementType{
							{Name: "assignment"},
						},
					},
				},
			},
			wantErrorMsg: "statement:AssignmentStatement is not supported",
		},
		{
			name: "statement outside allow list",
			qasm: "qubit[1] q;\nh q[0];",
			deviceSetting: &DeviceSetting{
				QASMSupport: &QASMSupport{
					AllowList: &QASMFilter{
						Enabled: true,
						Statements: []*circuit.QASMStatementType{
							{Name: "quantum_declaration"},
						},
					},
					DenyList: &QASMFilter{Enabled: false},
				},
			},
			wantErrorMsg: "statement:GateCallStatement is not supported",
		},
		{
			name: "gate on deny list",
			qasm: "qubit[1] q;\nh q[0];",
			deviceSetting: &DeviceSetting{
				QASMSupport: &QASMSupport{
					AllowList: &QASMFilter{Enabled: false},
					DenyList: &QASMFilter{
						Enabled: true,
						Gates: []*circuit.QASMGateType{
							{Name: "h"},
						},
					},
				},
			},
			wantErrorMsg: "gate:h is not supported",
		},
		{
			name: "gate outside allow list",
			qasm: "qubit[1] q;\nh q[0];",
			deviceSetting: &DeviceSetting{
				QASMSupport: &QASMSupport{
					AllowList: &QASMFilter{
						Enabled: true,
						Gates: []*circuit.QASMGateType{
							{Name: "rx"},
							{Name: "rz"},
							{Name: "cx"},
						},
					},
					DenyList: &QASMFilter{Enabled: false},
				},
			},
			wantErrorMsg: "gate:h is not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := circuitValidate(tt.qasm, tt.deviceSetting)
			if tt.wantErrorMsg == "" {
				assert.Nil(t, err)
			} else {
				assert.Equal(t, err.Error(), tt.wantErrorMsg)
			}
		})
	}
}

func TestCircuitValidateBellPair(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()

	testQASM, commonErr := common.GetAsset("bell_pair.qasm")
	assert.Nil(t, commonErr)
	assert.Nil(t, circuitValidate(testQASM, testDeviceSetting))
}

func TestCheckResource(t *testing.T) {
	tests := []struct {
		name         string
		qasm         string
		wantErrorMsg string
	}{
		{
			name: "valid qasm",
			qasm: heredoc.Doc(`
				OPENQASM 3;
				qubit[2] q;
				bit[2] c;
				h q[0];
				cx q[0], q[1];
				c[0] = measure q[0];
				c[1] = measure q[1];
			`),
			wantErrorMsg: "",
		},
		{
			name: "too many qubits",
			qasm: heredoc.Doc(`
				OPENQASM 3;
				qubit[3] q;
				bit[3] c;
				h q[0];
				cx q[0], q[1];
				c[0] = measure q[0];
				c[1] = measure q[1];
			`),
			wantErrorMsg: "Too many quibits in your circuit. We only have 2 qubits.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ir, irErr := circuit.ParseProgram(tt.qasm)
			assert.Nil(t, irErr)
			err := checkResource(ir, 2)
			if tt.wantErrorMsg == "" {
				assert.Nil(t, err)
			} else {
				assert.Equal(t, err.Error(), tt.wantErrorMsg)
			}
		})
	}
}
