//go:build unit
// +build unit

package transpiler

import (
	"testing"

	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/stretchr/testify/assert"
)

func TestIsAcceptableTranspilerLib(t *testing.T) {
	tr := &GatewayTranspiler{}
	assert.True(t, tr.IsAcceptableTranspilerLib("qiskit"))
	assert.False(t, tr.IsAcceptableTranspilerLib("tket"))
	assert.False(t, tr.IsAcceptableTranspilerLib(""))
}

func TestToVirtualPhysicalMapping(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRaw string
		wantVPM core.VirtualPhysicalMappingMap
		wantErr bool
	}{
		{
			name:    "Success",
			input:   `{"qubit_mapping": {"0": 1, "1": 0}, "bit_mapping": {}}`,
			wantRaw: `{"0":1,"1":0}`,
			wantVPM: core.VirtualPhysicalMappingMap{0: 1, 1: 0},
			wantErr: false,
		},
		{
			name:    "Empty input",
			input:   "",
			wantRaw: "",
			wantVPM: core.VirtualPhysicalMappingMap{},
			wantErr: false,
		},
		{
			name:    "Broken JSON",
			input:   `{"qubit_mapping": {`,
			wantErr: true,
		},
		{
			name:    "Non numeric virtual index",
			input:   `{"qubit_mapping": {"q0": 1}}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, vpm, err := toVirtualPhysicalMapping(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantRaw, string(raw))
			assert.Equal(t, tt.wantVPM, vpm)
		})
	}
}
