//go:build unit
// +build unit

package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAsset(t *testing.T) {
	qasm, err := GetAsset("bell_pair.qasm")
	assert.Nil(t, err)
	assert.Equal(t, "OPENQASM 3;\nqubit[2] q;\nbit[2] c;\n\nh q[0];\ncx q[0], q[1];\n\nc[0] = measure q[0];\nc[1] = measure q[1];", qasm)

	_, err = GetAsset("no_such_circuit.qasm")
	assert.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    string
		want    string
		wantErr string
	}{
		{
			name: "host and port",
			host: "fitter-server.example.com",
			port: "5021",
			want: "fitter-server.example.com:5021",
		},
		{
			name:    "invalid host",
			host:    "hogehoge^^^-server.com",
			port:    "23413",
			wantErr: "hogehoge^^^-server.com is an invalid host name",
		},
		{
			name:    "invalid port",
			host:    "hogehoge-server.com",
			port:    "-23413",
			wantErr: "-23413 is an invalid port number",
		},
		{
			name:    "port out of range",
			host:    "hogehoge-server.com",
			port:    "23413431243214",
			wantErr: "23413431243214 is not a port number within the allowed range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, err := ValidAddress(tt.host, tt.port)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.Equal(t, "", address)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.want, address)
		})
	}
}

func TestContainsStatementName(t *testing.T) {
	list := []string{"GateCallStatement", "reset_statement", "barrier"}
	for _, s := range []string{"gatecall", "GATE_CALL", "Reset", "barrier-statement"} {
		assert.True(t, ContainsStatementName(s, list), fmt.Sprintf("%s should match", s))
	}
	assert.False(t, ContainsStatementName("delay", list))
}
