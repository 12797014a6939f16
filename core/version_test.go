//go:build unit
// +build unit

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetVersion(t *testing.T) {
	tests := []struct {
		name      string
		conf      *Conf
		buildFlag string
		want      string
	}{
		{
			name:      "build flag only",
			conf:      &Conf{},
			buildFlag: "v0.3.0",
			want:      "v0.3.0",
		},
		{
			name: "config only",
			conf: &Conf{Version: "v0.3.0"},
			want: "v0.3.0",
		},
		{
			name: "neither set",
			conf: &Conf{},
			want: NoVersion,
		},
		{
			name:      "build flag wins over config",
			conf:      &Conf{Version: "v0.3.0"},
			buildFlag: "v0.4.0",
			want:      "v0.4.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersion(tt.conf, tt.buildFlag)
			assert.Equal(t, tt.want, Version)
		})
	}
}
