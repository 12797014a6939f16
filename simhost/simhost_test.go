//go:build unit
// +build unit

package simhost

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/volume"
	gomock "github.com/golang/mock/gomock"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/qem-team/qem-engine/coreapp/core"
	simhostconf "github.com/qem-team/qem-engine/coreapp/simhost/conf"
	"github.com/stretchr/testify/assert"
)

func stateTarData(contents []byte) io.Reader {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	tw.WriteHeader(&tar.Header{
		Name: "state.json",
		Mode: 0644,
		Size: int64(len(contents)),
	})
	tw.Write(contents)
	tw.Close()
	return bytes.NewReader(buf.Bytes())
}

func emptyTarData() io.Reader {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	tw.Close()
	return bytes.NewReader(buf.Bytes())
}

func Test_containerRun_setup(t *testing.T) {
	type args struct {
		name    string
		envVars []string
		image   string
	}
	tests := []struct {
		name string
		args args
	}{
		{
			name: "Succeed setup",
			args: args{
				name:    "testContainer",
				envVars: []string{"IN_PATH=/simhost/in", "OUT_PATH=/simhost/out"},
				image:   "testImage",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &containerRun{}
			r.setup(nil, nil, tt.args.name, tt.args.envVars, tt.args.image)
			assert.Equal(t, tt.args.name, r.name)
			assert.Equal(t, tt.args.image, r.config.Image)
			assert.Equal(t, tt.args.envVars, r.config.Env)
			assert.True(t, r.config.AttachStdout)
			assert.True(t, r.config.AttachStderr)
		})
	}
}

func TestHostedSimulator_State(t *testing.T) {
	type fields struct {
		client       ContainerAPI
		volumeClient VolumeAPI
		conf         *simhostconf.SimHostConf
	}
	tests := []struct {
		name      string
		fields    fields
		qasm      string
		want      core.Statevector
		assertion assert.ErrorAssertionFunc
	}{
		{
			name:   "Not set up",
			fields: fields{},
			qasm:   "OPENQASM 3;",
			want:   nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "hosted simulator is not set up")
			},
		},
		{
			name: "Success",
			fields: fields{
				client: func() ContainerAPI {
					mockCtrl := gomock.NewController(t)
					// TODO decide whether to defer mockCtrl.Finish()
					//defer mockCtrl.Finish()
					mock := NewMockContainerAPI(mockCtrl)
					mock.EXPECT().ContainerCreate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
						Return(container.CreateResponse{ID: "ABCD1234"}, nil)
					mock.EXPECT().ContainerStart(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(nil)
					mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(types.IDResponse{}, nil).Times(2)
					mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(types.HijackedResponse{
							Reader: bufio.NewReader(strings.NewReader("test log stdout\n")),
						}, nil).Times(2)
					mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
						Return(types.ContainerExecInspect{ExitCode: 0}, nil).Times(2)
					mock.EXPECT().CopyToContainer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
						Return(nil)
					mock.EXPECT().CopyFromContainer(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(io.NopCloser(stateTarData([]byte(`{"amplitudes":[[0.7071,0],[0,0.7071]]}`))), types.ContainerPathStat{}, nil)
					mock.EXPECT().ContainerLogs(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(io.NopCloser(strings.NewReader("simulator log")), nil)
					mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
						Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
							State: &types.ContainerState{Status: "exited"},
						}}, nil).Times(2)
					mock.EXPECT().ContainerStop(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(nil)
					mock.EXPECT().ContainerRemove(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(nil)
					return mock
				}(),
				volumeClient: func() VolumeAPI {
					mockCtrl := gomock.NewController(t)
					// TODO decide whether to defer mockCtrl.Finish()
					//defer mockCtrl.Finish()
					mock := NewMockVolumeAPI(mockCtrl)
					mock.EXPECT().VolumeCreate(gomock.Any(), gomock.Any()).
						Return(volume.Volume{Name: "simhost-test-vol"}, nil)
					mock.EXPECT().VolumeRemove(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(nil)
					return mock
				}(),
				conf: &simhostconf.SimHostConf{
					ContainerImage:     "testImage",
					ContainerPathIn:    "/simhost/in",
					ContainerPathOut:   "/simhost/out",
					ContainerMemory:    1073741824,
					ContainerCPUSet:    "0",
					ContainerDiskQuota: 314572800,
					SimulatorCommand:   "/app/simulator",
					CircuitFileName:    "circuit.qasm",
					ResultFileName:     "state.json",
					Timeout:            15,
				},
			},
			qasm: "OPENQASM 3;\nqubit[1] q;\nh q[0];",
			want: core.Statevector{complex(0.7071, 0), complex(0, 0.7071)},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &HostedSimulator{
				client:       tt.fields.client,
				volumeClient: tt.fields.volumeClient,
				conf:         tt.fields.conf,
			}
			got, err := s.State(tt.qasm)
			tt.assertion(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_containerPlatform(t *testing.T) {
	type args struct {
		pin string
	}
	tests := []struct {
		name      string
		args      args
		want      *ocispec.Platform
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "empty pin",
			args: args{pin: ""},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "os and arch",
			args: args{pin: "linux/amd64"},
			want: &ocispec.Platform{OS: "linux", Architecture: "amd64"},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "missing arch",
			args: args{pin: "linux"},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, `invalid platform "linux", want os/arch`)
			},
		},
		{
			name: "missing os",
			args: args{pin: "/amd64"},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, `invalid platform "/amd64", want os/arch`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := containerPlatform(tt.args.pin)
			tt.assertion(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_startContainer(t *testing.T) {
	type args struct {
		run      *containerRun
		hostConf *simhostconf.SimHostConf
	}
	tests := []struct {
		name            string
		args            args
		wantContainerID string
		assertion       assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerCreate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
							Return(container.CreateResponse{ID: "ABCD1234"}, nil)
						mock.EXPECT().ContainerStart(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerMemory: 1073741824,
					ContainerCPUSet: "0",
				},
			},
			wantContainerID: "ABCD1234",
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Error on ContainerCreate",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerCreate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
							Return(container.CreateResponse{ID: "ABCD1234"}, fmt.Errorf(""))
						mock.EXPECT().ContainerStart(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(fmt.Errorf("")).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerMemory: 1073741824,
					ContainerCPUSet: "0",
				},
			},
			wantContainerID: "",
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to start container")
			},
		},
		{
			name: "Error on ContainerStart",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerCreate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
							Return(container.CreateResponse{ID: "ABCD1234"}, nil)
						mock.EXPECT().ContainerStart(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(fmt.Errorf(""))
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerMemory: 1073741824,
					ContainerCPUSet: "0",
				},
			},
			wantContainerID: "",
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to start container")
			},
		},
		{
			name: "Invalid platform pin",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerCreate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
							Return(container.CreateResponse{}, nil).Times(0)
						mock.EXPECT().ContainerStart(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerMemory:   1073741824,
					ContainerCPUSet:   "0",
					ContainerPlatform: "linuxamd64",
				},
			},
			wantContainerID: "",
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to start container")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotContainerID, err := startContainer(tt.args.run, tt.args.hostConf)
			tt.assertion(t, err)
			assert.Equal(t, tt.wantContainerID, gotContainerID)
		})
	}
}

func Test_copyCircuitIntoContainer(t *testing.T) {
	type args struct {
		run      *containerRun
		hostConf *simhostconf.SimHostConf
		qasm     string
	}
	tests := []struct {
		name      string
		args      args
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().CopyToContainer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerPathIn: "/simhost/in",
					CircuitFileName: "circuit.qasm",
				},
				qasm: "OPENQASM 3;\nqubit[1] q;\nh q[0];",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Copy failure",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().CopyToContainer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
							Return(fmt.Errorf(""))
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerPathIn: "/simhost/in",
					CircuitFileName: "circuit.qasm",
				},
				qasm: "OPENQASM 3;",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to copy circuit into container")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := copyCircuitIntoContainer(tt.args.run, tt.args.hostConf, tt.args.qasm)
			tt.assertion(t, err)
		})
	}
}

type FakeReader struct {
	sleep time.Duration
}

func (f FakeReader) Read(p []byte) (n int, err error) {
	time.Sleep(f.sleep * time.Second)
	return 0, fmt.Errorf("test")
}

func Test_execCommandInContainer(t *testing.T) {
	type args struct {
		run      *containerRun
		hostConf *simhostconf.SimHostConf
		user     string
		cmd      string
	}
	tests := []struct {
		name      string
		args      args
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, nil)
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(strings.NewReader("test log stdout\ntest log stdout\n")),
							}, nil)
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{ExitCode: 0}, nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 15,
				},
				user: "root",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Error on ExecCreate",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, fmt.Errorf("error"))
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(strings.NewReader("test log stdout\ntest log stdout\n")),
							}, nil).Times(0)
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{ExitCode: 0}, nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 15,
				},
				user: "",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to exec command in container")
			},
		},
		{
			name: "Error on ExecAttach",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, nil)
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(strings.NewReader("test log stdout\ntest log stdout\n")),
							}, fmt.Errorf("error"))
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{ExitCode: 0}, nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 15,
				},
				user: "",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to exec command in container")
			},
		},
		{
			name: "Error on io.Copy",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, nil)
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(FakeReader{sleep: 2}),
							}, nil)
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{ExitCode: 0}, nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 15,
				},
				user: "",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to exec command in container")
			},
		},
		{
			name: "Error on ExecInspect",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, nil)
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(strings.NewReader("test\ntest\n")),
							}, nil)
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{ExitCode: 1}, fmt.Errorf("error"))
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 15,
				},
				user: "",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to exec command in container")
			},
		},
		{
			name: "Exit code is not 0",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, nil)
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(strings.NewReader("test\ntest\n")),
							}, nil)
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{ExitCode: 1}, nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 15,
				},
				user: "",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "exit code is not 0")
			},
		},
		{
			name: "Timeout",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerExecCreate(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.IDResponse{}, nil)
						mock.EXPECT().ContainerExecAttach(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(types.HijackedResponse{
								Reader: bufio.NewReader(FakeReader{sleep: 2}),
							}, nil)
						mock.EXPECT().ContainerExecInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerExecInspect{}, nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					Timeout: 1,
				},
				user: "",
				cmd:  "",
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "the simulation has timed out after 1 seconds")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execCommandInContainer(tt.args.run, tt.args.hostConf, tt.args.user, tt.args.cmd)
			tt.assertion(t, err)
		})
	}
}

func Test_readStateFromContainer(t *testing.T) {
	type args struct {
		run      *containerRun
		hostConf *simhostconf.SimHostConf
	}
	tests := []struct {
		name      string
		args      args
		want      core.Statevector
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().CopyFromContainer(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(io.NopCloser(stateTarData([]byte(`{"amplitudes":[[0.7071,0],[0,0.7071]]}`))), types.ContainerPathStat{}, nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerPathOut: "/simhost/out",
					ResultFileName:   "state.json",
				},
			},
			want: core.Statevector{complex(0.7071, 0), complex(0, 0.7071)},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Error on CopyFromContainer",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().CopyFromContainer(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(io.NopCloser(emptyTarData()), types.ContainerPathStat{}, fmt.Errorf("error"))
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerPathOut: "/simhost/out",
					ResultFileName:   "state.json",
				},
			},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to read the state from container")
			},
		},
		{
			name: "Empty state",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().CopyFromContainer(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(io.NopCloser(stateTarData([]byte(`{"amplitudes":[]}`))), types.ContainerPathStat{}, nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerPathOut: "/simhost/out",
					ResultFileName:   "state.json",
				},
			},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "simulator returned an empty state")
			},
		},
		{
			name: "No file in archive",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().CopyFromContainer(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(io.NopCloser(emptyTarData()), types.ContainerPathStat{}, nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
				hostConf: &simhostconf.SimHostConf{
					ContainerPathOut: "/simhost/out",
					ResultFileName:   "state.json",
				},
			},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to read the state from container")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readStateFromContainer(tt.args.run, tt.args.hostConf)
			tt.assertion(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_decodeState(t *testing.T) {
	type args struct {
		data []byte
	}
	tests := []struct {
		name      string
		args      args
		want      core.Statevector
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			args: args{data: []byte(`{"amplitudes":[[1,0],[0,0]],"message":"ok"}`)},
			want: core.Statevector{complex(1, 0), complex(0, 0)},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Broken JSON",
			args: args{data: []byte(`{`)},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to unmarshal the state file")
			},
		},
		{
			name: "Empty amplitudes",
			args: args{data: []byte(`{"amplitudes":[]}`)},
			want: nil,
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "simulator returned an empty state")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeState(tt.args.data)
			tt.assertion(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_stopContainer(t *testing.T) {
	type args struct {
		run *containerRun
	}
	tests := []struct {
		name      string
		args      args
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "Success/ Container is running",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "running"},
							}}, nil)
						mock.EXPECT().ContainerStop(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Error on ContainerInspect",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "running"},
							}}, fmt.Errorf("error"))
						mock.EXPECT().ContainerStop(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to stop container")
			},
		},
		{
			name: "Error on ContainerStop",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "running"},
							}}, nil)
						mock.EXPECT().ContainerStop(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(fmt.Errorf("error"))
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to stop container")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion(t, stopContainer(tt.args.run))
		})
	}
}

func Test_removeContainer(t *testing.T) {
	type args struct {
		run *containerRun
	}
	tests := []struct {
		name      string
		args      args
		assertion assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "exited"},
							}}, nil)
						mock.EXPECT().ContainerRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil)
						return mock
					}(),
					volumeClient: func() VolumeAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockVolumeAPI(mockCtrl)
						mock.EXPECT().VolumeRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.NoError(t, err)
			},
		},
		{
			name: "Container is not exited",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "running"},
							}}, nil)
						mock.EXPECT().ContainerRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					volumeClient: func() VolumeAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockVolumeAPI(mockCtrl)
						mock.EXPECT().VolumeRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to remove container")
			},
		},
		{
			name: "Container does not exist",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "running"},
							}}, fmt.Errorf(""))
						mock.EXPECT().ContainerRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					volumeClient: func() VolumeAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockVolumeAPI(mockCtrl)
						mock.EXPECT().VolumeRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to remove container")
			},
		},
		{
			name: "Failed to remove container",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "exited"},
							}}, nil)
						mock.EXPECT().ContainerRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(fmt.Errorf("remove error test"))
						return mock
					}(),
					volumeClient: func() VolumeAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockVolumeAPI(mockCtrl)
						mock.EXPECT().VolumeRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil).Times(0)
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to remove container")
			},
		},
		{
			name: "Failed to remove volume",
			args: args{
				run: &containerRun{
					name: "TestContainer",
					client: func() ContainerAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockContainerAPI(mockCtrl)
						mock.EXPECT().ContainerInspect(gomock.Any(), gomock.Any()).
							Return(types.ContainerJSON{ContainerJSONBase: &types.ContainerJSONBase{
								State: &types.ContainerState{Status: "exited"},
							}}, nil)
						mock.EXPECT().ContainerRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(nil)
						return mock
					}(),
					volumeClient: func() VolumeAPI {
						mockCtrl := gomock.NewController(t)
						// TODO decide whether to defer mockCtrl.Finish()
						//defer mockCtrl.Finish()
						mock := NewMockVolumeAPI(mockCtrl)
						mock.EXPECT().VolumeRemove(gomock.Any(), gomock.Any(), gomock.Any()).
							Return(fmt.Errorf("volume remove error test"))
						return mock
					}(),
					config: &container.Config{
						Image:        "testImage",
						Tty:          true,
						Env:          []string{""},
						AttachStdout: true,
						AttachStderr: true,
					},
					volume: volume.Volume{Name: "simhost-test-vol"},
				},
			},
			assertion: func(t assert.TestingT, err error, i ...interface{}) bool {
				return assert.EqualError(t, err, "failed to remove volume")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion(t, removeContainer(tt.args.run))
		})
	}
}
