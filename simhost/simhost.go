// Package simhost runs the exact statevector simulator as a CLI inside a
// local docker container. It is the Simulator backend for deployments where
// no remote simulator service is reachable.
package simhost

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/qem-team/qem-engine/coreapp/simhost/conf"
	"go.uber.org/zap"
)

// stateFileContents is the JSON document the simulator CLI writes: one
// [real, imag] pair per amplitude, in basis order.
type stateFileContents struct {
	Amplitudes [][2]float64 `json:"amplitudes"`
	Message    string       `json:"message"`
}

// ContainerAPI is the slice of the docker container API the hosted simulator
// drives. *client.Client satisfies it; tests substitute the generated mock.
type ContainerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, types.ContainerPathStat, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options types.CopyToContainerOptions) error
}

// VolumeAPI is the volume part of the docker API, used for the tmpfs scratch
// volume every simulation run mounts.
type VolumeAPI interface {
	VolumeCreate(ctx context.Context, options volume.CreateOptions) (volume.Volume, error)
	VolumeRemove(ctx context.Context, volumeID string, force bool) error
}

type containerRun struct {
	name         string
	config       *container.Config
	client       ContainerAPI
	volumeClient VolumeAPI
	id           string
	volume       volume.Volume
}

func (r *containerRun) setup(api ContainerAPI, volumeAPI VolumeAPI, name string, envVars []string, image string) {
	r.name = name
	r.config = &container.Config{
		Image:        image,
		Tty:          true,
		Env:          envVars,
		AttachStdout: true,
		AttachStderr: true,
	}
	r.client = api
	r.volumeClient = volumeAPI
}

func (r *containerRun) setID(value string) {
	r.id = value
}

// HostedSimulator satisfies core.Simulator with a containerized simulator
// CLI. Every State call runs in a fresh container on a fresh tmpfs volume.
type HostedSimulator struct {
	client       ContainerAPI
	volumeClient VolumeAPI
	conf         *conf.SimHostConf
}

func (s *HostedSimulator) Setup(_ *core.Conf) error {
	apiClient, err := client.NewClientWithOpts()
	if err != nil {
		return makeErrMsg("failed to init docker client", err)
	}
	s.client = apiClient
	s.volumeClient = apiClient
	s.conf = conf.GetSimHostConf()
	return nil
}

func (s *HostedSimulator) State(qasm string) (core.Statevector, error) {
	if s.client == nil {
		return nil, fmt.Errorf("hosted simulator is not set up")
	}
	hostConf := s.conf
	name := fmt.Sprintf("simhost-%s", uuid.NewString())
	zap.L().Info(fmt.Sprintf("Starting a simulator container %s", name))

	run := &containerRun{}
	envVars := []string{
		"IN_PATH=" + hostConf.ContainerPathIn,
		"OUT_PATH=" + hostConf.ContainerPathOut,
	}
	run.setup(s.client, s.volumeClient, name, envVars, hostConf.ContainerImage)

	if err := createVolume(run, hostConf.ContainerDiskQuota); err != nil {
		return nil, err
	}
	containerID, err := startContainer(run, hostConf)
	if err != nil {
		cleanupRun(run)
		return nil, err
	}
	run.setID(containerID)

	// Prepare the in and out directories on the scratch volume
	prepare := fmt.Sprintf("mkdir -p %s %s", hostConf.ContainerPathIn, hostConf.ContainerPathOut)
	if err := execCommandInContainer(run, hostConf, "root", prepare); err != nil {
		cleanupRun(run)
		return nil, err
	}

	if err := copyCircuitIntoContainer(run, hostConf, qasm); err != nil {
		cleanupRun(run)
		return nil, err
	}

	// Run the simulator CLI
	// continue to collect the container log even if the run fails
	cmd := fmt.Sprintf("%s %s %s",
		hostConf.SimulatorCommand,
		path.Join(hostConf.ContainerPathIn, hostConf.CircuitFileName),
		path.Join(hostConf.ContainerPathOut, hostConf.ResultFileName))
	execErr := execCommandInContainer(run, hostConf, "", cmd)

	var sv core.Statevector
	var stateErr error
	if execErr == nil {
		sv, stateErr = readStateFromContainer(run, hostConf)
	}

	logContainerOutput(run)

	if err := stopContainer(run); err != nil {
		return nil, err
	}
	if err := removeContainer(run); err != nil {
		return nil, err
	}
	zap.L().Info(fmt.Sprintf("Simulator container %s is finished", name))

	if execErr != nil {
		return nil, execErr
	}
	return sv, stateErr
}

func createVolume(run *containerRun, diskQuota int64) (err error) {
	msg := "failed to create volume"

	driverOpts := map[string]string{"type": "tmpfs", "device": "tmpfs", "o": fmt.Sprintf("size=%d", diskQuota)}
	volumeName := fmt.Sprintf("%s-vol", run.name)
	createdVolume, err := run.volumeClient.VolumeCreate(context.Background(),
		volume.CreateOptions{Driver: "local",
			DriverOpts: driverOpts,
			Name:       volumeName,
		},
	)
	if err != nil {
		err = makeErrMsg(msg, err)
		return
	}

	run.volume = createdVolume

	return
}

func delVolume(run *containerRun) (err error) {
	msg := "failed to delete volume"

	err = run.volumeClient.VolumeRemove(context.Background(), run.volume.Name, true)
	if err != nil {
		err = makeErrMsg(msg, err)
		return
	}

	return
}

func startContainer(run *containerRun, hostConf *conf.SimHostConf) (containerID string, err error) {
	msg := "failed to start container"

	platform, err := containerPlatform(hostConf.ContainerPlatform)
	if err != nil {
		return "", makeErrMsg(msg, err)
	}
	mountPoint := fmt.Sprintf("%s:/simhost", run.volume.Name)
	hostConfig := &container.HostConfig{
		Resources: container.Resources{Memory: hostConf.ContainerMemory, CpusetCpus: hostConf.ContainerCPUSet},
		Binds:     []string{mountPoint}}
	containerCreateResp, err := run.client.ContainerCreate(context.Background(), run.config, hostConfig, nil, platform, run.name)
	if err != nil {
		err = makeErrMsg(msg, err)
		return "", err
	}

	err = run.client.ContainerStart(context.Background(), containerCreateResp.ID, container.StartOptions{})
	if err != nil {
		err = makeErrMsg(msg, err)
		return "", err
	}

	return containerCreateResp.ID, nil
}

// containerPlatform parses an os/arch pin into the platform the image must
// match. Empty means the daemon picks.
func containerPlatform(pin string) (*ocispec.Platform, error) {
	if pin == "" {
		return nil, nil
	}
	parts := strings.SplitN(pin, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid platform %q, want os/arch", pin)
	}
	return &ocispec.Platform{OS: parts[0], Architecture: parts[1]}, nil
}

func copyCircuitIntoContainer(run *containerRun, hostConf *conf.SimHostConf, qasm string) error {
	msg := "failed to copy circuit into container"

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err := tw.WriteHeader(&tar.Header{
		Name: hostConf.CircuitFileName, // filename
		Mode: 0644,                     // permissions
		Size: int64(len(qasm)),         // filesize
	})
	if err != nil {
		return err
	}
	tw.Write([]byte(qasm))
	tw.Close()

	err = run.client.CopyToContainer(context.Background(), run.id, hostConf.ContainerPathIn, &buf, types.CopyToContainerOptions{})
	if err != nil {
		err = makeErrMsg(msg, err)
		return err
	}

	return nil
}

func execCommandInContainer(run *containerRun, hostConf *conf.SimHostConf, user string, cmd string) error {
	msg := "failed to exec command in container"
	msgTimeout := "the simulation has timed out after " + strconv.Itoa(hostConf.Timeout) + " seconds"
	msgExitCode := "exit code is not 0"

	execConfig := types.ExecConfig{
		User:         user,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"sh", "-c", cmd},
		Detach:       false,
		Tty:          false,
	}
	ctx := context.Background()

	respExecCreate, err := run.client.ContainerExecCreate(ctx, run.id, execConfig)
	if err != nil {
		return makeErrMsg(msg, err)
	}
	execAttachConfig := types.ExecStartCheck{
		Detach: false,
		Tty:    false,
	}

	respExecAttach, err := run.client.ContainerExecAttach(ctx, respExecCreate.ID, execAttachConfig)
	if err != nil {
		return makeErrMsg(msg, err)
	}

	// the command has finished when its output stream hits EOF
	var out bytes.Buffer
	resultChan := make(chan error)
	go func() {
		_, err := io.Copy(&out, respExecAttach.Reader)
		resultChan <- err
	}()

	select {
	case <-time.After(time.Duration(hostConf.Timeout) * time.Second):
		return makeErrMsg(msgTimeout, nil)
	case err := <-resultChan:
		if err != nil {
			return makeErrMsg(msg, err)
		}
	}
	if out.Len() > 0 {
		zap.L().Debug(fmt.Sprintf("container command output:%s", out.String()))
	}
	respInspect, err := run.client.ContainerExecInspect(context.Background(), respExecCreate.ID)
	if err != nil {
		return makeErrMsg(msg, err)
	}
	if respInspect.ExitCode != 0 {
		return makeErrMsg(msgExitCode, nil)
	}
	return nil
}

// readStateFromContainer copies the state file out of the container and
// decodes the amplitudes. The copy comes back as a tar stream with the state
// file as its only entry.
func readStateFromContainer(run *containerRun, hostConf *conf.SimHostConf) (core.Statevector, error) {
	msg := "failed to read the state from container"

	resp, _, err := run.client.CopyFromContainer(context.Background(), run.id,
		path.Join(hostConf.ContainerPathOut, hostConf.ResultFileName))
	if err != nil {
		return nil, makeErrMsg(msg, err)
	}
	defer resp.Close()

	tarReader := tar.NewReader(resp)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, makeErrMsg(msg, err)
		}
		if header.FileInfo().IsDir() {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tarReader); err != nil {
			return nil, makeErrMsg(msg, err)
		}
		return decodeState(buf.Bytes())
	}
	return nil, makeErrMsg(msg, fmt.Errorf("no state file in the copied archive"))
}

func decodeState(data []byte) (core.Statevector, error) {
	contents := &stateFileContents{}
	if err := json.Unmarshal(data, contents); err != nil {
		return nil, makeErrMsg("failed to unmarshal the state file", err)
	}
	if len(contents.Amplitudes) == 0 {
		return nil, fmt.Errorf("simulator returned an empty state")
	}
	sv := make(core.Statevector, len(contents.Amplitudes))
	for i, a := range contents.Amplitudes {
		sv[i] = complex(a[0], a[1])
	}
	return sv, nil
}

// logContainerOutput forwards the container log to the engine log. The
// simulator CLI writes its diagnostics there, which is all that remains of a
// run after the container is removed.
func logContainerOutput(run *containerRun) {
	readlog, err := run.client.ContainerLogs(context.Background(), run.id,
		container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: false})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to get container log, reason:%s", err))
		return
	}
	defer readlog.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, readlog); err != nil && err != io.EOF {
		zap.L().Error(fmt.Sprintf("failed to read container log, reason:%s", err))
		return
	}
	if buf.Len() > 0 {
		zap.L().Debug(fmt.Sprintf("simulator container %s log:%s", run.name, buf.String()))
	}
}

func stopContainer(run *containerRun) error {
	msg := "failed to stop container"

	_, err := run.client.ContainerInspect(context.Background(), run.id)
	if err != nil {
		err = makeErrMsg(msg, err)
		return err
	}

	// attempt to stop regardless of the status of the container
	var timeout int = 0
	if err := run.client.ContainerStop(context.Background(), run.name, container.StopOptions{Timeout: &timeout}); err != nil {
		err = makeErrMsg(msg, err)
		return err
	}

	return nil
}

func removeContainer(run *containerRun) error {
	msgRemoveErr := "failed to remove container"
	msgRemoveVolErr := "failed to remove volume"

	containerJSON, err := run.client.ContainerInspect(context.Background(), run.id)
	if err != nil {
		err = makeErrMsg(msgRemoveErr, err)
		return err
	}

	if containerJSON.State.Status != "exited" {
		err = makeErrMsg(msgRemoveErr, fmt.Errorf("container status is not exited"))
		return err
	}

	err = run.client.ContainerRemove(context.Background(), run.name, container.RemoveOptions{RemoveVolumes: true, Force: true})
	if err != nil {
		err = makeErrMsg(msgRemoveErr, err)
		return err
	}

	err = delVolume(run)
	if err != nil {
		err = makeErrMsg(msgRemoveVolErr, err)
		return err
	}

	return nil
}

// cleanupRun tears down whatever a failed run left behind. Each step logs and
// continues so a stuck container never strands its volume.
func cleanupRun(run *containerRun) {
	containerJSON, err := run.client.ContainerInspect(context.Background(), run.id)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to get container info, reason:%s", err))
	} else {
		zap.L().Error(fmt.Sprintf("container ID:%s, container status:%s", containerJSON.ID, containerJSON.State.Status))
	}

	// attempt to stop regardless of the status of the container
	var timeout int = 0
	err = run.client.ContainerStop(context.Background(), run.name, container.StopOptions{Timeout: &timeout})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to stop container, reason:%s", err))
		// continue to remove container
	}
	err = run.client.ContainerRemove(context.Background(), run.name, container.RemoveOptions{RemoveVolumes: true, Force: true})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to remove container, reason:%s", err))
		// continue to remove volume
	}
	err = delVolume(run)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to remove tmpfs volume, reason:%s", err))
	}
}

func makeErrMsg(errMsg string, err error) error {
	if err != nil {
		zap.L().Error(fmt.Sprintf("%s reason:%s", errMsg, err.Error()))
	} else {
		zap.L().Error(errMsg)
	}
	return errors.New(errMsg)
}
