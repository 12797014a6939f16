package qpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qem-team/qem-engine/coreapp/cloud"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GatewayAgent is the wire client of a GatewayQPU. It talks to the executor
// service for circuit runs and to the cloud API for device bookkeeping.
type GatewayAgent interface {
	Setup() error
	CallDeviceInfo() (*core.DeviceInfo, error)
	CallJob(core.Job) error
	CallJobWithScale(core.Job, float64) (core.Counts, error)
	Reset()
	Close()

	GetAddress() string
}

type DefaultGatewayAgentSetting struct {
	GatewayHost string `toml:"gateway_host"`
	GatewayPort string `toml:"gateway_port"`
	APIEndpoint string `toml:"api_endpoint"`
	APIKey      string `toml:"api_key"`
	DeviceId    string `toml:"device_id"`
}

func NewDefaultGatewayAgentSetting() DefaultGatewayAgentSetting {
	return DefaultGatewayAgentSetting{
		GatewayHost: "localhost",
		GatewayPort: "50051",
		APIEndpoint: "https://localhost",
		APIKey:      "your_api_key",
		DeviceId:    "your_device_id",
	}
}

// currentGatewaySetting reads the registered "gateway" component setting.
// The registry hands back the typed default when nothing was configured and
// a raw TOML map when something was; missing keys keep their defaults, so a
// partial [com.gateway] block is fine.
func currentGatewaySetting() DefaultGatewayAgentSetting {
	s, ok := core.GetComponentSetting("gateway")
	if !ok {
		zap.L().Debug("gateway setting is not registered, using defaults")
		return NewDefaultGatewayAgentSetting()
	}
	switch typed := s.(type) {
	case DefaultGatewayAgentSetting:
		return typed
	case *DefaultGatewayAgentSetting:
		return *typed
	case map[string]interface{}:
		setting := NewDefaultGatewayAgentSetting()
		fields := map[string]*string{
			"gateway_host": &setting.GatewayHost,
			"gateway_port": &setting.GatewayPort,
			"api_endpoint": &setting.APIEndpoint,
			"api_key":      &setting.APIKey,
			"device_id":    &setting.DeviceId,
		}
		for key, field := range fields {
			if v, ok := typed[key].(string); ok {
				*field = v
			}
		}
		return setting
	default:
		zap.L().Error(fmt.Sprintf("unexpected gateway setting type %T, using defaults", s))
		return NewDefaultGatewayAgentSetting()
	}
}

type DefaultGatewayAgent struct {
	setting        DefaultGatewayAgentSetting
	gatewayAddress string
	gatewayConn    *grpc.ClientConn
	apiClient      *cloud.Client
	ctx            context.Context

	lastDeviceInfo *core.DeviceInfo
}

func NewGatewayAgent() *DefaultGatewayAgent {
	return &DefaultGatewayAgent{}
}

func (q *DefaultGatewayAgent) Setup() error {
	q.setting = currentGatewaySetting()
	zap.L().Debug(fmt.Sprintf("gateway setting:%v", q.setting))

	address, err := common.ValidAddress(q.setting.GatewayHost, q.setting.GatewayPort)
	if err != nil {
		return err
	}
	q.gatewayAddress = address

	apiClient, err := cloud.NewClient(q.setting.APIEndpoint, q.setting.APIKey)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to create the cloud API client for %s/reason:%s",
			q.setting.APIEndpoint, err))
		return fmt.Errorf("failed to create API client: %w", err)
	}
	q.apiClient = apiClient

	q.Reset()
	return nil
}

func (q *DefaultGatewayAgent) CallDeviceInfo() (*core.DeviceInfo, error) {
	var resGDI GetDeviceInfoResponse
	if err := common.InvokeJSON(q.ctx, q.gatewayConn, getDeviceInfoMethod,
		&GetDeviceInfoRequest{}, &resGDI); err != nil {
		q.Reset()
		zap.L().Error(fmt.Sprintf("failed to get device info from %s/reason:%s", q.gatewayAddress, err))
		return &core.DeviceInfo{}, err
	}
	di := resGDI.Body
	zap.L().Debug(fmt.Sprintf(
		"DeviceID:%s, ProviderID:%s, Type:%s, MaxQubits:%d, MaxShots:%d, DeviceInfo:%s, CalibratedAt:%s",
		di.DeviceID, di.ProviderID, di.Type, di.MaxQubits, di.MaxShots, di.DeviceInfo, di.CalibratedAt))

	var resSS GetServiceStatusResponse
	if err := common.InvokeJSON(q.ctx, q.gatewayConn, getServiceStatusMethod,
		&GetServiceStatusRequest{}, &resSS); err != nil {
		q.Reset()
		zap.L().Error(fmt.Sprintf("failed to get service status from %s/reason:%s", q.gatewayAddress, err))
		return &core.DeviceInfo{}, err
	}

	cd := &core.DeviceInfo{
		DeviceName:         di.DeviceID,
		ProviderName:       di.ProviderID,
		Type:               di.Type,
		Status:             mapServiceStatusToDeviceStatus(resSS.ServiceStatus),
		MaxQubits:          di.MaxQubits,
		MaxShots:           di.MaxShots,
		DeviceInfoSpecJson: di.DeviceInfo,
		CalibratedAt:       di.CalibratedAt,
	}
	q.callDeviceAPIOnChange(cd)
	return cd, nil
}

func mapServiceStatusToDeviceStatus(ss string) core.DeviceStatus {
	switch ss {
	case ServiceStatusActive:
		return core.Available
	case ServiceStatusInactive:
		return core.Unavailable
	case ServiceStatusMaintenance:
		return core.QueuePaused
	default:
		zap.L().Error(fmt.Sprintf("unknown service status %q, treating as Unavailable", ss))
		return core.Unavailable
	}
}

// TODO: move the status transition into the scheduler so CallJob only runs
// the circuit
func (q *DefaultGatewayAgent) CallJob(j core.Job) error {
	jd := j.JobData()
	qasmToBeSent := jd.TranspiledQASM
	if qasmToBeSent == "" {
		qasmToBeSent = jd.QASM
	}

	zap.L().Debug(fmt.Sprintf("Sending a job to QPU/"+
		"JobID:%s, Shots:%d, QASM:%s", jd.ID, jd.Shots, qasmToBeSent))
	startTime := time.Now()
	var resp ExecuteJobResponse
	err := common.InvokeJSON(q.ctx, q.gatewayConn, executeJobMethod,
		&ExecuteJobRequest{
			JobID:       jd.ID,
			Shots:       jd.Shots,
			Program:     qasmToBeSent,
			ScaleFactor: 1.0,
		}, &resp)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to call the job in %s/reason:%s", q.gatewayAddress, err))
		return err
	}
	endTime := time.Now()

	switch resp.Status {
	case ExecutionStatusSuccess:
		jd.Status = core.SUCCEEDED
	case ExecutionStatusFailure, ExecutionStatusInactive:
		jd.Status = core.FAILED
	default:
		msg := fmt.Sprintf("unknown status %q", resp.Status)
		zap.L().Error(msg)
		return errors.New(msg)
	}
	zap.L().Debug(fmt.Sprintf("JobID:%s, Status:%s", jd.ID, jd.Status))

	r := jd.Result
	if resp.Result != nil {
		r.Counts = resp.Result.Counts
		r.Message = resp.Result.Message
	}
	r.ExecutionTime = endTime.Sub(startTime)

	zap.L().Debug(fmt.Sprintf("JobID:%s, Counts:%v, Message:%s, ExecutionTime:%s",
		jd.ID, r.Counts, r.Message, r.ExecutionTime))
	return nil
}

// CallJobWithScale runs one circuit at a noise scale factor and hands back
// the counts without touching the job record; mitigation jobs own how these
// runs are combined.
func (q *DefaultGatewayAgent) CallJobWithScale(j core.Job, scale float64) (core.Counts, error) {
	jd := j.JobData()
	qasmToBeSent := jd.TranspiledQASM
	if qasmToBeSent == "" {
		qasmToBeSent = jd.QASM
	}
	var resp ExecuteJobResponse
	err := common.InvokeJSON(q.ctx, q.gatewayConn, executeJobMethod,
		&ExecuteJobRequest{
			JobID:       jd.ID,
			Shots:       jd.Shots,
			Program:     qasmToBeSent,
			ScaleFactor: scale,
		}, &resp)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to call the scaled job in %s/reason:%s", q.gatewayAddress, err))
		return nil, err
	}
	if resp.Status != ExecutionStatusSuccess {
		return nil, fmt.Errorf("execution at scale %g ended with status %q", scale, resp.Status)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("execution at scale %g returned no result", scale)
	}
	return resp.Result.Counts, nil
}

// Reset drops the current executor connection and dials a fresh one. Dial
// errors are only logged: the next device poll retries anyway.
func (q *DefaultGatewayAgent) Reset() {
	q.Close()
	q.ctx = context.Background()
	conn, connErr := grpc.NewClient(q.gatewayAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if connErr != nil {
		zap.L().Error(fmt.Sprintf("failed to make connection to %s/reason:%s", q.gatewayAddress, connErr))
		return
	}
	q.gatewayConn = conn
	q.lastDeviceInfo = nil
	zap.L().Debug(fmt.Sprintf("GatewayAgent is ready to use %s", q.gatewayAddress))
}

func (q *DefaultGatewayAgent) Close() {
	if q.gatewayConn != nil {
		_ = q.gatewayConn.Close()
	}
}

func (q *DefaultGatewayAgent) GetAddress() string {
	return q.gatewayAddress
}

// callDeviceAPIOnChange mirrors device changes to the cloud API. The cached
// info only advances when at least one patch landed, so a failed patch is
// retried on the next poll.
func (q *DefaultGatewayAgent) callDeviceAPIOnChange(newDI *core.DeviceInfo) {
	updated := false
	patchIf := func(changed bool, what string, patch func() error) {
		if !changed {
			return
		}
		if err := patch(); err != nil {
			zap.L().Error(fmt.Sprintf("failed to update %s/reason:%s", what, err))
			return
		}
		updated = true
	}
	patchIf(hasStatusChanged(q.lastDeviceInfo, newDI), "device status", func() error {
		return q.apiClient.PatchDeviceStatus(context.TODO(), q.setting.DeviceId, newDI.Status)
	})
	patchIf(hasDeviceInfoChanged(q.lastDeviceInfo, newDI), "device info", func() error {
		return q.updateDeviceInfo(newDI)
	})
	patchIf(hasDeviceChanged(q.lastDeviceInfo, newDI), "device", func() error {
		return q.apiClient.PatchDevice(context.TODO(), q.setting.DeviceId, newDI.MaxQubits)
	})
	if updated {
		q.lastDeviceInfo = newDI
	} else {
		zap.L().Debug("no updated device info")
	}
}

func (q *DefaultGatewayAgent) updateDeviceInfo(di *core.DeviceInfo) error {
	ca, err := parseRFC3339Time(di.CalibratedAt)
	if err != nil {
		return err
	}
	zap.L().Debug(fmt.Sprintf("Attempting to update device info of %s/calibratedAt:%s",
		q.setting.DeviceId, ca))
	return q.apiClient.PatchDeviceInfo(context.TODO(), q.setting.DeviceId, di.DeviceInfoSpecJson, ca)
}

func parseRFC3339Time(t string) (time.Time, error) {
	tt, err := time.Parse(time.RFC3339, t)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse time %s using RFC3339/reason:%s", t, err))
		return time.Time{}, err
	}
	return tt, nil
}

// The three change predicates below split what the cloud API patches on
// different endpoints: liveness status, calibration payload, and the device
// record itself. A nil cached side counts as changed.

func hasStatusChanged(oldDI, newDI *core.DeviceInfo) bool {
	if oldDI == nil || newDI == nil {
		return logNilInfo(oldDI, newDI)
	}
	if oldDI.Status != newDI.Status {
		zap.L().Debug("Status is changed")
		return true
	}
	return false
}

func hasDeviceInfoChanged(oldDI, newDI *core.DeviceInfo) bool {
	if oldDI == nil || newDI == nil {
		return logNilInfo(oldDI, newDI)
	}
	// Status is handled by hasStatusChanged
	diffs := []struct {
		field   string
		changed bool
	}{
		{"CalibratedAt", oldDI.CalibratedAt != newDI.CalibratedAt},
		{"DeviceInfoSpecJson", oldDI.DeviceInfoSpecJson != newDI.DeviceInfoSpecJson},
		{"MaxShots", oldDI.MaxShots != newDI.MaxShots},
		{"ProviderName", oldDI.ProviderName != newDI.ProviderName},
		{"DeviceName", oldDI.DeviceName != newDI.DeviceName},
		{"Type", oldDI.Type != newDI.Type},
	}
	for _, d := range diffs {
		if d.changed {
			zap.L().Debug(d.field + " is changed")
			return true
		}
	}
	return false
}

func hasDeviceChanged(oldDI, newDI *core.DeviceInfo) bool {
	// Only MaxQubits is patchable on the device record for now
	if oldDI == nil || newDI == nil {
		return logNilInfo(oldDI, newDI)
	}
	if oldDI.MaxQubits != newDI.MaxQubits {
		zap.L().Debug("MaxQubits is changed")
		return true
	}
	return false
}

func logNilInfo(oldDI, newDI *core.DeviceInfo) bool {
	if oldDI == nil {
		zap.L().Debug("old device info is nil")
	}
	if newDI == nil {
		zap.L().Error("new device info is nil")
	}
	return true
}
