package qpu

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/qem-team/qem-engine/coreapp/circuit"
	"github.com/qem-team/qem-engine/coreapp/core"

	"go.uber.org/zap"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

const DummyDeviceName = "DummyQPU"
const DummyProviderName = "DummyProvider"

const DummyMaxQubits = 32
const DummyMaxShots = 10000

// dummyNoisePerScale is the depolarizing strength the dummy backend applies
// per unit of noise scale, so scaled runs degrade the way a folded circuit
// on hardware would.
const dummyNoisePerScale = 0.02

// DummyQPU executes circuits locally with deterministic results: exact
// simulation, a scale-dependent depolarizing channel, and quota-based
// sampling that always fills the requested shots. Used in dev mode and
// tests.
type DummyQPU struct {
	deviceSetting      *DeviceSetting
	deviceInfoSpecJson string
}

func (d *DummyQPU) Setup(conf *core.Conf) error {
	zap.L().Debug("setting up Dummy-QPU")
	d.deviceSetting = NewDeviceSetting()
	spec, err := dummyDeviceInfoSpec()
	if err != nil {
		return err
	}
	d.deviceInfoSpecJson = spec
	return nil
}

func (d *DummyQPU) Send(j core.Job) error {
	jd := j.JobData()
	zap.L().Info("[Dummy] starting QPU execution of Job ID:" + jd.ID)
	counts, err := d.execute(jd, 1.0)
	if err != nil {
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	jd.Result.Counts = counts
	jd.Result.Message = "dummy success result"
	jd.Status = core.SUCCEEDED
	jd.Ended = strfmt.DateTime(time.Now())
	zap.L().Info("[Dummy] finished QPU execution of Job ID:" + jd.ID)
	return nil
}

func (d *DummyQPU) SendWithScale(j core.Job, scale float64) (core.Counts, error) {
	if scale < 1.0 {
		return nil, fmt.Errorf("noise scale factor must be at least 1.0, got %g", scale)
	}
	return d.execute(j.JobData(), scale)
}

func (d *DummyQPU) execute(jd *core.JobData, scale float64) (core.Counts, error) {
	qasm := jd.TranspiledQASM
	if qasm == "" {
		qasm = jd.QASM
	}
	c, err := circuit.Parse(qasm)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the circuit of a job(%s). Reason:%s", jd.ID, err)
	}
	if err := c.Validate(DummyMaxQubits); err != nil {
		return nil, err
	}
	if jd.Shots <= 0 {
		return nil, fmt.Errorf("shots(%d) must be greater than 0", jd.Shots)
	}
	probs := circuit.MeasurementProbabilities(circuit.Simulate(c))
	epsilon := math.Min(dummyNoisePerScale*scale, 0.75)
	for i, p := range probs {
		probs[i] = (1-epsilon)*p + epsilon/float64(len(probs))
	}
	return sampleCounts(probs, uint32(jd.Shots), c.Qubits), nil
}

func (d *DummyQPU) Validate(qasm string) error {
	return circuitValidate(qasm, d.deviceSetting)
}

func (d *DummyQPU) GetDeviceInfo() *core.DeviceInfo {
	return &core.DeviceInfo{
		DeviceName:         DummyDeviceName,
		ProviderName:       DummyProviderName,
		Type:               "QPU",
		Status:             core.Available,
		MaxQubits:          DummyMaxQubits,
		MaxShots:           DummyMaxShots,
		DeviceInfoSpecJson: d.deviceInfoSpecJson,
	}
}

func dummyDeviceInfoSpec() (string, error) {
	spec := core.DeviceInfoSpec{DeviceID: DummyDeviceName}
	for i := 0; i < DummyMaxQubits; i++ {
		spec.Qubits = append(spec.Qubits, core.Qubit{
			ID:         i,
			PhysicalID: i,
			Fidelity:   0.99,
			MeasError: core.MeasError{
				ProbMeas1Prep0:         0.02,
				ProbMeas0Prep1:         0.015,
				ReadoutAssignmentError: 0.0175,
			},
			QubitLife: core.QubitLife{T1: 35.0, T2: 24.0},
		})
	}
	blob, err := jsonIter.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal the dummy device info spec. Reason:%s", err)
	}
	return string(blob), nil
}

// sampleCounts turns an exact distribution into a histogram without drawing
// random numbers: each state gets the floor of its share and the largest
// remainders absorb the leftover shots, so the total always equals shots.
func sampleCounts(probs []float64, shots uint32, qubits int) core.Counts {
	type remainder struct {
		index int
		frac  float64
	}
	assigned := uint32(0)
	base := make([]uint32, len(probs))
	remainders := make([]remainder, 0, len(probs))
	for i, p := range probs {
		exact := p * float64(shots)
		floor := math.Floor(exact)
		base[i] = uint32(floor)
		assigned += base[i]
		remainders = append(remainders, remainder{index: i, frac: exact - floor})
	}
	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].frac > remainders[b].frac
	})
	for i := uint32(0); i < shots-assigned; i++ {
		base[remainders[int(i)%len(remainders)].index]++
	}
	counts := core.Counts{}
	for i, c := range base {
		if c > 0 {
			counts[core.CanonicalKey(i, qubits)] = c
		}
	}
	return counts
}

type GatewayQPU struct {
	agent             GatewayAgent
	deviceSetting     *DeviceSetting
	connected         bool
	currentDeviceInfo *core.DeviceInfo
}

func (q *GatewayQPU) Setup(conf *core.Conf) error {
	zap.L().Debug("Setting up Gateway QPU")
	ds, err := LoadDeviceSetting(conf.DeviceSettingPath)
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to load a device setting. Reason:%s", err))
		return err
	}
	q.agent = NewGatewayAgent()
	if err := q.agent.Setup(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to setup Gateway QPU/reason:%s", err))
		return err
	}
	q.deviceSetting = ds
	q.connected = false
	q.currentDeviceInfo = &core.DeviceInfo{
		Status: core.Unavailable,
	}
	if !conf.DisableStartDevicePolling {
		q.startDevicePolling()
	}
	return nil
}

func (q *GatewayQPU) Validate(qasm string) error {
	return circuitValidate(qasm, q.deviceSetting)
}

func (q *GatewayQPU) Send(j core.Job) error {
	var err error
	jd := j.JobData()
	zap.L().Info("Starting Gateway QPU execution of Job ID:" + jd.ID)

	if !q.GetConnected() {
		err := fmt.Errorf("Gateway QPU is not connected")
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	zap.L().Debug(fmt.Sprintf("Job ID:%s is processing", jd.ID))
	err = q.agent.CallJob(j)

	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to Call the job (%s) in %s. Reason:%s",
			jd.ID, q.agent.GetAddress(), err))
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	zap.L().Debug(fmt.Sprintf("Job ID:%s is processed/status: %s", jd.ID, jd.Status))
	jd.Ended = strfmt.DateTime(time.Now())
	return nil
}

func (q *GatewayQPU) SendWithScale(j core.Job, scale float64) (core.Counts, error) {
	jd := j.JobData()
	if !q.GetConnected() {
		return nil, fmt.Errorf("Gateway QPU is not connected")
	}
	zap.L().Debug(fmt.Sprintf("Job ID:%s runs at noise scale %g", jd.ID, scale))
	return q.agent.CallJobWithScale(j, scale)
}

func (q *GatewayQPU) GetDeviceInfo() *core.DeviceInfo {
	return q.currentDeviceInfo
}

func (q *GatewayQPU) GetConnected() bool {
	return q.connected
}

func (q *GatewayQPU) startDevicePolling() {
	go func() {
		t := time.NewTicker(time.Duration(q.deviceSetting.PollingPeriod) * time.Second)
		zap.L().Debug("Starting Device Polling")
		q.startCleanUpGoroutine(t)
		for {
			di, err := q.agent.CallDeviceInfo()
			if err != nil {
				zap.L().Error(fmt.Sprintf("Failed to call device info. Reason:%s", err))
				q.currentDeviceInfo = &core.DeviceInfo{Status: core.Unavailable}
				q.connected = false
			} else {
				q.currentDeviceInfo = di
				q.connected = true
			}
			zap.L().Debug(fmt.Sprintf(
				"Waiting %d seconds for the next device polling to %s",
				q.deviceSetting.PollingPeriod, q.agent.GetAddress()))
			<-t.C
		}
	}()
}

// TODO use run Group
func (q *GatewayQPU) startCleanUpGoroutine(t *time.Ticker) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		t.Stop()
		q.agent.Close()
	}()
}
