package core

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/jx"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

var (
	systemComponents            *SystemComponents
	defaultTranspilerConfigJson map[string]jx.Raw
)

func init() {
	dtc := DEFAULT_TRANSPILER_CONFIG()
	var lib jx.Encoder
	lib.Str(*dtc.TranspilerLib)
	defaultTranspilerConfigJson = map[string]jx.Raw{
		"transpiler_lib":     jx.Raw(lib.Bytes()),
		"transpiler_options": jx.Raw(dtc.TranspilerOptions),
	}
}

// DefaultTranspilerConfigJson exposes the default transpiler settings as raw
// JSON fields, keyed the way cloud job documents spell them.
func DefaultTranspilerConfigJson() map[string]jx.Raw {
	return defaultTranspilerConfigJson
}

type DBChan chan Job

// Channels bundles the cross-component channels. DBChan carries job data
// snapshots to the DB service loop. Further channels become fields here.
type Channels struct {
	DBChan
}

func NewChannels() *Channels {
	return &Channels{
		DBChan: make(DBChan),
	}
}

func (c *Channels) Close() {
	close(c.DBChan)
}

func (c *Channels) Check() error {
	if c.DBChan == nil {
		return fmt.Errorf("DBChan is nil")
	}
	return nil
}

type DeviceInfo struct {
	DeviceName         string       `json:"device_name"`
	ProviderName       string       `json:"provider_name"`
	Type               string       `json:"type"`
	Status             DeviceStatus `json:"status"`
	MaxQubits          int          `json:"max_qubits"`
	MaxShots           int          `json:"max_shots"`
	DeviceInfoSpecJson string       `json:"device_info"` // raw self-description, kept as served
	CalibratedAt       string       `json:"calibrated_at"`
}

type DeviceInfoSpec struct {
	DeviceID string  `json:"device_id"`
	Qubits   []Qubit `json:"qubits"`
}

type Qubit struct {
	ID         int       `json:"id"`
	PhysicalID int       `json:"physical_id"`
	Position   Position  `json:"position"`
	Fidelity   float64   `json:"fidelity"`
	MeasError  MeasError `json:"meas_error"`
	QubitLife  QubitLife `json:"qubit_lifetime"`
	GateDur    GateDur   `json:"gate_duration"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MeasError carries the readout confusion rates used to build the per-qubit
// assignment matrices for readout mitigation.
type MeasError struct {
	ProbMeas1Prep0         float64 `json:"prob_meas1_prep0"`
	ProbMeas0Prep1         float64 `json:"prob_meas0_prep1"`
	ReadoutAssignmentError float64 `json:"readout_assignment_error"`
}

type QubitLife struct {
	T1 float64 `json:"t1"`
	T2 float64 `json:"t2"`
}

type GateDur struct {
	RZ float64 `json:"rz"`
	RX float64 `json:"rx"`
	CX float64 `json:"cx"`
}

type DeviceStatus int

const (
	Available DeviceStatus = iota
	Unavailable
	QueuePaused
)

func (ds DeviceStatus) String() string {
	switch ds {
	case Available:
		return "Available"
	case Unavailable:
		return "Unavailable"
	case QueuePaused:
		return "QueuePaused"
	default:
		return "Unknown"
	}
}

// QPUManager is the executor collaborator. Send runs the job's circuit for
// the job's shot count and fills the counts in. Noise scaling is the
// executor's concern; the engine only passes the scale factor along.
type QPUManager interface {
	Setup(*Conf) error
	Send(Job) error
	SendWithScale(Job, float64) (Counts, error)
	Validate(qasm string) error
	GetDeviceInfo() *DeviceInfo
}

// Simulator is the exact-simulation collaborator supplying noiseless
// statevectors for training circuits. The engine never simulates circuits
// itself.
type Simulator interface {
	Setup(*Conf) error
	State(qasm string) (Statevector, error)
}

// Fitter is the regression collaborator. The engine assembles training data
// and applies the returned model; the fitting algorithm lives outside.
type Fitter interface {
	Setup(*Conf) error
	Fit(features [][]float64, labels []float64) (FitModel, error)
}

// FitModel maps one noisy feature vector to a mitigated expectation value.
type FitModel interface {
	Predict(features []float64) (float64, error)
}

// DEFAULT_TRANSPILER_CONFIG is applied when a job does not spell out its own
// transpiler settings.
func DEFAULT_TRANSPILER_CONFIG() *TranspilerConfig {
	opts, err := json.Marshal(struct {
		OptimizationLevel int `json:"optimization_level"`
	}{
		OptimizationLevel: 2,
	})
	if err != nil {
		panic(err)
	}
	lib := "qiskit"
	return &TranspilerConfig{
		TranspilerLib:     &lib,
		TranspilerOptions: opts,
		UseDefault:        true,
	}
}

type Transpiler interface {
	IsAcceptableTranspilerLib(string) bool
	Setup(*Conf) error
	GetHealth() error
	Transpile(Job) error
	TearDown()
}

// Scheduler owns the job queue and drives queued jobs through their
// lifecycle.
type Scheduler interface {
	Setup(*Conf) error
	Start() error
	HandleJob(Job)
	GetCurrentQueueSize() int
	IsOverRefillThreshold() bool
}

// DBManager persists job data and tracks which job IDs this engine instance
// has claimed.
type DBManager interface {
	Setup(DBChan, *Conf) error
	Insert(Job) error
	Get(string) (Job, error)
	Update(Job) error
	Delete(string) error

	AddToInnerJobIDSet(string)
	RemoveFromInnerJobIDSet(string)
	ExistInInnerJobIDSet(string) bool
}

type SystemComponents struct {
	*dig.Container
	*Channels
}

func NewSystemComponents(con *dig.Container) *SystemComponents {
	return &SystemComponents{
		con,
		NewChannels(),
	}
}

func GetSystemComponents() *SystemComponents {
	return systemComponents
}

// Setup initializes every registered component in dependency order and
// publishes the result as the process-wide SystemComponents.
func (s *SystemComponents) Setup(conf *Conf) error {
	dbChan := s.DBChan
	steps := []struct {
		name string
		fn   func() error
	}{
		{"transpiler", func() error {
			return s.Invoke(func(t Transpiler) error { return t.Setup(conf) })
		}},
		{"scheduler", func() error {
			return s.Invoke(func(sc Scheduler) error { return sc.Setup(conf) })
		}},
		{"DB", func() error {
			return s.Invoke(func(d DBManager) error { return d.Setup(dbChan, conf) })
		}},
		{"QPU", func() error {
			return s.Invoke(func(q QPUManager) error { return q.Setup(conf) })
		}},
		{"simulator", func() error {
			return s.Invoke(func(sim Simulator) error { return sim.Setup(conf) })
		}},
		{"fitter", func() error {
			return s.Invoke(func(f Fitter) error { return f.Setup(conf) })
		}},
	}
	for _, step := range steps {
		zap.L().Debug(fmt.Sprintf("setting up the %s", step.name))
		if err := step.fn(); err != nil {
			return err
		}
	}
	systemComponents = s
	return nil
}

func (s *SystemComponents) TearDown() {
	_ = s.Invoke(
		func(t Transpiler) {
			t.TearDown()
		})
	s.Channels.Close()
}

func (s *SystemComponents) StartContainer() error {
	return s.Container.Invoke(
		func(sc Scheduler) error {
			return sc.Start()
		})
}

func (s *SystemComponents) GetDeviceInfo() *DeviceInfo {
	var di *DeviceInfo
	_ = s.Invoke(
		func(q QPUManager) {
			di = q.GetDeviceInfo()
		})
	return di
}

func (s *SystemComponents) GetCurrentQueueSize() int {
	var size int
	_ = s.Invoke(
		func(sc Scheduler) {
			size = sc.GetCurrentQueueSize()
		})
	return size
}

func (s *SystemComponents) IsQueueOverRefillThreshold() bool {
	var over bool
	_ = s.Invoke(
		func(sc Scheduler) {
			over = sc.IsOverRefillThreshold()
		})
	return over
}
