package core

import (
	"errors"
	"fmt"

	"go.uber.org/dig"
)

// Limits reported by the mock QPU. Validation tests lean on these instead of
// real device constants.
const MockMaxQubits int = 10
const MockMaxShots int = 10000

const validateErrorMessage string = `line 4: unsupported gate "ccx"`

// UnimplementedJob pins the Job interface for fixtures that only need part
// of the lifecycle. Embed it and override what the test cares about.
type UnimplementedJob struct {
	jobData    *JobData
	jobContext *JobContext
}

func (j *UnimplementedJob) New(jd *JobData, jc *JobContext) Job {
	return &UnimplementedJob{jobData: jd, jobContext: jc}
}

func (j *UnimplementedJob) PreProcess()  {}
func (j *UnimplementedJob) Process()     {}
func (j *UnimplementedJob) PostProcess() {}

func (j *UnimplementedJob) IsFinished() bool {
	return j.jobData.Status == SUCCEEDED || j.jobData.Status == FAILED
}

func (j *UnimplementedJob) JobData() *JobData       { return j.jobData }
func (j *UnimplementedJob) JobType() string         { return j.jobData.JobType }
func (j *UnimplementedJob) JobContext() *JobContext { return j.jobContext }

func (j *UnimplementedJob) UpdateJobData(jd *JobData) { j.jobData = jd }

func (j *UnimplementedJob) Clone() Job {
	return &UnimplementedJob{jobData: j.jobData.Clone(), jobContext: j.jobContext}
}

// UnimplementedQPU accepts every circuit and reports a fixed four-qubit
// device. The QPU mocks below embed it and override single methods.
type UnimplementedQPU struct{}

func (u *UnimplementedQPU) Setup(*Conf) error { return nil }
func (u *UnimplementedQPU) Send(Job) error    { return nil }
func (u *UnimplementedQPU) SendWithScale(Job, float64) (Counts, error) {
	return make(Counts), nil
}
func (u *UnimplementedQPU) Validate(string) error { return nil }

func (u *UnimplementedQPU) GetDeviceInfo() *DeviceInfo {
	return &DeviceInfo{
		MaxQubits:  MockMaxQubits,
		MaxShots:   MockMaxShots,
		DeviceName: "unimplementedQPU",
		DeviceInfoSpecJson: `{
			"device_id": "DummyDevice",
			"n_qubits": 4,
			"name": "1",
			"qubits": [
				{"id": 0, "qubit_lifetime": {"t1": 36.9, "t2": 23.8}, "fidelity": 0.12,
				 "meas_error": {"prob_meas0_prep1": 0.1903, "prob_meas1_prep0": 0.2789}},
				{"id": 1, "qubit_lifetime": {"t1": 35.85, "t2": 24.8}, "fidelity": 0.24,
				 "meas_error": {"prob_meas0_prep1": 0.0947, "prob_meas1_prep0": 0.1556}},
				{"id": 2, "qubit_lifetime": {"t1": 35.85, "t2": 24.8}, "fidelity": 0.24,
				 "meas_error": {"prob_meas0_prep1": 0.0947, "prob_meas1_prep0": 0.1556}},
				{"id": 3, "qubit_lifetime": {"t1": 35.85, "t2": 24.8}, "fidelity": 0.24,
				 "meas_error": {"prob_meas0_prep1": 0.0947, "prob_meas1_prep0": 0.1556}}
			]
		}`,
	}
}

type validateErrorQPU struct {
	UnimplementedQPU
}

func (validateErrorQPU) Validate(string) error {
	return errors.New(validateErrorMessage)
}

type successQPU struct {
	UnimplementedQPU
}

// TODO: let jobs own the SUCCEEDED transition
func (successQPU) Send(j Job) error {
	j.JobData().Status = SUCCEEDED
	return nil
}

func (successQPU) SendWithScale(j Job, _ float64) (Counts, error) {
	return Counts{"0": uint32(j.JobData().Shots)}, nil
}

type unimplementedSimulator struct{}

func (u *unimplementedSimulator) Setup(*Conf) error { return nil }
func (u *unimplementedSimulator) State(string) (Statevector, error) {
	return Statevector{complex(1, 0), complex(0, 0)}, nil
}

// passthroughModel returns the lowest-noise feature unchanged, which makes
// mitigation a no-op. Good enough for plumbing tests.
type passthroughModel struct{}

func (passthroughModel) Predict(features []float64) (float64, error) {
	if len(features) == 0 {
		return 0, fmt.Errorf("empty features")
	}
	return features[0], nil
}

type passthroughFitter struct{}

func (u *passthroughFitter) Setup(*Conf) error { return nil }
func (u *passthroughFitter) Fit(features [][]float64, labels []float64) (FitModel, error) {
	return passthroughModel{}, nil
}

type unimplementedDB struct {
	innerJobIDSet map[string]struct{}
}

func (u *unimplementedDB) Setup(DBChan, *Conf) error {
	u.innerJobIDSet = make(map[string]struct{})
	return nil
}

func (u *unimplementedDB) Insert(Job) error    { return nil }
func (u *unimplementedDB) Update(Job) error    { return nil }
func (u *unimplementedDB) Delete(string) error { return nil }

func (u *unimplementedDB) Get(string) (Job, error) {
	return &NormalJob{}, nil
}

func (u *unimplementedDB) AddToInnerJobIDSet(jobID string) {
	u.innerJobIDSet[jobID] = struct{}{}
}

func (u *unimplementedDB) RemoveFromInnerJobIDSet(jobID string) {
	delete(u.innerJobIDSet, jobID)
}

func (u *unimplementedDB) ExistInInnerJobIDSet(jobID string) bool {
	_, ok := u.innerJobIDSet[jobID]
	return ok
}

// runningJobDB answers every Get with a RUNNING job of the asked ID.
type runningJobDB struct {
	unimplementedDB
}

func (runningJobDB) Get(jobID string) (Job, error) {
	return &NormalJob{
		jobData: &JobData{
			ID:     jobID,
			Status: RUNNING,
		},
	}, nil
}

// missingJobDB fails every Get, as if the record never existed.
type missingJobDB struct {
	unimplementedDB
}

func (missingJobDB) Get(jobID string) (Job, error) {
	return nil, fmt.Errorf("failed to find %s", jobID)
}

type acceptAllTranspiler struct{}

func (acceptAllTranspiler) IsAcceptableTranspilerLib(string) bool { return true }
func (acceptAllTranspiler) Setup(*Conf) error                     { return nil }
func (acceptAllTranspiler) GetHealth() error                      { return nil }
func (acceptAllTranspiler) Transpile(Job) error                   { return nil }
func (acceptAllTranspiler) TearDown()                             {}

type unimplementedScheduler struct{}

func (u *unimplementedScheduler) Setup(*Conf) error           { return nil }
func (u *unimplementedScheduler) Start() error                { return nil }
func (u *unimplementedScheduler) HandleJob(Job)               {}
func (u *unimplementedScheduler) GetCurrentQueueSize() int    { return 0 }
func (u *unimplementedScheduler) IsOverRefillThreshold() bool { return false }

// testProviders is one provider per collaborator interface. Constructors
// below copy the default set and swap single fields; SystemComponents.Setup
// runs each component's Setup, so no provider needs manual initialization.
type testProviders struct {
	qpu        QPUManager
	db         DBManager
	transpiler Transpiler
	scheduler  Scheduler
	simulator  Simulator
	fitter     Fitter
	conf       *Conf
}

func defaultTestProviders() testProviders {
	return testProviders{
		qpu:        &successQPU{},
		db:         &runningJobDB{},
		transpiler: &acceptAllTranspiler{},
		scheduler:  &unimplementedScheduler{},
		simulator:  &unimplementedSimulator{},
		fitter:     &passthroughFitter{},
		conf:       &Conf{},
	}
}

func (p testProviders) build() *SystemComponents {
	c := dig.New()
	c.Provide(func() QPUManager { return p.qpu })
	c.Provide(func() DBManager { return p.db })
	c.Provide(func() Transpiler { return p.transpiler })
	c.Provide(func() Scheduler { return p.scheduler })
	c.Provide(func() Simulator { return p.simulator })
	c.Provide(func() Fitter { return p.fitter })
	s := NewSystemComponents(c)
	s.Setup(p.conf)
	return s
}

func SCWithUnimplementedContainer() *SystemComponents {
	return defaultTestProviders().build()
}

func SCWithValidateErrorContainer() *SystemComponents {
	p := defaultTestProviders()
	p.qpu = &validateErrorQPU{}
	return p.build()
}

func SCWithDBContainer() *SystemComponents {
	p := defaultTestProviders()
	p.db = &MemoryDB{}
	return p.build()
}

func SCWithScheduler(sc Scheduler) *SystemComponents {
	p := defaultTestProviders()
	p.db = &MemoryDB{}
	p.scheduler = sc
	p.conf = &Conf{QueueMaxSize: 1000}
	return p.build()
}

func SCWithTranspiler(tr Transpiler) *SystemComponents {
	p := defaultTestProviders()
	p.transpiler = tr
	return p.build()
}
