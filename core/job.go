package core

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"
)

var ErrorJobIDConflict = errors.New("jobID is already used")
var jobManager *JobManager

const NORMAL_JOB = "normal"

// Job is one unit of work moving through the scheduler. PreProcess, Process
// and PostProcess run in order until IsFinished reports true.
type Job interface {
	New(*JobData, *JobContext) Job
	PreProcess()
	Process()
	PostProcess()
	IsFinished() bool

	JobData() *JobData
	UpdateJobData(*JobData)
	JobType() string
	JobContext() *JobContext
	Clone() Job
}

type JobContext struct {
	*Channels
}

func NewJobContext() (*JobContext, error) {
	s := GetSystemComponents()
	if s == nil {
		return nil, errors.New("system components is not initialized")
	}
	if s.Channels == nil {
		return nil, errors.New("channels is not initialized")
	}
	return &JobContext{Channels: s.Channels}, nil
}

type JobParam struct {
	JobID          string
	QASM           string
	Shots          int
	Transpiler     *TranspilerConfig
	JobType        string
	MitigationInfo string
}

// NormalJob runs one circuit as-is and keeps the raw counts. The mitigation
// job types build on the same lifecycle with their own pre/post stages.
type NormalJob struct {
	jobData    *JobData
	jobContext *JobContext
}

func (j *NormalJob) New(jd *JobData, jc *JobContext) Job {
	return &NormalJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *NormalJob) PreProcess() {
	jd := j.JobData()
	if !jd.NeedTranspiling() {
		zap.L().Debug(fmt.Sprintf("skip transpiling a job(%s)/Transpiler:%v", jd.ID, jd.Transpiler))
		return
	}
	err := GetSystemComponents().Container.Invoke(
		func(t Transpiler) error {
			return t.Transpile(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to transpile a job(%s). Reason:%s", jd.ID, err.Error()))
		SetFailureWithError(j, err)
	}
}

func (j *NormalJob) Process() {
	jd := j.JobData()
	err := GetSystemComponents().Container.Invoke(
		func(q QPUManager) error {
			return q.Send(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to send a job(%s) to QPU. Reason:%s", jd.ID, err.Error()))
		jd.Status = FAILED
	}
	zap.L().Debug(fmt.Sprintf("finished to process a job(%s)/status:%s", jd.ID, jd.Status))
}

func (j *NormalJob) PostProcess() {}

func (j *NormalJob) IsFinished() bool {
	return j.JobData().Status == SUCCEEDED || j.JobData().Status == FAILED
}

func (j *NormalJob) JobData() *JobData {
	return j.jobData
}

func (j *NormalJob) JobType() string {
	return NORMAL_JOB
}

func (j *NormalJob) JobContext() *JobContext {
	return j.jobContext
}

func (j *NormalJob) UpdateJobData(jd *JobData) {
	j.jobData = jd
}

func (j *NormalJob) Clone() Job {
	return &NormalJob{
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
	}
}

// InvalidJob carries a job that failed validation through the pipeline
// without touching the QPU, so its rejection still reaches the cloud.
type InvalidJob struct {
	jobData    *JobData
	jobContext *JobContext
}

func (j *InvalidJob) New(jd *JobData, jc *JobContext) Job {
	return &InvalidJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *InvalidJob) PreProcess() {}

func (j *InvalidJob) Process() {}

func (j *InvalidJob) PostProcess() {}

func (j *InvalidJob) IsFinished() bool {
	return j.JobData().Status == SUCCEEDED || j.JobData().Status == FAILED
}

func (j *InvalidJob) JobData() *JobData {
	return j.jobData
}

// JobType reports the type the rejected job claimed, not a type of its own.
func (j *InvalidJob) JobType() string {
	return j.jobData.JobType
}

func (j *InvalidJob) JobContext() *JobContext {
	return j.jobContext
}

func (j *InvalidJob) UpdateJobData(jd *JobData) {
	j.jobData = jd
}

func (j *InvalidJob) Clone() Job {
	return &InvalidJob{
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
	}
}

// GetJob loads a job from the DB service, or nil when it is not there.
func GetJob(id string) Job {
	var job Job
	err := GetSystemComponents().Container.Invoke(
		func(d DBManager) error {
			var getErr error
			job, getErr = d.Get(id)
			return getErr
		})
	if err != nil {
		zap.L().Info(fmt.Sprintf("failed to find a job(%s)", id))
		return nil
	}
	return job
}

// JobManager maps job type names to registered prototypes and builds fresh
// instances from them.
type JobManager struct {
	acceptableJobs []Job // prototypes, never run
}

func (m *JobManager) RegisterJob(jobs ...Job) error {
	for _, job := range jobs {
		for _, p := range m.acceptableJobs {
			if reflect.TypeOf(p) == reflect.TypeOf(job) {
				return fmt.Errorf("job:%s is already registered", job.JobType())
			}
		}
		zap.L().Debug(fmt.Sprintf("registering job type %s", job.JobType()))
		m.acceptableJobs = append(m.acceptableJobs, job)
	}
	return nil
}

func (m *JobManager) AcceptableJobTypes() []string {
	types := []string{}
	for _, job := range m.acceptableJobs {
		types = append(types, job.JobType())
	}
	return types
}

func (m *JobManager) NewJobWithValidation(param *JobParam, jc *JobContext) (Job, error) {
	if param.JobType == "" {
		param.JobType = NORMAL_JOB
	}
	if err := validateJobParam(param); err != nil {
		zap.L().Info(fmt.Sprintf("failed to validate job param. Reason:%s", err.Error()))
		return nil, err
	}
	return m.NewJob(param, jc)
}

func (m *JobManager) NewJob(param *JobParam, jc *JobContext) (Job, error) {
	jd := NewJobData()
	jd.ID = param.JobID
	jd.QASM = param.QASM
	jd.Shots = param.Shots
	jd.Transpiler = param.Transpiler
	jd.JobType = param.JobType
	jd.MitigationInfo = param.MitigationInfo
	return m.NewJobFromJobData(jd, jc)
}

func (m *JobManager) NewJobFromJobDataWithValidation(jd *JobData, jc *JobContext) (Job, error) {
	if jd.JobType == "" {
		jd.JobType = NORMAL_JOB
	}
	p := &JobParam{
		JobID:          jd.ID,
		QASM:           jd.QASM,
		Shots:          jd.Shots,
		Transpiler:     jd.Transpiler,
		JobType:        jd.JobType,
		MitigationInfo: jd.MitigationInfo,
	}
	if err := validateJobParam(p); err != nil {
		zap.L().Info(fmt.Sprintf("failed to validate job data. Reason:%s", err.Error()))
		return nil, err
	}
	return m.NewJobFromJobData(jd, jc)
}

func (m *JobManager) NewJobFromJobData(jd *JobData, jc *JobContext) (Job, error) {
	if jd.JobType == "" {
		jd.JobType = NORMAL_JOB
	}
	zap.L().Debug(fmt.Sprintf("creating a job from job data. Job ID:%s, Job Type:%s", jd.ID, jd.JobType))
	proto, ok := m.prototypeFor(jd.JobType)
	if !ok {
		return nil, fmt.Errorf("job type %s is not registered", jd.JobType)
	}
	// New runs on a zero value of the prototype's type, so prototypes stay
	// pristine.
	fresh := reflect.New(reflect.TypeOf(proto)).Elem().Interface()
	return fresh.(Job).New(jd, jc), nil
}

func (m *JobManager) prototypeFor(jobType string) (Job, bool) {
	for _, p := range m.acceptableJobs {
		if p.JobType() == jobType {
			return p, true
		}
	}
	return nil, false
}

func validateJobParam(p *JobParam) error {
	if p.JobID == "" {
		return errors.New("jobID is empty")
	}
	if p.QASM == "" {
		zap.L().Info(fmt.Sprintf("program is empty/jobID:%s", p.JobID))
		return errors.New("program is empty")
	}
	if p.Shots <= 0 {
		msg := fmt.Sprintf("shots(%d) must be greater than 0", p.Shots)
		zap.L().Info(msg + fmt.Sprintf("/jobID:%s", p.JobID))
		return errors.New(msg)
	}
	maxShots := GetSystemComponents().GetDeviceInfo().MaxShots
	if p.Shots > maxShots {
		msg := fmt.Sprintf("shots(%d) is over the limit(%d)", p.Shots, maxShots)
		zap.L().Info(msg + fmt.Sprintf("/jobID:%s", p.JobID))
		return errors.New(msg)
	}
	err := GetSystemComponents().Container.Invoke(
		func(t Transpiler) error {
			if p.Transpiler.TranspilerLib == nil {
				return nil // no transpiler requested
			}
			if t.IsAcceptableTranspilerLib(*p.Transpiler.TranspilerLib) {
				return nil
			}
			return fmt.Errorf("transpiler lib %s is not acceptable", *p.Transpiler.TranspilerLib)
		})
	if err != nil {
		zap.L().Info(fmt.Sprintf("failed to validate transpiler lib/JobID:%s/reason:%s", p.JobID, err.Error()))
		return err
	}
	return nil
}

func NewJobManager(jobs ...Job) (*JobManager, error) {
	jm := &JobManager{}
	if err := jm.RegisterJob(jobs...); err != nil {
		return nil, err
	}
	jobManager = jm
	return jm, nil
}

func GetJobManager() *JobManager {
	return jobManager
}

func SetFailureWithError(j Job, err error) string {
	return SetFailureWithErrorToJobData(j.JobData(), err)
}

// SetFailureWithErrorToJobData marks the job FAILED carrying the error as
// its result message, and returns that message.
func SetFailureWithErrorToJobData(jd *JobData, err error) string {
	msg := err.Error()
	jd.Result.Message = msg
	jd.Status = FAILED
	jd.Ended = strfmt.DateTime(time.Now())
	return msg
}
