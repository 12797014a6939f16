//go:build unit
// +build unit

package scheduler

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/stretchr/testify/assert"
)

var jm *core.JobManager

const (
	PRE_PROCESS_FAIL_JOB     = "pre_process_fail_job"
	PROCESS_FAIL_JOB         = "process_fail_job"
	POST_PROCESS_FAIL_JOB    = "post_process_fail_job"
	POST_PROCESS_SUCCESS_JOB = "post_process_success_job"
	PROCESS_PANIC_JOB        = "process_panic_job"
)

func TestMain(m *testing.M) {
	core.ResetSetting()
	jm, _ = core.NewJobManager(
		&core.NormalJob{},
		&preProcessFailJob{},
		&processFailJob{},
		&postProcessFailJob{},
		&postProcessSuccessJob{},
		&processPanicJob{},
	)
	m.Run()
}

func TestHandleJob(t *testing.T) {
	nsc := &NormalScheduler{}
	s := core.SCWithScheduler(nsc)
	defer s.TearDown()
	assert.Nil(t, s.StartContainer())

	tests := []struct {
		name            string
		job             core.Job
		wantStatusSlice []core.Status
	}{
		{
			name:            "ready job runs to success",
			job:             testJob(t, core.NORMAL_JOB, core.READY),
			wantStatusSlice: []core.Status{core.READY, core.RUNNING, core.SUCCEEDED},
		},
		{
			name:            "job arriving in FAILED is dropped",
			job:             testJob(t, core.NORMAL_JOB, core.FAILED),
			wantStatusSlice: []core.Status{core.FAILED},
		},
		{
			name:            "pre-process failure skips the queue",
			job:             testJob(t, PRE_PROCESS_FAIL_JOB, core.READY),
			wantStatusSlice: []core.Status{core.READY, core.FAILED},
		},
		{
			name:            "pre-process-fail job arriving in FAILED is dropped",
			job:             testJob(t, PRE_PROCESS_FAIL_JOB, core.FAILED),
			wantStatusSlice: []core.Status{core.FAILED},
		},
		{
			name:            "process failure ends the job",
			job:             testJob(t, PROCESS_FAIL_JOB, core.READY),
			wantStatusSlice: []core.Status{core.READY, core.RUNNING, core.FAILED},
		},
		{
			name:            "post-process-fail job arriving in FAILED is dropped",
			job:             testJob(t, POST_PROCESS_FAIL_JOB, core.FAILED),
			wantStatusSlice: []core.Status{core.FAILED},
		},
		{
			name:            "post-process failure ends the job",
			job:             testJob(t, POST_PROCESS_FAIL_JOB, core.READY),
			wantStatusSlice: []core.Status{core.READY, core.RUNNING, core.FAILED},
		},
		{
			name:            "post-process success ends the job",
			job:             testJob(t, POST_PROCESS_SUCCESS_JOB, core.READY),
			wantStatusSlice: []core.Status{core.READY, core.RUNNING, core.SUCCEEDED},
		},
		{
			name:            "panic in process ends the job in FAILED",
			job:             testJob(t, PROCESS_PANIC_JOB, core.READY),
			wantStatusSlice: []core.Status{core.READY, core.RUNNING, core.FAILED},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobID := tt.job.JobData().ID
			var wg sync.WaitGroup
			wg.Add(1)
			nsc.HandleJobForTest(tt.job, &wg)
			wg.Wait()
			assert.Equal(t, tt.wantStatusSlice, nsc.historyOf(jobID))
		})
	}
}

func testJob(t *testing.T, jobType string, firstStatus core.Status) core.Job {
	jd := core.NewJobData()
	jd.ID = uuid.NewString()
	jd.QASM = "test_qasm"
	jd.Shots = 1000
	jd.Status = firstStatus
	jd.JobType = jobType
	jd.Transpiler = core.DEFAULT_TRANSPILER_CONFIG()
	jc, _ := core.NewJobContext()
	j, err := jm.NewJobFromJobData(jd, jc)
	assert.Nil(t, err)
	return j
}

func wrapUnimplemented(jd *core.JobData, jc *core.JobContext) *core.UnimplementedJob {
	return (&core.UnimplementedJob{}).New(jd, jc).(*core.UnimplementedJob)
}

type preProcessFailJob struct {
	*core.UnimplementedJob
}

func (j *preProcessFailJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &preProcessFailJob{UnimplementedJob: wrapUnimplemented(jd, jc)}
}

func (j *preProcessFailJob) PreProcess() {
	j.JobData().Status = core.FAILED
}

func (j *preProcessFailJob) JobType() string {
	return PRE_PROCESS_FAIL_JOB
}

type processFailJob struct {
	*core.UnimplementedJob
}

func (j *processFailJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &processFailJob{UnimplementedJob: wrapUnimplemented(jd, jc)}
}

func (j *processFailJob) Process() {
	j.JobData().Status = core.FAILED
}

func (j *processFailJob) JobType() string {
	return PROCESS_FAIL_JOB
}

type postProcessFailJob struct {
	*core.UnimplementedJob
}

func (j *postProcessFailJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &postProcessFailJob{UnimplementedJob: wrapUnimplemented(jd, jc)}
}

func (j *postProcessFailJob) Process() {
	j.JobData().Status = core.RUNNING
}

func (j *postProcessFailJob) PostProcess() {
	j.JobData().Status = core.FAILED
}

func (j *postProcessFailJob) JobType() string {
	return POST_PROCESS_FAIL_JOB
}

type postProcessSuccessJob struct {
	*core.UnimplementedJob
}

func (j *postProcessSuccessJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &postProcessSuccessJob{UnimplementedJob: wrapUnimplemented(jd, jc)}
}

func (j *postProcessSuccessJob) Process() {
	j.JobData().Status = core.RUNNING
}

func (j *postProcessSuccessJob) PostProcess() {
	j.JobData().Status = core.SUCCEEDED
}

func (j *postProcessSuccessJob) JobType() string {
	return POST_PROCESS_SUCCESS_JOB
}

type processPanicJob struct {
	*core.UnimplementedJob
}

func (j *processPanicJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &processPanicJob{UnimplementedJob: wrapUnimplemented(jd, jc)}
}

func (j *processPanicJob) Process() {
	panic("panic in process")
}

func (j *processPanicJob) JobType() string {
	return PROCESS_PANIC_JOB
}
