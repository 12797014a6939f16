package sampling

import (
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/qem-team/qem-engine/coreapp/mitig"
	"go.uber.org/zap"
)

const SAMPLING_JOB = "sampling"

// SamplingJob runs a circuit for raw counts. Readout mitigation is applied
// in post-processing when the job requests it.
type SamplingJob struct {
	jobData        *core.JobData
	jobContext     *core.JobContext
	mitigationInfo *mitig.MitigationInfo
}

func (j *SamplingJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &SamplingJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *SamplingJob) PreProcess() {
	if err := j.prepare(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
	j.mitigationInfo = mitig.NewMitigationInfoFromJobData(j.JobData())
}

// prepare rejects duplicate job IDs, transpiles when the job asks for it,
// and claims the ID once the job is ready to run.
func (j *SamplingJob) prepare() error {
	jd := j.JobData()
	container := core.GetSystemComponents().Container
	err := container.Invoke(
		func(d core.DBManager) error {
			if d.ExistInInnerJobIDSet(jd.ID) {
				return core.ErrorJobIDConflict
			}
			return nil
		})
	if err != nil {
		return err
	}
	if jd.NeedTranspiling() {
		err = container.Invoke(
			func(t core.Transpiler) error {
				return t.Transpile(j)
			})
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to transpile a job(%s). Reason:%s", jd.ID, err.Error()))
			return err
		}
	} else {
		zap.L().Debug(fmt.Sprintf("skip transpiling a job(%s)/Transpiler:%v",
			jd.ID, jd.Transpiler))
	}
	return container.Invoke(
		func(d core.DBManager) error {
			d.AddToInnerJobIDSet(jd.ID)
			return nil
		})
}

func (j *SamplingJob) Process() {
	jd := j.JobData()
	err := core.GetSystemComponents().Container.Invoke(
		func(q core.QPUManager) error {
			return q.Send(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to send a job(%s) to QPU. Reason:%s", jd.ID, err.Error()))
		jd.Status = core.FAILED
	}
	zap.L().Debug(fmt.Sprintf("finished to process a job(%s)/status:%s", jd.ID, jd.Status))
}

func (j *SamplingJob) PostProcess() {
	if ro, ok := j.mitigationInfo.Property("readout"); ok && ro == mitig.READOUT_PSEUDO_INVERSE {
		zap.L().Debug(fmt.Sprintf("applying pseudo inverse mitigation to a job(%s)", j.JobData().ID))
		mitig.PseudoInverseMitigation(j.JobData())
	} else {
		zap.L().Debug(fmt.Sprintf("no readout mitigation for a job(%s)", j.JobData().ID))
	}
	j.mitigationInfo.Mitigated = true
}

func (j *SamplingJob) IsFinished() bool {
	if j.mitigationInfo != nil && j.mitigationInfo.NeedToBeMitigated {
		return j.mitigationInfo.Mitigated
	}
	return j.JobData().Status == core.SUCCEEDED || j.JobData().Status == core.FAILED
}

func (j *SamplingJob) JobData() *core.JobData {
	return j.jobData
}

func (j *SamplingJob) JobType() string {
	return SAMPLING_JOB
}

func (j *SamplingJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *SamplingJob) UpdateJobData(jd *core.JobData) {
	j.jobData = jd
}

func (j *SamplingJob) Clone() core.Job {
	return &SamplingJob{
		jobData:        j.jobData.Clone(),
		jobContext:     j.jobContext,
		mitigationInfo: j.mitigationInfo,
	}
}
