package poller

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/qem-team/qem-engine/coreapp/cloud"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

type cloudPollClient struct {
	client *cloud.Client

	count      int
	endpoint   string
	edgeName   string
	deviceName string
}

type cloudPollClientParams struct {
	cred       aws.Credentials
	region     string
	count      int
	endPoint   string
	edgeName   string
	deviceName string

	apiKey string
}

func newCloudPollClient(p *cloudPollClientParams) (*cloudPollClient, error) {
	cli, err := cloud.NewClient(p.endPoint, p.apiKey)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to create a client/reason:%s", err))
		return nil, err
	}
	return &cloudPollClient{
		client:     cli,
		count:      p.count,
		endpoint:   p.endPoint,
		edgeName:   p.edgeName,
		deviceName: p.deviceName,
	}, nil
}

func (c *cloudPollClient) request() ([]core.Job, error) {
	zap.L().Debug(fmt.Sprintf("requesting get jobs to %s. EdgeName: %s, DeviceName: %s",
		c.endpoint, c.edgeName, c.deviceName))
	jds, err := c.client.GetJobs(context.TODO(), c.deviceName, core.SUBMITTED, c.count)
	if err != nil {
		return []core.Job{}, fmt.Errorf("failed to get jobs/reason:%s", err)
	}
	return toJobSlice(jds)
}

func toJobSlice(jds []*core.JobData) ([]core.Job, error) {
	jobs := make([]core.Job, 0, len(jds))
	for _, jd := range jds {
		jc, err := core.NewJobContext()
		if err != nil {
			zap.L().Error(fmt.Sprintf("Failed to create a job context. Reason:%s", err))
			return []core.Job{}, err
		}
		jobs = append(jobs, buildJob(jd, jc))
	}
	return jobs, nil
}

// buildJob turns one polled record into a runnable job. A record that fails
// device validation or the parameter checks still comes back as an
// InvalidJob carrying the failure, so the rejection reaches the cloud.
func buildJob(jd *core.JobData, jc *core.JobContext) core.Job {
	err := core.GetSystemComponents().Invoke(
		func(q core.QPUManager) error {
			return q.Validate(jd.QASM)
		})
	if err == nil {
		var job core.Job
		job, err = core.GetJobManager().NewJobFromJobDataWithValidation(jd, jc)
		if err == nil {
			zap.L().Debug(fmt.Sprintf("Created a job. Job ID:%s created:%s, status:%s, transpiler:%v",
				jd.ID, jd.Created, jd.Status, jd.Transpiler))
			return job
		}
	}
	msg := core.SetFailureWithErrorToJobData(jd, err)
	zap.L().Error(fmt.Sprintf("Failed to validate a job. Reason:%s", msg))
	return (&core.InvalidJob{}).New(jd, jc)
}
