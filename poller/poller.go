package poller

import (
	"fmt"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

const PollerTaskName = "poller"

// The poller backs off in two stages: after the first empty poll it enters
// SUB_IDLE and keeps the normal period for MaxRetry attempts, then drops to
// IDLE with the longer idle period until jobs show up again.
type state int

const (
	POLLING state = iota
	SUB_IDLE
	IDLE
)

func (s state) String() string {
	switch s {
	case POLLING:
		return "POLLING"
	case SUB_IDLE:
		return "SUB_IDLE"
	case IDLE:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

const (
	DEFAULT_DEVICE        = "dummy_device"
	DEFAULT_EDGE          = "dummy_edge"
	DEFAULT_COUNT         = 10
	DEFAULT_NORMAL_PERIOD = time.Duration(10) * time.Second
	DEFAULT_IDLE_PERIOD   = time.Duration(10) * time.Second
	DEFAULT_MAX_RETRY     = 3
	DEFAULT_REGION        = "ap-northeast-1"
	DEFAULT_ENDPOINT      = "localhost:8080"
	DEFAULT_ACCESS_KEY    = "hogehoge"
	DEFAULT_SECRET_KEY    = "fugafuga"
	DEFAULT_API_KEY       = "DefaultAPIKey"
)

type Poller struct {
	Device       string        `toml:"device"`
	Edge         string        `toml:"edge"`
	Count        int           `toml:"count"`
	NormalPeriod time.Duration `toml:"normal_period"`
	IdlePeriod   time.Duration `toml:"idle_period"`
	MaxRetry     int           `toml:"max_retry"`

	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret"`
	SessionToken string `toml:"session_token"`
	APIKey       string `toml:"api_key"`

	pollClient

	cred aws.Credentials

	currentPeriod time.Duration
	noJobsCount   int
	state         state

	sysCom *core.SystemComponents
}

type pollClient interface {
	request() ([]core.Job, error)
}

func (p *Poller) GetEmptyParams() interface{} {
	return &Poller{}
}

// SetParams fills the poller from the run-group params map. Absent or
// zero-valued keys fall back to the defaults above.
func (p *Poller) SetParams(params interface{}) error {
	if params == nil {
		zap.L().Debug("no params for poller")
		return nil
	}
	pp, ok := params.(map[string]interface{})
	if !ok {
		err := fmt.Errorf("failed to set params for poller/params: %s", params)
		zap.L().Error(err.Error())
		return err
	}
	zap.L().Debug(fmt.Sprintf("Set params for poller: %v", pp))

	setField[string]("device", &p.Device, pp, DEFAULT_DEVICE)
	setField[string]("edge", &p.Edge, pp, DEFAULT_EDGE)
	setField[int]("count", &p.Count, pp, DEFAULT_COUNT)
	setField[int]("max_retry", &p.MaxRetry, pp, DEFAULT_MAX_RETRY)
	setField[string]("region", &p.Region, pp, DEFAULT_REGION)
	setField[string]("endpoint", &p.Endpoint, pp, DEFAULT_ENDPOINT)
	setField[string]("access_key", &p.AccessKey, pp, DEFAULT_ACCESS_KEY)
	setField[string]("secret_key", &p.SecretKey, pp, DEFAULT_SECRET_KEY)
	setField[string]("api_key", &p.APIKey, pp, DEFAULT_API_KEY)
	setField[string]("session_token", &p.SessionToken, pp, "")

	setDurationField("normal_period", &p.NormalPeriod, pp, DEFAULT_NORMAL_PERIOD)
	setDurationField("idle_period", &p.IdlePeriod, pp, DEFAULT_IDLE_PERIOD)
	return nil
}

// setField reads one params key into target. TOML integers arrive as int64
// and are narrowed first; absent, zero or mistyped values fall back to the
// default.
func setField[T string | int | bool](key string, target *T, pp map[string]interface{}, defaultVal T) {
	v, ok := pp[key]
	if i, isInt64 := v.(int64); isInt64 {
		v = int(i)
	}
	if ok {
		if t, isT := v.(T); isT && !reflect.ValueOf(t).IsZero() {
			*target = t
			return
		}
	}
	zap.L().Debug(fmt.Sprintf("using default for %s: %v", key, defaultVal))
	*target = defaultVal
}

func setDurationField(key string, target *time.Duration, pp map[string]interface{}, defaultVal time.Duration) {
	if s, ok := pp[key].(string); ok && s != "" {
		dur, err := time.ParseDuration(s)
		if err == nil {
			*target = dur
			return
		}
		zap.L().Error(fmt.Sprintf("bad duration for %s/reason:%s", key, err))
	}
	zap.L().Debug(fmt.Sprintf("using default for %s: %v", key, defaultVal))
	*target = defaultVal
}

func (p *Poller) Setup() error {
	cred := aws.Credentials{
		AccessKeyID:     p.AccessKey,
		SecretAccessKey: p.SecretKey,
		SessionToken:    p.SessionToken,
	}
	client, err := newCloudPollClient(
		&cloudPollClientParams{
			cred:       cred,
			region:     p.Region,
			count:      p.Count,
			endPoint:   p.Endpoint,
			edgeName:   p.Edge,
			deviceName: p.Device,
			apiKey:     p.APIKey,
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to set up the poll client/reason:%s", err))
		return err
	}
	zap.L().Info(fmt.Sprintf("EdgeName:%s, DeviceName:%s", p.Edge, p.Device))
	p.pollClient = client
	p.cred = cred
	p.currentPeriod = p.NormalPeriod
	p.noJobsCount = 0
	p.state = POLLING
	p.sysCom = core.GetSystemComponents()
	return nil
}

// RequirePeriodUpdate lets the run group pick up the period the state
// machine currently wants.
func (p *Poller) RequirePeriodUpdate() (bool, time.Duration) {
	return true, p.currentPeriod
}

func (p *Poller) Task() {
	zap.L().Debug("Poller is getting jobs")
	jobsNum, err := p.getJobs()
	if err != nil {
		zap.L().Info(fmt.Sprintf("no jobs fetched (noJobsCount:%d)/reason:%s",
			p.noJobsCount, err))
	}
	if err != nil || jobsNum == 0 {
		p.onEmptyPoll()
	} else {
		p.onJobs()
	}
}

func (p *Poller) onEmptyPoll() {
	switch p.state {
	case POLLING:
		p.noJobsCount = 1
		p.state = SUB_IDLE
		zap.L().Debug(fmt.Sprintf("Transition to sub idle mode. Retry after %s", p.NormalPeriod))
	case SUB_IDLE:
		p.noJobsCount++
		if p.noJobsCount < p.MaxRetry {
			zap.L().Debug(fmt.Sprintf("Retry after %s", p.NormalPeriod))
			return
		}
		zap.L().Info("Reached max retry. Transition to idle mode")
		p.noJobsCount = 0
		p.state = IDLE
		p.currentPeriod = p.IdlePeriod
	case IDLE:
		zap.L().Debug(fmt.Sprintf("Already in idle mode. Retry after idle period %s", p.IdlePeriod))
	default:
		zap.L().Error(fmt.Sprintf("Unknown state %d", int(p.state)))
	}
}

func (p *Poller) onJobs() {
	switch p.state {
	case POLLING:
		zap.L().Debug("keep polling")
	case SUB_IDLE:
		zap.L().Info("Transition to polling mode from sub_idle state")
		p.state = POLLING
		p.noJobsCount = 0
	case IDLE:
		zap.L().Info("Transition to polling mode from idle state")
		p.currentPeriod = p.NormalPeriod
		p.state = POLLING
		p.noJobsCount = 0
	default:
		zap.L().Error(fmt.Sprintf("Unknown state %d", int(p.state)))
	}
}

func (p *Poller) Cleanup() {
	zap.L().Info("Poller is cleaning up")
}

func (p *Poller) getJobs() (int, error) {
	if err := passPollingCondition(); err != nil {
		zap.L().Info(fmt.Sprintf("skipping this poll. reason:%s", err))
		return 0, err
	}
	jobs, err := p.pollClient.request()
	if err != nil {
		zap.L().Error(fmt.Sprintf("poll request failed/reason:%s", err))
		return 0, err
	}
	zap.L().Debug(fmt.Sprintf("get %d jobs", len(jobs)))
	for _, job := range jobs {
		jd := job.JobData()
		zap.L().Debug(fmt.Sprintf("handing job %s (created:%s) to the scheduler", jd.ID, jd.Created))
		err := p.sysCom.Invoke(
			func(s core.Scheduler) error {
				s.HandleJob(job)
				return nil
			})
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to hand job %s to the scheduler/reason:%s", jd.ID, err))
		}
	}
	return len(jobs), nil
}

// passPollingCondition gates a poll on local capacity and device liveness, so
// the engine never fetches jobs it cannot start.
func passPollingCondition() error {
	s := core.GetSystemComponents()
	if s.IsQueueOverRefillThreshold() {
		return fmt.Errorf("queue size is over refill-threshold. current queue size:%d",
			s.GetCurrentQueueSize())
	}
	if di := s.GetDeviceInfo(); di.Status != core.Available {
		return fmt.Errorf("device is not available. current status:%s", di.Status)
	}
	return nil
}
