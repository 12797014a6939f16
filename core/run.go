package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/oklog/run"
	"github.com/qem-team/qem-engine/coreapp/common"
	"go.uber.org/zap"
)

var runContext *RunContext

type PeriodicTaskImplMap map[string]PeriodicTaskImpl
type InternalJobServerImplMap map[string]InternalJobServerImpl
type APIServerImplMap map[string]APIServerImpl

type PeriodicTaskMap map[string]*PeriodicTask
type InternalJobServerMap map[string]*InternalJobServer
type APIServerMap map[string]*APIServer

// ImplMaps collects the registered implementations a run_group section is
// allowed to name. Naming an unregistered member fails the decode.
type ImplMaps struct {
	PeriodicTaskImplMap      PeriodicTaskImplMap
	InternalJobServerImplMap InternalJobServerImplMap
	APIServerImplMap         APIServerImplMap
}

type Runner interface {
	*PeriodicTask | *InternalJobServer | *APIServer
	GetParams() interface{}
}

type RunnerImpl interface {
	GetEmptyParams() interface{}
	SetParams(interface{}) error
	Setup() error
}

// RunContext owns the process run group. Its members come from the
// run_group sections of the settings file, paired with the implementations
// the command registered.
type RunContext struct {
	*run.Group
	context.Context

	RunGroupMaps *RunGroupMaps
}

// RunGroupMaps is the registry of built runners, keyed by their run_group
// member names.
type RunGroupMaps struct {
	PeriodicTasks      PeriodicTaskMap
	InternalJobServers InternalJobServerMap
	APIServers         APIServerMap
}

// runGroupFile is the decode target for the settings file. Only the
// run_group tree is read here; the component tables belong to Setting and
// the flat fields to Conf.
type runGroupFile struct {
	RunGroup struct {
		PeriodicTasks      map[string]runnerSetting `toml:"periodic_tasks"`
		InternalJobServers map[string]runnerSetting `toml:"internal_job_servers"`
		APIServers         map[string]runnerSetting `toml:"api_servers"`
	} `toml:"run_group"`
}

// runnerSetting is one run_group member as written in TOML. Params stays
// untyped; each implementation picks its own fields out in SetParams.
type runnerSetting struct {
	Period time.Duration `toml:"period"`
	Params interface{}   `toml:"params"`
}

func NewRunContext() *RunContext {
	return &RunContext{
		Group:   &run.Group{},
		Context: context.Background(),
		RunGroupMaps: &RunGroupMaps{
			PeriodicTasks:      make(PeriodicTaskMap),
			InternalJobServers: make(InternalJobServerMap),
			APIServers:         make(APIServerMap),
		},
	}
}

// NewRunContextWithSettingPath decodes the run_group sections of the
// settings file and builds every configured member: the implementation is
// looked up in ImplMaps, receives its params, is set up and added to the
// run group.
func NewRunContextWithSettingPath(settingsPath string, im *ImplMaps) (*RunContext, error) {
	tomlString, err := common.ReadSettingsFile(settingsPath)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to read the settings file/reason:%s", err))
		return nil, err
	}
	var file runGroupFile
	md, err := toml.Decode(tomlString, &file)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode the settings file/reason:%s", err))
		return nil, err
	}
	if err := rejectUnknownRunGroupKeys(md); err != nil {
		zap.L().Error(err.Error())
		return nil, err
	}

	rc := NewRunContext()
	if err := buildRunners[*PeriodicTask, PeriodicTaskImpl](
		file.RunGroup.PeriodicTasks, im.PeriodicTaskImplMap,
		func(impl PeriodicTaskImpl, s runnerSetting) *PeriodicTask {
			return &PeriodicTask{Period: s.Period, Params: s.Params, PeriodicTaskImpl: impl}
		},
		rc.RunGroupMaps.PeriodicTasks, rc.AddPeriodicTask); err != nil {
		return nil, err
	}
	if err := buildRunners[*InternalJobServer, InternalJobServerImpl](
		file.RunGroup.InternalJobServers, im.InternalJobServerImplMap,
		func(impl InternalJobServerImpl, s runnerSetting) *InternalJobServer {
			return &InternalJobServer{Params: s.Params, InternalJobServerImpl: impl}
		},
		rc.RunGroupMaps.InternalJobServers, rc.AddInternalJobServer); err != nil {
		return nil, err
	}
	if err := buildRunners[*APIServer, APIServerImpl](
		file.RunGroup.APIServers, im.APIServerImplMap,
		func(impl APIServerImpl, s runnerSetting) *APIServer {
			return &APIServer{Params: s.Params, APIServerImpl: impl}
		},
		rc.RunGroupMaps.APIServers, rc.AddAPIServer); err != nil {
		return nil, err
	}
	zap.L().Info(fmt.Sprintf("initialized the run context with %d periodic tasks, %d internal job servers and %d api servers",
		len(rc.RunGroupMaps.PeriodicTasks), len(rc.RunGroupMaps.InternalJobServers), len(rc.RunGroupMaps.APIServers)))
	return rc, nil
}

// rejectUnknownRunGroupKeys fails on settings the decode did not consume,
// but only under run_group: the rest of the file belongs to other decoders.
func rejectUnknownRunGroupKeys(md toml.MetaData) error {
	for _, key := range md.Undecoded() {
		if strings.HasPrefix(key.String(), "run_group.") {
			return fmt.Errorf("unknown run_group entry:%s", key)
		}
	}
	return nil
}

func buildRunners[R Runner, I RunnerImpl](
	settings map[string]runnerSetting,
	impls map[string]I,
	wrap func(I, runnerSetting) R,
	registry map[string]R,
	add func(R, string) error,
) error {
	for name, setting := range settings {
		impl, ok := impls[name]
		if !ok {
			err := fmt.Errorf("failed to find %s implementation", name)
			zap.L().Error(err.Error())
			return err
		}
		runner := wrap(impl, setting)
		if err := impl.SetParams(runner.GetParams()); err != nil {
			zap.L().Error(fmt.Sprintf("failed to set parameters to %s/reason:%s", name, err))
			return err
		}
		if err := impl.Setup(); err != nil {
			zap.L().Error(fmt.Sprintf("failed to set up %s/reason:%s", name, err))
			return err
		}
		if err := add(runner, name); err != nil {
			zap.L().Error(fmt.Sprintf("failed to add %s to the run group/reason:%s", name, err))
			return err
		}
		registry[name] = runner
		zap.L().Info(fmt.Sprintf("added %s to the run group", name))
	}
	return nil
}

func GetRunContext() *RunContext {
	return runContext
}

func SetRunContext(rc *RunContext) {
	runContext = rc
}

type PeriodicTask struct {
	Period time.Duration
	Params interface{}
	PeriodicTaskImpl
}

func (t *PeriodicTask) GetParams() interface{} {
	return t.Params
}

type PeriodicTaskImpl interface {
	RunnerImpl
	RequirePeriodUpdate() (ok bool, duration time.Duration)
	Task()
	Cleanup()
}

// DefaultTaskImpl is a no-op PeriodicTaskImpl to embed when a task needs
// only some of the lifecycle.
type DefaultTaskImpl struct{}

func (v *DefaultTaskImpl) GetEmptyParams() interface{} { return v }
func (v *DefaultTaskImpl) SetParams(interface{}) error { return nil }
func (v *DefaultTaskImpl) Setup() error                { return nil }

func (v *DefaultTaskImpl) RequirePeriodUpdate() (bool, time.Duration) {
	return false, 0
}

func (v *DefaultTaskImpl) Task()    {}
func (v *DefaultTaskImpl) Cleanup() {}

// AddPeriodicTask runs the task once at start, then on every tick. A task
// can move its own tick period through RequirePeriodUpdate.
func (rc *RunContext) AddPeriodicTask(t *PeriodicTask, taskName string) error {
	if t.Period <= 0 {
		return fmt.Errorf("periodic task %s needs a positive period", taskName)
	}
	ctx, cancel := context.WithCancel(rc.Context)
	lastPeriod := t.Period
	rc.Group.Add(
		func() error {
			ticker := time.NewTicker(t.Period)
			defer ticker.Stop()
			zap.L().Info(fmt.Sprintf("[PeriodicTask/%s/Start]", taskName))
			t.PeriodicTaskImpl.Task()
			for {
				select {
				case <-ctx.Done():
					zap.L().Info(fmt.Sprintf("[PeriodicTask/%s/TearDown]cleaning up", taskName))
					t.PeriodicTaskImpl.Cleanup()
					return ctx.Err()
				case <-ticker.C:
					t.PeriodicTaskImpl.Task()
					if ok, newPeriod := t.RequirePeriodUpdate(); ok && newPeriod != lastPeriod {
						zap.L().Info(fmt.Sprintf("[PeriodicTask/%s/ResetPeriod]from %v to %v",
							taskName, lastPeriod, newPeriod))
						ticker.Reset(newPeriod)
						lastPeriod = newPeriod
					}
				}
			}
		},
		func(error) {
			zap.L().Info(fmt.Sprintf("[PeriodicTask/%s/TearDown]cancelling", taskName))
			cancel()
		},
	)
	return nil
}

type InternalJobServer struct {
	Params interface{}
	InternalJobServerImpl
}

func (s *InternalJobServer) GetParams() interface{} {
	return s.Params
}

// InternalJobServerImpl serves jobs arriving from inside the edge instead
// of from cloud polling. Start must not block; Cleanup stops serving.
type InternalJobServerImpl interface {
	RunnerImpl
	Start() error
	Cleanup()
	Handle(Job) error
}

func NewInternalJobServer(impl InternalJobServerImpl) *InternalJobServer {
	return &InternalJobServer{
		Params:                impl.GetEmptyParams(),
		InternalJobServerImpl: impl,
	}
}

func (rc *RunContext) AddInternalJobServer(s *InternalJobServer, serverName string) error {
	ctx, cancel := context.WithCancel(rc.Context)
	rc.Group.Add(
		func() error {
			zap.L().Info(fmt.Sprintf("[InternalJobServer/%s/Start]", serverName))
			if err := s.Start(); err != nil {
				zap.L().Error(fmt.Sprintf("[InternalJobServer/%s/Error]failed to start/reason:%s",
					serverName, err))
				return err
			}
			<-ctx.Done()
			zap.L().Info(fmt.Sprintf("[InternalJobServer/%s/TearDown]cleaning up", serverName))
			s.Cleanup()
			return nil
		},
		func(error) {
			zap.L().Info(fmt.Sprintf("[InternalJobServer/%s/TearDown]cancelling", serverName))
			cancel()
		},
	)
	return nil
}

type APIServer struct {
	Params interface{}
	APIServerImpl
}

func (s *APIServer) GetParams() interface{} {
	return s.Params
}

// APIServerImpl is a blocking server. Serve returns nil on a clean
// shutdown; Shutdown makes Serve return.
type APIServerImpl interface {
	RunnerImpl
	Serve() error
	Shutdown()
}

func NewAPIServer(impl APIServerImpl) *APIServer {
	return &APIServer{
		Params:        impl.GetEmptyParams(),
		APIServerImpl: impl,
	}
}

func (rc *RunContext) AddAPIServer(s *APIServer, serverName string) error {
	rc.Group.Add(
		func() error {
			zap.L().Info(fmt.Sprintf("[APIServer/%s/Start]", serverName))
			if err := s.Serve(); err != nil {
				zap.L().Error(fmt.Sprintf("[APIServer/%s/Error]failed to serve/reason:%s",
					serverName, err.Error()))
				return err
			}
			return nil
		},
		func(error) {
			zap.L().Info(fmt.Sprintf("[APIServer/%s/TearDown]shutting down", serverName))
			s.Shutdown()
		},
	)
	return nil
}
