package main

import (
	"fmt"
	"os"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/massn/envordot"
	"github.com/oklog/run"

	"github.com/qem-team/qem-engine/coreapp/cdr"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/qem-team/qem-engine/coreapp/db"
	"github.com/qem-team/qem-engine/coreapp/jobapi"
	"github.com/qem-team/qem-engine/coreapp/log"
	"github.com/qem-team/qem-engine/coreapp/ops"
	"github.com/qem-team/qem-engine/coreapp/poller"
	"github.com/qem-team/qem-engine/coreapp/qpu"
	"github.com/qem-team/qem-engine/coreapp/sampling"
	"github.com/qem-team/qem-engine/coreapp/scheduler"
	"github.com/qem-team/qem-engine/coreapp/simhost"
	"github.com/qem-team/qem-engine/coreapp/transpiler"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

var versionByBuildFlag string
var parser *flags.Parser
var edge *Edge

func init() {
	if err := envordot.Load(false, ".env"); err != nil {
		fmt.Printf("Not found \".env\" file. Use only environment variables. Reason:%s\n", err.Error())
	} else {
		fmt.Println("Found \".env\" file. Environment variables are preferred, " +
			"but non-conflicting variables are those in the \".env\" file.")
	}
	edge = &Edge{}
	setParser(edge)
}

type Edge struct {
	DIContainerParameters *DIContainerParameters
	Conf                  *core.Conf
}

type DIContainerParameters struct {
	DBManager  string `long:"db" description:"db" default:"memory" choice:"memory" choice:"service" env:"QEM_EDGE_DB_MANAGER_TYPE"`
	Transpiler string `long:"transpiler" description:"transpiler-type" default:"grpc" choice:"grpc" env:"QEM_EDGE_TRANSPILER_TYPE"`
	QPU        string `long:"qpu" description:"qpu-type" default:"dummy" choice:"dummy" choice:"gateway" env:"QEM_EDGE_QPU_TYPE"`
	Scheduler  string `long:"scheduler" description:"scheduler-type" default:"normal" env:"QEM_EDGE_SCHEDULER_TYPE"`
	Simulator  string `long:"simulator" description:"simulator-type" default:"dummy" choice:"dummy" choice:"gateway" choice:"hosted" env:"QEM_EDGE_SIMULATOR_TYPE"`
	Fitter     string `long:"fitter" description:"fitter-type" default:"dummy" choice:"dummy" choice:"gateway" env:"QEM_EDGE_FITTER_TYPE"`
}

func setParser(edge *Edge) {
	parser = flags.NewParser(edge, flags.Default)
	parser.ShortDescription = "qem edge"
	parser.LongDescription = "the edge error mitigation engine of the QEM cloud quantum computation system."
	parser.AddCommand("poller", "start poller", "start polling to get jobs", newPollerCmd())
}

func parse() {
	if _, err := parser.Parse(); err != nil {
		code := 1
		if fe, ok := err.(*flags.Error); ok {
			if fe.Type == flags.ErrHelp {
				code = 0
			}
		}
		if code == 1 {
			fmt.Printf("failed to parse flags, because %s\n", err)
		}
		os.Exit(code)
	}
}

func (e *Edge) provideDIContainer() (c *dig.Container, err error) {
	c = dig.New()
	err = nil
	qpuType := e.DIContainerParameters.QPU
	if e.Conf.UseDummyDevice {
		qpuType = "dummy"
	}
	simulatorType := e.DIContainerParameters.Simulator
	if e.Conf.UseHostedSimulator {
		simulatorType = "hosted"
	}
	err = c.Provide(func() (core.QPUManager, error) {
		switch qpuType {
		case "dummy":
			return &qpu.DummyQPU{}, nil
		case "gateway":
			return &qpu.GatewayQPU{}, nil
		default:
			return &qpu.DummyQPU{}, fmt.Errorf("%s is an unknown QPU", qpuType)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.Transpiler, error) {
		switch e.DIContainerParameters.Transpiler {
		case "grpc":
			return &transpiler.GatewayTranspiler{}, nil
		default:
			return &transpiler.GatewayTranspiler{}, fmt.Errorf("%s is an unknown Transpiler", e.DIContainerParameters.Transpiler)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() core.Scheduler { return &scheduler.NormalScheduler{} })
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.DBManager, error) {
		switch e.DIContainerParameters.DBManager {
		case "memory":
			return &core.MemoryDB{}, nil
		case "service":
			return &db.ServiceDB{}, nil
		default:
			return &core.MemoryDB{}, fmt.Errorf("%s is an unknown DB", e.DIContainerParameters.DBManager)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.Simulator, error) {
		switch simulatorType {
		case "dummy":
			return &qpu.DummySimulator{}, nil
		case "gateway":
			return &qpu.GatewaySimulator{}, nil
		case "hosted":
			return &simhost.HostedSimulator{}, nil
		default:
			return &qpu.DummySimulator{}, fmt.Errorf("%s is an unknown Simulator", simulatorType)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.Fitter, error) {
		switch e.DIContainerParameters.Fitter {
		case "dummy":
			return &qpu.DummyFitter{}, nil
		case "gateway":
			return &qpu.GatewayFitter{}, nil
		default:
			return &qpu.DummyFitter{}, fmt.Errorf("%s is an unknown Fitter", e.DIContainerParameters.Fitter)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	return
}

func (e *Edge) startCore(conf *core.Conf) error {
	if _, err := core.NewJobManager(
		&core.NormalJob{},
		&sampling.SamplingJob{},
		&cdr.CDRJob{},
	); err != nil {
		return err
	}
	if err := core.GetSystemComponents().StartContainer(); err != nil {
		return err
	}
	core.SetInfo(conf)
	return nil
}

func main() {
	parse()
}

type pollerCmd struct{}

func newPollerCmd() *pollerCmd {
	return &pollerCmd{}
}

func (c *pollerCmd) Execute(args []string) error {
	logger := setZap(edge.Conf)
	defer logger.Sync()

	core.ResetSetting()
	registerSetting()
	zap.L().Debug("Registered setting")
	if err := core.ParseSettingFromPath(edge.Conf.SettingPath); err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse settings/reason:%s", err))
		return err
	}

	s := setupSystemComponents(edge.Conf)
	defer s.TearDown()

	im := &core.ImplMaps{
		PeriodicTaskImplMap: core.PeriodicTaskImplMap{
			poller.PollerTaskName:  &poller.Poller{},
			log.VersionLogTaskName: &log.VersionLogTaskImpl{},
			log.MetricsLogTaskName: &log.MetricsLogTaskImpl{},
		},
		InternalJobServerImplMap: core.InternalJobServerImplMap{
			jobapi.JobAPIServerName: &jobapi.Server{},
		},
		APIServerImplMap: core.APIServerImplMap{
			ops.OpsServerName: &ops.Server{},
		},
	}
	rc, err := core.NewRunContextWithSettingPath(edge.Conf.SettingPath, im)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to setup run context/reason:%s", err.Error()))
		return err
	}

	if err := edge.startCore(edge.Conf); err != nil {
		zap.L().Error(fmt.Sprintf("failed to start core/reason:%s", err))
		return err
	}

	zap.L().Debug("Setting up run-group")
	if err := c.setupRunGroup(rc); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to setup run group. Reason:%s", err))
		return err
	}

	if err := rc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "execution error:%v\n", err)
		os.Exit(1)
	}

	return nil
}

func (c *pollerCmd) setupRunGroup(rc *core.RunContext) error {
	rc.Add(
		run.SignalHandler(
			rc.Context,
			syscall.SIGINT, syscall.SIGTERM))
	core.SetRunContext(rc)
	return nil
}

func setZap(conf *core.Conf) *zap.Logger {
	logger, err := log.NewLogger(conf)
	if err != nil {
		fmt.Printf("Failed to setup logger. Reason:%s\n", err)
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	zap.L().Info("Starting logger")
	zap.L().Info(fmt.Sprintf("DevMode is %t", conf.DevMode))
	zap.L().Info(fmt.Sprintf("Log rotation max days is %d", conf.LogRotationMaxDays))
	return logger
}

func setupSystemComponents(conf *core.Conf) *core.SystemComponents {
	core.SetVersion(conf, versionByBuildFlag)
	zap.L().Debug(fmt.Sprintf("Providing DI Container with parameters %+v", edge.DIContainerParameters))

	container, err := edge.provideDIContainer()
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to setting up DI-Container. Reason:%s", err.Error()))
		panic(err)
	}
	zap.L().Debug("Setting up System Components")
	s := core.NewSystemComponents(container)
	if err := s.Setup(conf); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to setting up Container. Reason:%s", err.Error()))
		panic(err)
	}
	return s
}

func registerSetting() {
	core.RegisterSetting("gateway", qpu.NewDefaultGatewayAgentSetting())
	core.RegisterSetting("cdr", cdr.NewCDRSetting())
}
