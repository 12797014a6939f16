package core

type NonSecretConf struct {
	DevMode                   bool
	DisableStdoutLog          bool
	EnableFileLog             bool
	LogDir                    string
	LogLevel                  string
	LogRotationMaxDays        int
	UseDummyDevice            bool
	UseHostedSimulator        bool
	DeviceSettingsPath        string
	QueueMaxSize              int
	QueueRefillThreshold      int
	GRPCExecutorHost          string
	GRPCExecutorPort          string
	GRPCTranspilerHost        string
	GRPCTranspilerPort        string
	GRPCSimulatorHost         string
	GRPCSimulatorPort         string
	GRPCFitterHost            string
	GRPCFitterPort            string
	JobDBPath                 string
	CloudEndpoint             string
	DisableStartDevicePolling bool
}

type Info struct {
	Conf *NonSecretConf
}

var CurrentInfo *Info

func SetInfo(c *Conf) {
	conf := &NonSecretConf{
		DevMode:                   c.DevMode,
		DisableStdoutLog:          c.DisableStdoutLog,
		EnableFileLog:             c.EnableFileLog,
		LogDir:                    c.LogDir,
		LogLevel:                  c.LogLevel,
		LogRotationMaxDays:        c.LogRotationMaxDays,
		UseDummyDevice:            c.UseDummyDevice,
		UseHostedSimulator:        c.UseHostedSimulator,
		DeviceSettingsPath:        c.DeviceSettingPath,
		QueueMaxSize:              c.QueueMaxSize,
		QueueRefillThreshold:      c.QueueRefillThreshold,
		GRPCExecutorHost:          c.GRPCExecutorHost,
		GRPCExecutorPort:          c.GRPCExecutorPort,
		GRPCTranspilerHost:        c.GRPCTranspilerHost,
		GRPCTranspilerPort:        c.GRPCTranspilerPort,
		GRPCSimulatorHost:         c.GRPCSimulatorHost,
		GRPCSimulatorPort:         c.GRPCSimulatorPort,
		GRPCFitterHost:            c.GRPCFitterHost,
		GRPCFitterPort:            c.GRPCFitterPort,
		JobDBPath:                 c.JobDBPath,
		CloudEndpoint:             c.CloudEndpoint,
		DisableStartDevicePolling: c.DisableStartDevicePolling,
	}

	CurrentInfo = &Info{
		Conf: conf,
	}
}
