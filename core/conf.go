package core

type Conf struct {
	Version                   string `long:"version" description:"version of mitigator server" env:"QEM_EDGE_VERSION"`
	DevMode                   bool   `long:"dev-mode" description:"run in dev mode" env:"QEM_EDGE_DEV_MODE"`
	DisableStdoutLog          bool   `long:"disable-stdout-log" description:"do not log in standard output" env:"QEM_EDGE_DISABLE_STDOUT_LOG"`
	EnableFileLog             bool   `long:"enable-file-log" description:"enable log in file" env:"QEM_EDGE_ENABLE_FILE_LOG"`
	LogDir                    string `long:"log-dir" description:"rotating log file dir" default:"./shares/logs" env:"QEM_EDGE_LOG_DIR"`
	LogLevel                  string `long:"log-level" description:"log level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" env:"QEM_EDGE_LOG_LEVEL"`
	LogRotationMaxDays        int    `long:"log-rotation-max-days" description:"max days of log rotation" default:"7" env:"QEM_EDGE_LOG_ROTATION_MAX_DAYS"`
	UseDummyDevice            bool   `long:"enable-dummy-device" description:"use dummy device for tests and disable device settings" env:"QEM_EDGE_USE_DUMMY_DEVICE"`
	UseHostedSimulator        bool   `long:"enable-hosted-simulator" description:"run circuits on the hosted simulator container instead of the gateway executor" env:"QEM_EDGE_USE_HOSTED_SIMULATOR"`
	DeviceSettingPath         string `long:"device-setting-path" description:"device setting file path" default:"./device_setting.toml" env:"QEM_EDGE_DEVICE_SETTING_PATH"`
	QueueMaxSize              int    `long:"queue-max-size" description:"queue max size" default:"100" env:"QEM_EDGE_QUEUE_MAX_SIZE"`
	QueueRefillThreshold      int    `long:"queue-refill-threshold" description:"queue refill threshold" default:"10" env:"QEM_EDGE_QUEUE_REFILL_THRESHOLD"`
	GRPCExecutorHost          string `long:"grpc-executor-host" description:"gRPC executor address host" default:"localhost" env:"QEM_EDGE_GRPC_EXECUTOR_HOST"`
	GRPCExecutorPort          string `long:"grpc-executor-port" description:"gRPC executor address port" default:"50051" env:"QEM_EDGE_GRPC_EXECUTOR_PORT"`
	GRPCTranspilerHost        string `long:"grpc-transpiler-host" description:"gRPC transpiler address host" default:"localhost" env:"QEM_EDGE_GRPC_TRANSPILER_HOST"`
	GRPCTranspilerPort        string `long:"grpc-transpiler-port" description:"gRPC transpiler address port" default:"50052" env:"QEM_EDGE_GRPC_TRANSPILER_PORT"`
	GRPCSimulatorHost         string `long:"grpc-simulator-host" description:"gRPC exact simulator address host" default:"localhost" env:"QEM_EDGE_GRPC_SIMULATOR_HOST"`
	GRPCSimulatorPort         string `long:"grpc-simulator-port" description:"gRPC exact simulator address port" default:"50053" env:"QEM_EDGE_GRPC_SIMULATOR_PORT"`
	GRPCFitterHost            string `long:"grpc-fitter-host" description:"gRPC regression fitter address host" default:"localhost" env:"QEM_EDGE_GRPC_FITTER_HOST"`
	GRPCFitterPort            string `long:"grpc-fitter-port" description:"gRPC regression fitter address port" default:"50054" env:"QEM_EDGE_GRPC_FITTER_PORT"`
	JobDBPath                 string `long:"job-db-path" description:"sqlite job store path, keeps jobs in memory when empty" env:"QEM_EDGE_JOB_DB_PATH"`
	CloudEndpoint             string `long:"cloud-endpoint" description:"cloud jobs API endpoint" default:"localhost" env:"QEM_EDGE_CLOUD_ENDPOINT"`
	CloudAPIKey               string `long:"cloud-api-key" description:"cloud jobs API key" env:"QEM_EDGE_CLOUD_API_KEY"`
	DisableStartDevicePolling bool   `long:"disable-start-device-polling" description:"disable start device polling" env:"QEM_EDGE_DISABLE_START_DEVICE_POLLING"`
	SettingPath               string `long:"setting-path" description:"setting file path" default:"./setting/setting.toml" env:"QEM_EDGE_SETTING_PATH"`
}
