package conf

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/massn/envordot"
	"go.uber.org/zap"
)

var simhostconf *SimHostConf

func init() {
	code, err := loadParams()
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(code)
	}
}

type SimHostConf struct {
	ContainerImage     string `long:"simhost-container-image" description:"name of the container image of the hosted simulator" default:"qem/simulator:latest" env:"SIMHOST_CONTAINER_IMAGE"`
	ContainerPathIn    string `long:"simhost-container-path-input" description:"The path to the folder where circuit files are placed in the container" default:"/simhost/in" env:"SIMHOST_CONTAINER_PATH_INPUT"`
	ContainerPathOut   string `long:"simhost-container-path-output" description:"The path to the folder where state files are placed in the container" default:"/simhost/out" env:"SIMHOST_CONTAINER_PATH_OUTPUT"`
	ContainerMemory    int64  `long:"simhost-container-memory" description:"The memory size of the simulator container in bytes" default:"1073741824" env:"SIMHOST_CONTAINER_MEMORY"`
	ContainerCPUSet    string `long:"simhost-container-cpuset" description:"CPUs in which to allow execution in the simulator container" default:"0" env:"SIMHOST_CONTAINER_CPUSET"`
	ContainerDiskQuota int64  `long:"simhost-container-disk-quota" description:"The disk quota of the scratch volume of the simulator container" default:"314572800" env:"SIMHOST_CONTAINER_DISK_QUOTA"`
	ContainerPlatform  string `long:"simhost-container-platform" description:"os/arch the simulator image must match, empty to let the daemon decide" default:"" env:"SIMHOST_CONTAINER_PLATFORM"`
	SimulatorCommand   string `long:"simhost-simulator-command" description:"The command that runs the statevector simulator inside the container" default:"/app/simulator" env:"SIMHOST_SIMULATOR_COMMAND"`
	CircuitFileName    string `long:"simhost-circuit-file-name" description:"The name of the circuit file placed in the container" default:"circuit.qasm" env:"SIMHOST_CIRCUIT_FILE_NAME"`
	ResultFileName     string `long:"simhost-result-file-name" description:"The name of the state file retrieved from the container" default:"state.json" env:"SIMHOST_RESULT_FILE_NAME"`
	Timeout            int    `long:"simhost-timeout" description:"simulator container timeout period in seconds" default:"300" env:"SIMHOST_TIMEOUT"`
}

func loadParams() (code int, err error) {
	code = 0
	err = nil
	var parser *flags.Parser

	if err := envordot.Load(false, ".env"); err != nil {
		fmt.Printf("Not found \".env\" file. Use only environment variables. Reason:%s\n", err.Error())
	} else {
		fmt.Println("Found \".env\" file. Environment variables are preferred, " +
			"but non-conflicting variables are those in the \".env\" file.")
	}
	simhostconf = &SimHostConf{}
	parser = flags.NewParser(simhostconf, flags.IgnoreUnknown)
	if _, err = parser.Parse(); err != nil {
		code = 1
		if fe, ok := err.(*flags.Error); ok {
			if fe.Type == flags.ErrHelp {
				code = 0
			}
		}
		if code == 1 {
			fmt.Printf("failed to parse flags, because %s\n", err)
		}
		err = fmt.Errorf("failed to load params")
		return
	}
	return
}

func GetSimHostConf() *SimHostConf {
	if simhostconf == nil {
		zap.L().Warn("SimHostConf is not initialized yet")
	}
	return simhostconf
}
