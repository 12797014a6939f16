package transpiler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const grpcTimeout time.Duration = 5 * time.Second

const TranspilerServiceName = "transpiler_interface.v1.TranspilerService"
const transpileMethod = "/" + TranspilerServiceName + "/Transpile"

const (
	transpileStatusSuccess int32 = 0
	transpileStatusFailure int32 = 1
)

// TranspileRequest and TranspileResponse mirror the transpiler service
// schema. The service speaks the shared JSON codec, so the structs are the
// wire format.
type TranspileRequest struct {
	RequestID         string `json:"request_id"`
	Program           string `json:"program"`
	ProgramLib        string `json:"program_lib"`
	TranspilerLib     string `json:"transpiler_lib"`
	TranspilerOptions string `json:"transpiler_options"`
	Device            string `json:"device"`
	DeviceLib         string `json:"device_lib"`
}

type TranspileResponse struct {
	Status                 int32  `json:"status"`
	TranspiledProgram      string `json:"transpiled_program"`
	Stats                  string `json:"stats"`
	VirtualPhysicalMapping string `json:"virtual_physical_mapping"`
}

// GatewayTranspiler rewrites circuits into the device basis through the
// external transpile service.
type GatewayTranspiler struct {
	address string
	conn    *grpc.ClientConn
	ctx     context.Context
}

func (t *GatewayTranspiler) IsAcceptableTranspilerLib(lib string) bool {
	return lib == "qiskit"
}

func (t *GatewayTranspiler) Setup(conf *core.Conf) error {
	address, err := common.ValidAddress(conf.GRPCTranspilerHost, conf.GRPCTranspilerPort)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to validate address/host:%s port:%s/reason:%s",
			conf.GRPCTranspilerHost, conf.GRPCTranspilerPort, err))
		return err
	}
	t.address = address
	zap.L().Debug(fmt.Sprintf("transpiler address is %s", t.address))

	conn, connErr := common.GRPCConnection(t.address, grpcTimeout, true)
	if connErr != nil {
		zap.L().Error(fmt.Sprintf("failed to make connection to %s/reason:%s", t.address, connErr))
		return connErr
	}
	t.ctx = context.Background()
	t.conn = conn
	zap.L().Debug(fmt.Sprintf("transpiler client is ready to use %s", t.address))
	return nil
}

func (t *GatewayTranspiler) GetHealth() error {
	return nil
}

func (t *GatewayTranspiler) Transpile(j core.Job) error {
	jd := j.JobData()
	opts, err := json.Marshal(jd.Transpiler.TranspilerOptions)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal transpiler options:%v/reason:%s",
			jd.Transpiler.TranspilerOptions, err))
		return err
	}
	req := &TranspileRequest{
		RequestID:         jd.ID,
		Program:           jd.QASM,
		ProgramLib:        "openqasm3",
		TranspilerLib:     *jd.Transpiler.TranspilerLib,
		TranspilerOptions: string(opts),
		Device:            core.GetSystemComponents().GetDeviceInfo().DeviceInfoSpecJson,
		DeviceLib:         "qem",
	}
	zap.L().Debug(
		fmt.Sprintf(
			"transpile request/RequestID:%s/Program:%s/TranspilerLib:%s/TranspilerOptions:%s/DeviceLib:%s",
			req.RequestID, req.Program, req.TranspilerLib, req.TranspilerOptions, req.DeviceLib))
	var res TranspileResponse
	if err := common.InvokeJSON(t.ctx, t.conn, transpileMethod, req, &res); err != nil {
		zap.L().Error(fmt.Sprintf("failed to transpile RequestID:%s/reason:%s", req.RequestID, err))
		return err
	}
	zap.L().Debug(fmt.Sprintf("transpile response/requestID:%s/status:%d/virtualPhysicalMapping:%s/stats:%s",
		req.RequestID, res.Status, res.VirtualPhysicalMapping, res.Stats))
	switch res.Status {
	case transpileStatusSuccess:
		zap.L().Debug(fmt.Sprintf("transpiled program:%s", res.TranspiledProgram))
	case transpileStatusFailure:
		zap.L().Error(fmt.Sprintf("transpile failed/requestID:%s", req.RequestID))
		return fmt.Errorf("transpile failed")
	default:
		zap.L().Error(fmt.Sprintf("unknown status:%d/requestID:%s", res.Status, req.RequestID))
	}
	jd.TranspiledQASM = res.TranspiledProgram

	raw, vpm, err := toVirtualPhysicalMapping(res.VirtualPhysicalMapping)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to get virtual physical mapping:%s/reason:%s",
			res.VirtualPhysicalMapping, err))
		return err
	}
	ti := jd.Result.TranspilerInfo
	ti.VirtualPhysicalMappingRaw = raw
	ti.VirtualPhysicalMappingMap = vpm
	if res.Stats != "" {
		ti.StatsRaw = core.StatsRaw(res.Stats)
	}
	zap.L().Debug(fmt.Sprintf("transpiled program:%s", jd.TranspiledQASM))
	return nil
}

func (t *GatewayTranspiler) TearDown() {
	if t.conn != nil {
		t.conn.Close()
	}
}

// qubitBitMapping is the layout block of a transpile response. Only the
// qubit mapping matters here; measured bits follow their qubits.
type qubitBitMapping struct {
	QubitMapping map[string]uint32 `json:"qubit_mapping"`
	BitMapping   map[string]uint32 `json:"bit_mapping"`
}

func toVirtualPhysicalMapping(s string) (
	core.VirtualPhysicalMappingRaw, core.VirtualPhysicalMappingMap, error) {
	vpm := make(core.VirtualPhysicalMappingMap)
	if s == "" {
		return nil, vpm, nil
	}
	var m qubitBitMapping
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal virtualPhysicalMapping:%s/reason:%s", s, err))
		return nil, nil, err
	}
	raw, err := json.Marshal(m.QubitMapping)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal qubit mapping:%v/reason:%s", m.QubitMapping, err))
		return nil, nil, err
	}
	for k, v := range m.QubitMapping {
		num, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to convert qubit index:%s/reason:%s", k, err))
			return nil, nil, err
		}
		vpm[uint32(num)] = v
	}
	return core.VirtualPhysicalMappingRaw(raw), vpm, nil
}
