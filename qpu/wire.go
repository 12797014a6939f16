package qpu

import (
	"context"

	"github.com/qem-team/qem-engine/coreapp/core"
	"google.golang.org/grpc"
)

// Wire types of the collaborator services. The services speak JSON over gRPC
// (see common.JSONCodecName), so the messages are plain structs with json
// tags and the service descriptors are spelled out by hand.

const (
	ExecutorServiceName  = "executor_interface.v1.ExecutorService"
	SimulatorServiceName = "simulator_interface.v1.SimulatorService"
	FitterServiceName    = "fitter_interface.v1.FitterService"
)

const (
	executeJobMethod       = "/" + ExecutorServiceName + "/ExecuteJob"
	getDeviceInfoMethod    = "/" + ExecutorServiceName + "/GetDeviceInfo"
	getServiceStatusMethod = "/" + ExecutorServiceName + "/GetServiceStatus"
	getStateMethod         = "/" + SimulatorServiceName + "/GetState"
	fitModelMethod         = "/" + FitterServiceName + "/FitModel"
)

// Execution statuses reported by the executor service.
const (
	ExecutionStatusSuccess  = "success"
	ExecutionStatusFailure  = "failure"
	ExecutionStatusInactive = "inactive"
)

// Service statuses reported by the executor service.
const (
	ServiceStatusActive      = "active"
	ServiceStatusInactive    = "inactive"
	ServiceStatusMaintenance = "maintenance"
)

type ExecuteJobRequest struct {
	JobID       string  `json:"job_id"`
	Program     string  `json:"program"`
	Shots       int     `json:"shots"`
	ScaleFactor float64 `json:"scale_factor"`
}

type ExecuteJobResult struct {
	Counts  core.Counts `json:"counts"`
	Message string      `json:"message"`
}

type ExecuteJobResponse struct {
	Status string            `json:"status"`
	Result *ExecuteJobResult `json:"result"`
}

type GetDeviceInfoRequest struct{}

type DeviceInfoBody struct {
	DeviceID     string `json:"device_id"`
	ProviderID   string `json:"provider_id"`
	Type         string `json:"type"`
	MaxQubits    int    `json:"max_qubits"`
	MaxShots     int    `json:"max_shots"`
	DeviceInfo   string `json:"device_info"`
	CalibratedAt string `json:"calibrated_at"`
}

type GetDeviceInfoResponse struct {
	Body DeviceInfoBody `json:"body"`
}

type GetServiceStatusRequest struct{}

type GetServiceStatusResponse struct {
	ServiceStatus string `json:"service_status"`
}

type GetStateRequest struct {
	Program string `json:"program"`
}

// GetStateResponse carries the statevector as [re, im] pairs in canonical
// basis order.
type GetStateResponse struct {
	Amplitudes [][2]float64 `json:"amplitudes"`
}

type FitModelRequest struct {
	Features [][]float64 `json:"features"`
	Labels   []float64   `json:"labels"`
}

type FitModelResponse struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

type ExecutorServiceServer interface {
	ExecuteJob(context.Context, *ExecuteJobRequest) (*ExecuteJobResponse, error)
	GetDeviceInfo(context.Context, *GetDeviceInfoRequest) (*GetDeviceInfoResponse, error)
	GetServiceStatus(context.Context, *GetServiceStatusRequest) (*GetServiceStatusResponse, error)
}

func RegisterExecutorServiceServer(s grpc.ServiceRegistrar, srv ExecutorServiceServer) {
	s.RegisterService(&executorServiceDesc, srv)
}

type SimulatorServiceServer interface {
	GetState(context.Context, *GetStateRequest) (*GetStateResponse, error)
}

func RegisterSimulatorServiceServer(s grpc.ServiceRegistrar, srv SimulatorServiceServer) {
	s.RegisterService(&simulatorServiceDesc, srv)
}

type FitterServiceServer interface {
	FitModel(context.Context, *FitModelRequest) (*FitModelResponse, error)
}

func RegisterFitterServiceServer(s grpc.ServiceRegistrar, srv FitterServiceServer) {
	s.RegisterService(&fitterServiceDesc, srv)
}

func executeJobHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecuteJobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExecutorServiceServer).ExecuteJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: executeJobMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExecutorServiceServer).ExecuteJob(ctx, req.(*ExecuteJobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getDeviceInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetDeviceInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExecutorServiceServer).GetDeviceInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getDeviceInfoMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExecutorServiceServer).GetDeviceInfo(ctx, req.(*GetDeviceInfoRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getServiceStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetServiceStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExecutorServiceServer).GetServiceStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getServiceStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExecutorServiceServer).GetServiceStatus(ctx, req.(*GetServiceStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SimulatorServiceServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulatorServiceServer).GetState(ctx, req.(*GetStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func fitModelHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FitModelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FitterServiceServer).FitModel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fitModelMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FitterServiceServer).FitModel(ctx, req.(*FitModelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var executorServiceDesc = grpc.ServiceDesc{
	ServiceName: ExecutorServiceName,
	HandlerType: (*ExecutorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteJob", Handler: executeJobHandler},
		{MethodName: "GetDeviceInfo", Handler: getDeviceInfoHandler},
		{MethodName: "GetServiceStatus", Handler: getServiceStatusHandler},
	},
	Streams: []grpc.StreamDesc{},
}

var simulatorServiceDesc = grpc.ServiceDesc{
	ServiceName: SimulatorServiceName,
	HandlerType: (*SimulatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: getStateHandler},
	},
	Streams: []grpc.StreamDesc{},
}

var fitterServiceDesc = grpc.ServiceDesc{
	ServiceName: FitterServiceName,
	HandlerType: (*FitterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FitModel", Handler: fitModelHandler},
	},
	Streams: []grpc.StreamDesc{},
}
