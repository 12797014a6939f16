package jobapi

import (
	"context"

	"github.com/qem-team/qem-engine/coreapp/core"
	"google.golang.org/grpc"
)

// Wire types of the edge-local job service. Like the collaborator services
// it speaks JSON over gRPC (see common.JSONCodecName), so the messages are
// plain structs with json tags and the descriptor is spelled out by hand.

const JobServiceName = "job_interface.v1.JobService"

const (
	submitJobMethod = "/" + JobServiceName + "/SubmitJob"
	getJobMethod    = "/" + JobServiceName + "/GetJob"
)

type SubmitJobRequest struct {
	JobID          string                 `json:"job_id"`
	Program        string                 `json:"program"`
	Shots          int                    `json:"shots"`
	JobType        string                 `json:"job_type"`
	MitigationInfo string                 `json:"mitigation_info"`
	Transpiler     *core.TranspilerConfig `json:"transpiler"`
}

type SubmitJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type GetJobRequest struct {
	JobID string `json:"job_id"`
}

type GetJobResponse struct {
	JobID      string           `json:"job_id"`
	Status     string           `json:"status"`
	Counts     core.Counts      `json:"counts"`
	Mitigation *core.Mitigation `json:"mitigation"`
	Message    string           `json:"message"`
}

type JobServiceServer interface {
	SubmitJob(context.Context, *SubmitJobRequest) (*SubmitJobResponse, error)
	GetJob(context.Context, *GetJobRequest) (*GetJobResponse, error)
}

func RegisterJobServiceServer(s grpc.ServiceRegistrar, srv JobServiceServer) {
	s.RegisterService(&jobServiceDesc, srv)
}

func submitJobHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitJobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).SubmitJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitJobMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServiceServer).SubmitJob(ctx, req.(*SubmitJobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getJobHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetJobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).GetJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getJobMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServiceServer).GetJob(ctx, req.(*GetJobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var jobServiceDesc = grpc.ServiceDesc{
	ServiceName: JobServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitJob", Handler: submitJobHandler},
		{MethodName: "GetJob", Handler: getJobHandler},
	},
	Streams: []grpc.StreamDesc{},
}
