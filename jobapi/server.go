package jobapi

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const JobAPIServerName = "jobapi"

const (
	DEFAULT_HOST = "localhost"
	DEFAULT_PORT = "50055"
)

// Server accepts jobs from edge-local tools over gRPC, bypassing the cloud
// queue. Submissions go through the same validation and scheduling path as
// polled jobs, but a rejection is answered synchronously instead of being
// pushed back through the job store.
type Server struct {
	Host string `toml:"host"`
	Port string `toml:"port"`

	address string
	grpcSrv *grpc.Server

	sysCom *core.SystemComponents
}

func (s *Server) GetEmptyParams() interface{} {
	return &Server{}
}

func (s *Server) SetParams(params interface{}) error {
	if params == nil {
		zap.L().Debug("no params for the job api server")
		return nil
	}
	pp, ok := params.(map[string]interface{})
	if !ok {
		err := fmt.Errorf("failed to set params for the job api server/params: %s", params)
		zap.L().Error(err.Error())
		return err
	}
	if host, ok := pp["host"].(string); ok && host != "" {
		s.Host = host
	}
	if port, ok := pp["port"].(string); ok && port != "" {
		s.Port = port
	}
	return nil
}

func (s *Server) Setup() error {
	if s.Host == "" {
		s.Host = DEFAULT_HOST
	}
	if s.Port == "" {
		s.Port = DEFAULT_PORT
	}
	address, err := common.ValidAddress(s.Host, s.Port)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to validate the job api address/reason:%s", err))
		return err
	}
	s.address = address
	s.sysCom = core.GetSystemComponents()
	return nil
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to listen on %s/reason:%s", s.address, err))
		return err
	}
	s.grpcSrv = grpc.NewServer()
	RegisterJobServiceServer(s.grpcSrv, s)
	go func() {
		if err := s.grpcSrv.Serve(lis); err != nil {
			zap.L().Error(fmt.Sprintf("job api server stopped/reason:%s", err))
		}
	}()
	zap.L().Info(fmt.Sprintf("job api server is listening on %s", s.address))
	return nil
}

func (s *Server) Cleanup() {
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
}

func (s *Server) Handle(j core.Job) error {
	return s.sysCom.Invoke(
		func(sc core.Scheduler) error {
			sc.HandleJob(j)
			return nil
		})
}

// SubmitJob builds a job from the request and hands it to the scheduler.
// A submission that fails device validation or the parameter checks is not
// scheduled; the failure comes back in the response.
func (s *Server) SubmitJob(ctx context.Context, req *SubmitJobRequest) (*SubmitJobResponse, error) {
	jd := core.NewJobData()
	jd.ID = req.JobID
	if jd.ID == "" {
		jd.ID = uuid.NewString()
	}
	jd.QASM = req.Program
	jd.Shots = req.Shots
	jd.JobType = req.JobType
	jd.MitigationInfo = req.MitigationInfo
	jd.Transpiler = req.Transpiler
	if jd.Transpiler == nil {
		jd.Transpiler = core.DEFAULT_TRANSPILER_CONFIG()
	}
	jd.Status = core.READY

	jc, err := core.NewJobContext()
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to create a job context/reason:%s", err))
		return nil, err
	}

	err = s.sysCom.Invoke(
		func(q core.QPUManager) error {
			return q.Validate(jd.QASM)
		})
	if err == nil {
		var job core.Job
		job, err = core.GetJobManager().NewJobFromJobDataWithValidation(jd, jc)
		if err == nil {
			if handleErr := s.Handle(job); handleErr != nil {
				zap.L().Error(fmt.Sprintf("failed to hand job %s to the scheduler/reason:%s",
					jd.ID, handleErr))
				return nil, handleErr
			}
			zap.L().Debug(fmt.Sprintf("accepted submission %s (type:%s, shots:%d)",
				jd.ID, jd.JobType, jd.Shots))
			return &SubmitJobResponse{JobID: jd.ID, Status: jd.Status.String()}, nil
		}
	}
	msg := core.SetFailureWithErrorToJobData(jd, err)
	zap.L().Info(fmt.Sprintf("rejected submission %s/reason:%s", jd.ID, msg))
	return &SubmitJobResponse{JobID: jd.ID, Status: jd.Status.String(), Message: msg}, nil
}

// GetJob reads the stored state of a job. A job becomes visible here once
// the scheduler has recorded it, not at submission.
func (s *Server) GetJob(ctx context.Context, req *GetJobRequest) (*GetJobResponse, error) {
	if req.JobID == "" {
		return nil, errors.New("job_id is empty")
	}
	job := core.GetJob(req.JobID)
	if job == nil {
		return nil, fmt.Errorf("failed to find a job(%s)", req.JobID)
	}
	jd := job.JobData()
	return &GetJobResponse{
		JobID:      jd.ID,
		Status:     jd.Status.String(),
		Counts:     jd.Result.Counts,
		Mitigation: jd.Result.Mitigation,
		Message:    jd.Result.Message,
	}, nil
}
