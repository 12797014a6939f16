package qpu

import (
	"context"
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/circuit"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GatewaySimulator asks a statevector service for the exact state of a
// circuit. Mitigation jobs use it to label training circuits with
// noiseless expectation values.
type GatewaySimulator struct {
	address string
	conn    *grpc.ClientConn
	ctx     context.Context
}

func (s *GatewaySimulator) Setup(conf *core.Conf) error {
	address, err := common.ValidAddress(conf.GRPCSimulatorHost, conf.GRPCSimulatorPort)
	if err != nil {
		return err
	}
	s.address = address
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to make connection to %s/reason:%s", address, err))
		return err
	}
	s.conn = conn
	s.ctx = context.Background()
	zap.L().Info(fmt.Sprintf("simulator client is ready to use %s", address))
	return nil
}

func (s *GatewaySimulator) State(qasm string) (core.Statevector, error) {
	var resp GetStateResponse
	if err := common.InvokeJSON(s.ctx, s.conn, getStateMethod,
		&GetStateRequest{Program: qasm}, &resp); err != nil {
		zap.L().Error(fmt.Sprintf("failed to get the state from %s/reason:%s", s.address, err))
		return nil, err
	}
	if len(resp.Amplitudes) == 0 {
		return nil, fmt.Errorf("simulator returned an empty state")
	}
	sv := make(core.Statevector, len(resp.Amplitudes))
	for i, a := range resp.Amplitudes {
		sv[i] = complex(a[0], a[1])
	}
	return sv, nil
}

// DummySimulator runs the statevector simulation in-process. It shares the
// engine of DummyQPU but skips the noise channel and the sampling.
type DummySimulator struct{}

func (s *DummySimulator) Setup(conf *core.Conf) error {
	return nil
}

func (s *DummySimulator) State(qasm string) (core.Statevector, error) {
	c, err := circuit.Parse(qasm)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(DummyMaxQubits); err != nil {
		return nil, err
	}
	return core.Statevector(circuit.Simulate(c)), nil
}
