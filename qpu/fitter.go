package qpu

import (
	"context"
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GatewayFitter delegates regression fits to a fitter service. The heavy
// lifting stays out of the edge process; only the fitted coefficients come
// back.
type GatewayFitter struct {
	address string
	conn    *grpc.ClientConn
	ctx     context.Context
}

func (f *GatewayFitter) Setup(conf *core.Conf) error {
	address, err := common.ValidAddress(conf.GRPCFitterHost, conf.GRPCFitterPort)
	if err != nil {
		return err
	}
	f.address = address
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to make connection to %s/reason:%s", address, err))
		return err
	}
	f.conn = conn
	f.ctx = context.Background()
	zap.L().Info(fmt.Sprintf("fitter client is ready to use %s", address))
	return nil
}

func (f *GatewayFitter) Fit(features [][]float64, labels []float64) (core.FitModel, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("fit takes matching features and labels, got %d and %d",
			len(features), len(labels))
	}
	var resp FitModelResponse
	if err := common.InvokeJSON(f.ctx, f.conn, fitModelMethod,
		&FitModelRequest{Features: features, Labels: labels}, &resp); err != nil {
		zap.L().Error(fmt.Sprintf("failed to fit the model in %s/reason:%s", f.address, err))
		return nil, err
	}
	if len(resp.Coefficients) != len(features[0]) {
		return nil, fmt.Errorf("fitter returned %d coefficient(s) for %d feature(s)",
			len(resp.Coefficients), len(features[0]))
	}
	return &core.AffineModel{
		Coefficients: resp.Coefficients,
		Intercept:    resp.Intercept,
	}, nil
}

// DummyFitter skips the regression entirely. The returned model echoes the
// first feature, so the mitigated value equals the raw expectation value.
type DummyFitter struct{}

func (f *DummyFitter) Setup(conf *core.Conf) error {
	return nil
}

func (f *DummyFitter) Fit(features [][]float64, labels []float64) (core.FitModel, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("fit takes matching features and labels, got %d and %d",
			len(features), len(labels))
	}
	if len(features[0]) == 0 {
		return nil, fmt.Errorf("fit takes at least one feature")
	}
	coef := make([]float64, len(features[0]))
	coef[0] = 1.0
	return &core.AffineModel{Coefficients: coef}, nil
}
