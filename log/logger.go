package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	rotate "github.com/lestrrat-go/file-rotatelogs"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger from conf. Production logs are JSON
// with ISO8601 timestamps, dev mode switches to the console encoder. The
// file sink and the stdout sink can each be turned off in conf.
func NewLogger(conf *core.Conf) (*zap.Logger, error) {
	var encoder zapcore.Encoder
	if conf.DevMode {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		c := zap.NewProductionEncoderConfig()
		c.EncodeTime = zapcore.ISO8601TimeEncoder
		c.TimeKey = "timestamp"
		encoder = zapcore.NewJSONEncoder(c)
	}
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	switch conf.LogLevel {
	case "debug":
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	cores := []zapcore.Core{}
	if conf.EnableFileLog {
		rotator, err := newLogRotator(conf.LogDir, conf.LogRotationMaxDays)
		if err != nil {
			return nil, err
		}
		fileCore := zapcore.NewCore(encoder, zapcore.AddSync(rotator), level)
		cores = append(cores, fileCore)
	}
	if !conf.DisableStdoutLog {
		stdoutCore := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
		cores = append(cores, stdoutCore)
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func newLogRotator(dirPath string, maxDays int) (*rotate.RotateLogs, error) {
	if err := common.IsDirWritable(dirPath); err != nil {
		return nil, fmt.Errorf("failed to write logs to %s: %w", dirPath, err)
	}
	rotator, err := rotate.New(
		filepath.Join(dirPath, "qem-edge-%Y-%m-%d.log"),
		rotate.WithMaxAge(time.Duration(maxDays)*24*time.Hour),
		rotate.WithRotationTime(time.Hour))
	if err != nil {
		return nil, err
	}
	return rotator, nil
}
