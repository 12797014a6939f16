package log

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	rotate "github.com/lestrrat-go/file-rotatelogs"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/qem-team/qem-engine/coreapp/mitig"
	"go.uber.org/zap"
)

const MetricsLogTaskName = "metrics_log"

const (
	queueLengthKeyInMetrics   = "queue_length"
	mitigatedJobsKeyInMetrics = "mitigated_jobs"
)

// MetricsLogTaskImpl snapshots engine gauges on every tick into a daily
// metrics-YYYY-MM-DD.log file as JSON lines.
type MetricsLogTaskImpl struct {
	FileDir string `toml:"file_dir"`

	rotator *rotate.RotateLogs
	sc      *core.SystemComponents

	core.DefaultTaskImpl
}

func (m *MetricsLogTaskImpl) GetEmptyParams() interface{} {
	return m
}

func (m *MetricsLogTaskImpl) SetParams(p interface{}) error {
	if p == nil {
		zap.L().Debug("no params for metrics log task")
		return nil
	}
	mp, ok := p.(map[string]interface{})
	if !ok {
		err := fmt.Errorf("failed to set params for metrics log task/params: %s", p)
		zap.L().Error(err.Error())
		return err
	}
	if fileDir, ok := mp["file_dir"].(string); ok {
		m.FileDir = fileDir
	}
	return nil
}

func (m *MetricsLogTaskImpl) Setup() error {
	if err := common.IsDirWritable(m.FileDir); err != nil {
		zap.L().Error(fmt.Sprintf("metrics directory %s is not writable/reason:%s", m.FileDir, err))
		return fmt.Errorf("failed to write to %s: %w", m.FileDir, err)
	}
	rotator, err := rotate.New(
		filepath.Join(m.FileDir, "metrics-%Y-%m-%d.log"),
		rotate.WithRotationTime(24*time.Hour))
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to set up the metrics rotator/reason:%s", err))
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(rotator, nil)))
	m.rotator = rotator
	m.sc = core.GetSystemComponents()
	return nil
}

func (m *MetricsLogTaskImpl) Task() {
	slog.Info("Metrics",
		slog.Int(queueLengthKeyInMetrics, m.sc.GetCurrentQueueSize()),
		slog.Uint64(mitigatedJobsKeyInMetrics, mitig.MitigatedJobCount()),
	)
}

func (m *MetricsLogTaskImpl) Cleanup() {
	if m.rotator == nil {
		return
	}
	if err := m.rotator.Close(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to close the metrics rotator/reason:%s", err))
	}
}
