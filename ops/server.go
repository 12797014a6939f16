package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

const OpsServerName = "ops"

const (
	DEFAULT_HOST = "localhost"
	DEFAULT_PORT = "8088"
)

const shutdownTimeout = 5 * time.Second

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// Server answers operational questions about a running engine over plain
// HTTP: /health reports whether the collaborators answer, /info reports the
// running version, configuration and queue state.
type Server struct {
	Host string `toml:"host"`
	Port string `toml:"port"`

	address string
	httpSrv *http.Server

	sysCom *core.SystemComponents
}

type infoResponse struct {
	Version      string              `json:"version"`
	QueueSize    int                 `json:"queue_size"`
	DeviceStatus string              `json:"device_status"`
	RunGroup     []string            `json:"run_group,omitempty"`
	Conf         *core.NonSecretConf `json:"conf"`
}

func (s *Server) GetEmptyParams() interface{} {
	return &Server{}
}

func (s *Server) SetParams(params interface{}) error {
	if params == nil {
		zap.L().Debug("no params for the ops server")
		return nil
	}
	pp, ok := params.(map[string]interface{})
	if !ok {
		err := fmt.Errorf("failed to set params for the ops server/params: %s", params)
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
		zap.L().Error(fmt.Sprintf("failed to validate the ops address/reason:%s", err))
		return err
	}
	s.address = address
	s.sysCom = core.GetSystemComponents()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/info", s.handleInfo)
	s.httpSrv = &http.Server{Addr: address, Handler: mux}
	return nil
}

func (s *Server) Serve() error {
	zap.L().Info(fmt.Sprintf("ops server is listening on %s", s.address))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		zap.L().Error(fmt.Sprintf("failed to shut down the ops server/reason:%s", err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	err := s.sysCom.Invoke(
		func(t core.Transpiler) error {
			return t.GetHealth()
		})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"status": "unhealthy", "reason": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	resp := &infoResponse{
		Version:      core.Version,
		QueueSize:    s.sysCom.GetCurrentQueueSize(),
		DeviceStatus: s.sysCom.GetDeviceInfo().Status.String(),
	}
	if rc := core.GetRunContext(); rc != nil && rc.RunGroupMaps != nil {
		resp.RunGroup = runGroupMembers(rc.RunGroupMaps)
	}
	if core.CurrentInfo != nil {
		resp.Conf = core.CurrentInfo.Conf
	}
	writeJSON(w, http.StatusOK, resp)
}

// runGroupMembers lists everything running in the process run group, sorted
// for stable output.
func runGroupMembers(m *core.RunGroupMaps) []string {
	names := []string{}
	for name := range m.PeriodicTasks {
		names = append(names, name)
	}
	for name := range m.InternalJobServers {
		names = append(names, name)
	}
	for name := range m.APIServers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := jsonIter.Marshal(body)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal an ops response/reason:%s", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zap.L().Error(fmt.Sprintf("failed to write an ops response/reason:%s", err))
	}
}
