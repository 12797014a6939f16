package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a thin hand-written client for the cloud jobs/devices API.
// The engine only needs a handful of operations, so the endpoints are
// spelled out instead of generated.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint, apiKey string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty cloud endpoint")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	transport := &apiKeyRoundTripper{
		apiKey: apiKey,
		next: &loggingRoundTripper{
			next: http.DefaultTransport,
		},
	}
	zap.L().Info("Cloud API client created with local logging transport", zap.String("endpoint", endpoint))
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}, nil
}

// GetJobs fetches at most maxResults jobs of the device in the given status.
func (c *Client) GetJobs(ctx context.Context, deviceID string, status core.Status, maxResults int) ([]*core.JobData, error) {
	q := url.Values{}
	q.Set("device_id", deviceID)
	q.Set("status", status.String())
	q.Set("max_results", strconv.Itoa(maxResults))
	body, err := c.do(ctx, http.MethodGet, "/jobs?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get jobs")
	}
	jds, err := DecodeJobs(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode jobs")
	}
	return jds, nil
}

type jobStatusUpdate struct {
	Status string `json:"status"`
}

// PatchJobStatus updates only the status of the job. Used for the running
// transition; terminal statuses go through PatchJobInfo.
func (c *Client) PatchJobStatus(ctx context.Context, jobID string, status core.Status) error {
	body := jobStatusUpdate{Status: status.String()}
	if _, err := c.do(ctx, http.MethodPatch, "/jobs/"+url.PathEscape(jobID), body); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update the status of %s", jobID))
	}
	return nil
}

// PatchJobInfo uploads the job result: status, execution time, counts,
// mitigated value, transpile result and message.
func (c *Client) PatchJobInfo(ctx context.Context, jd *core.JobData) error {
	body := ConvertToJobInfoUpdate(jd)
	if _, err := c.do(ctx, http.MethodPatch, "/jobs/"+url.PathEscape(jd.ID)+"/job_info", body); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update the job info of %s", jd.ID))
	}
	return nil
}

// PatchJobTranspilerInfo uploads the transpiler configuration the job was
// actually processed with.
func (c *Client) PatchJobTranspilerInfo(ctx context.Context, jd *core.JobData) error {
	body := ConvertToTranspilerInfoUpdate(jd.Transpiler)
	if body == nil {
		zap.L().Error("TranspilerInfo is not set")
		return nil
	}
	if _, err := c.do(ctx, http.MethodPatch, "/jobs/"+url.PathEscape(jd.ID)+"/transpiler_info", body); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update the transpiler info of %s", jd.ID))
	}
	return nil
}

type deviceStatusUpdate struct {
	Status string `json:"status"`
}

func (c *Client) PatchDeviceStatus(ctx context.Context, deviceID string, status core.DeviceStatus) error {
	body := deviceStatusUpdate{Status: toDeviceStatusPatch(status)}
	if _, err := c.do(ctx, http.MethodPatch, "/devices/"+url.PathEscape(deviceID)+"/status", body); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update the status of device %s", deviceID))
	}
	return nil
}

type deviceInfoUpdate struct {
	DeviceInfo   string `json:"device_info"`
	CalibratedAt string `json:"calibrated_at"`
}

func (c *Client) PatchDeviceInfo(ctx context.Context, deviceID, deviceInfoJson string, calibratedAt time.Time) error {
	body := deviceInfoUpdate{
		DeviceInfo:   deviceInfoJson,
		CalibratedAt: calibratedAt.Format(time.RFC3339),
	}
	if _, err := c.do(ctx, http.MethodPatch, "/devices/"+url.PathEscape(deviceID)+"/device_info", body); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update the device info of %s", deviceID))
	}
	return nil
}

type deviceUpdate struct {
	NQubits int `json:"n_qubits"`
}

func (c *Client) PatchDevice(ctx context.Context, deviceID string, maxQubits int) error {
	body := deviceUpdate{NQubits: maxQubits}
	if _, err := c.do(ctx, http.MethodPatch, "/devices/"+url.PathEscape(deviceID), body); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update the device %s", deviceID))
	}
	return nil
}

func toDeviceStatusPatch(ds core.DeviceStatus) string {
	switch ds {
	case core.Available:
		return "available"
	case core.Unavailable:
		return "unavailable"
	default:
		zap.L().Error(fmt.Sprintf("unknown device status %d", ds))
		return "unavailable"
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := jsonIter.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s %s returned %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

type apiKeyRoundTripper struct {
	apiKey string
	next   http.RoundTripper
}

func (art *apiKeyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if art.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+art.apiKey)
	}
	return art.next.RoundTrip(req)
}

type loggingRoundTripper struct {
	next http.RoundTripper
}

func (lrt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := lrt.next.RoundTrip(req)
	if err != nil {
		zap.L().Error("API roundtrip failed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, err
	}

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		zap.L().Error("Failed to read API response body", zap.Error(readErr), zap.Int("statusCode", resp.StatusCode), zap.String("url", req.URL.String()))
		resp.Body.Close()
		return resp, nil
	}
	resp.Body.Close()

	zap.L().Debug("Received API response",
		zap.String("url", req.URL.String()),
		zap.Int("statusCode", resp.StatusCode),
		zap.ByteString("responseBody", bodyBytes),
	)

	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return resp, nil
}
