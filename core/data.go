package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/mohae/deepcopy"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// Status is the job lifecycle state shared with the cloud. SUBMITTED only
// exists cloud-side: by the time a job reaches the engine it is READY.
type Status int

const (
	SUBMITTED Status = iota // waiting in the cloud queue
	READY                   // accepted by the engine, not yet run
	RUNNING                 // on the QPU
	SUCCEEDED
	FAILED
	CANCELLED
)

var statusByName = map[string]Status{
	"submitted": SUBMITTED,
	"ready":     READY,
	"running":   RUNNING,
	"succeeded": SUCCEEDED,
	"failed":    FAILED,
	"cancelled": CANCELLED,
}

func ToStatus(s string) (Status, error) {
	st, ok := statusByName[s]
	if !ok {
		return 0, fmt.Errorf("unknown status: %s", s)
	}
	return st, nil
}

func (s Status) String() string {
	switch s {
	case SUBMITTED:
		return "submitted"
	case READY:
		return "ready"
	case RUNNING:
		return "running"
	case SUCCEEDED:
		return "succeeded"
	case FAILED:
		return "failed"
	case CANCELLED:
		return "cancelled"
	default:
		return "unknown"
	}
}

type StatsRaw json.RawMessage
type VirtualPhysicalMappingRaw json.RawMessage
type VirtualPhysicalMappingMap map[uint32]uint32
type Counts map[string]uint32
type Probabilities map[string]float64
type Statevector []complex128

// DividedResult holds per-circuit counts of a combined run, keyed by
// circuit index and then by bit string.
type DividedResult map[uint32]Counts

// ErrEmptyCounts is returned when a counts dictionary holds no samples at
// all, so no probability distribution can be derived from it.
var ErrEmptyCounts = errors.New("no samples in counts")

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

func (c Counts) String() string {
	st, err := jsonIter.Marshal(c)
	if err != nil {
		zap.L().Error("Failed to marshal core.Counts")
		return ""
	}
	return string(st)
}

// Total is the number of shots accumulated in the dictionary.
func (c Counts) Total() uint64 {
	t := uint64(0)
	for _, v := range c {
		t += uint64(v)
	}
	return t
}

// RunResult is the outcome of running one circuit: either a sampled counts
// dictionary from a device or a full statevector from an exact simulator.
// The two variants are handled exhaustively wherever a RunResult is consumed.
type RunResult interface {
	isRunResult()
}

// CountsResult wraps a measured shot histogram.
type CountsResult struct {
	Counts Counts
}

// StateResult wraps the 2^n complex amplitudes of a noiseless pure state.
type StateResult struct {
	Vector Statevector
}

func (CountsResult) isRunResult() {}
func (StateResult) isRunResult()  {}

// CanonicalKey is the zero-padded bitstring label for basis state index
// on a register of the given width.
func CanonicalKey(index int, qubits int) string {
	return fmt.Sprintf("%0*b", qubits, index)
}

// ParseBasisKey converts a counts key to its basis-state index. Accepted
// forms are the canonical zero-padded bitstring, a shorter bare binary
// string, and a "0b"-prefixed binary literal as produced by upstream
// histograms. Decimal labels are rejected as ambiguous against binary.
func ParseBasisKey(key string, qubits int) (int, error) {
	s := strings.TrimPrefix(key, "0b")
	if s == "" {
		return 0, fmt.Errorf("empty counts key %q", key)
	}
	v, err := strconv.ParseUint(s, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("counts key %q is not a binary label: %w", key, err)
	}
	if v >= 1<<uint(qubits) {
		return 0, fmt.Errorf("counts key %q out of range for %d qubit(s)", key, qubits)
	}
	return int(v), nil
}

// MarshalJSON emits the stored bytes verbatim so stats survive a
// marshal round trip instead of being base64 encoded.
func (s StatsRaw) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *StatsRaw) UnmarshalJSON(data []byte) error {
	*s = append((*s)[0:0], data...)
	return nil
}

func (v VirtualPhysicalMappingRaw) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *VirtualPhysicalMappingRaw) UnmarshalJSON(data []byte) error {
	*v = append((*v)[0:0], data...)
	return nil
}

func (v VirtualPhysicalMappingRaw) String() string {
	st, err := jsonIter.Marshal(v)
	if err != nil {
		zap.L().Error("Failed to marshal core.VirtualPhysicalMapping")
		return ""
	}
	return string(st)
}

// ToMap decodes the stored mapping. JSON object keys are strings, so the
// blob goes through a map[string]uint32 first.
func (v VirtualPhysicalMappingRaw) ToMap() (VirtualPhysicalMappingMap, error) {
	if len(v) == 0 {
		return make(VirtualPhysicalMappingMap), nil
	}
	var byName map[string]uint32
	if err := json.Unmarshal(v, &byName); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal VirtualPhysicalMappingRaw:%v/reason:%s", v, err))
		return nil, err
	}
	result := make(VirtualPhysicalMappingMap, len(byName))
	for k, pq := range byName {
		vq, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to convert key:%s/reason:%s", k, err))
			return nil, err
		}
		result[uint32(vq)] = pq
	}
	return result, nil
}

func (v VirtualPhysicalMappingMap) ToRaw() (VirtualPhysicalMappingRaw, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

type Result struct {
	Counts         Counts          `json:"counts"`
	DividedResult  DividedResult   `json:"divided_result"`
	TranspilerInfo *TranspilerInfo `json:"transpiler_info"`
	Mitigation     *Mitigation     `json:"mitigation"`
	Message        string          `json:"message"`
	ExecutionTime  time.Duration   `json:"execution_time"`
}

type TranspilerInfo struct {
	StatsRaw                  StatsRaw                  `json:"stats"`
	VirtualPhysicalMappingRaw VirtualPhysicalMappingRaw `json:"virtual_physical_mapping"`
	VirtualPhysicalMappingMap VirtualPhysicalMappingMap `json:"-"` // TODO unify with VirtualPhysicalMappingRaw
}

// Mitigation is the outcome of the data-regression stage: the mitigated
// expectation value and the raw per-noise-scale values it was derived from.
type Mitigation struct {
	ExpValue float64   `json:"exp_value"`
	Raw      []float64 `json:"raw_exp_values"`
}

func NewResult() *Result {
	return &Result{
		Counts:         make(Counts),
		TranspilerInfo: &TranspilerInfo{},
	}
}

func (r *Result) ToString() string {
	st, err := jsonIter.Marshal(r)
	if err != nil {
		zap.L().Error("Failed to marshal core.Result")
		return ""
	}
	return string(pretty.Pretty(st))
}

type JobData struct {
	ID             string
	Status         Status
	Shots          int
	Transpiler     *TranspilerConfig
	QASM           string
	TranspiledQASM string
	Result         *Result
	JobType        string
	Created        strfmt.DateTime
	Ended          strfmt.DateTime
	Info           string
	MitigationInfo string
}

func NewJobData() *JobData {
	return &JobData{
		Result:  NewResult(),
		Created: strfmt.DateTime(time.Now()),
	}
}

// Clone deep-copies the job data. strfmt.DateTime needs its own DeepCopy:
// deepcopy.Copy loses the wall clock reading.
func (jd *JobData) Clone() *JobData {
	c := deepcopy.Copy(jd).(*JobData)
	c.Created = *jd.Created.DeepCopy()
	c.Ended = *jd.Ended.DeepCopy()
	return c
}

func (jd *JobData) NeedTranspiling() bool {
	return jd.Transpiler.TranspilerLib != nil
}

type TranspilerConfig struct {
	TranspilerLib     *string         `json:"transpiler_lib"` // nil means no transpiler
	TranspilerOptions json.RawMessage `json:"transpiler_options"`
	UseDefault        bool            `json:"-"`
}
