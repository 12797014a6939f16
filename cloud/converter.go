package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-openapi/strfmt"
	"github.com/qem-team/qem-engine/coreapp/cdr"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/qem-team/qem-engine/coreapp/sampling"
	"go.uber.org/zap"
)

const notSetMessage = "not set in cloud job"

// DecodeJobs decodes the JSON array returned by the jobs API into JobData.
func DecodeJobs(data []byte) ([]*core.JobData, error) {
	jds := []*core.JobData{}
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		jd, err := decodeJob(raw)
		if err != nil {
			return err
		}
		jds = append(jds, jd)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to decode the job list")
	}
	return jds, nil
}

func decodeJob(raw jx.Raw) (*core.JobData, error) {
	jd := core.NewJobData()
	jd.Transpiler = core.DEFAULT_TRANSPILER_CONFIG()
	jd.MitigationInfo = "{}"
	jd.Result.Message = notSetMessage
	submittedAtSet := false
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "job_id":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode job_id")
			}
			jd.ID = v
		case "job_type":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode job_type")
			}
			jd.JobType = toJobType(v)
		case "status":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode status")
			}
			st, serr := core.ToStatus(v)
			if serr != nil {
				zap.L().Error(fmt.Sprintf("unknown status %q in a cloud job", v))
				st = core.FAILED
			}
			jd.Status = st
		case "shots":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "decode shots")
			}
			jd.Shots = v
		case "submitted_at":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode submitted_at")
			}
			t, perr := time.Parse(time.RFC3339, v)
			if perr != nil {
				zap.L().Error(fmt.Sprintf("failed to parse submitted_at %q/reason:%s", v, perr))
				return nil
			}
			jd.Created = strfmt.DateTime(t)
			submittedAtSet = true
		case "transpiler_info":
			value, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "decode transpiler_info")
			}
			jd.Transpiler = convertToTranspilerConfig(value)
		case "mitigation_info":
			value, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "decode mitigation_info")
			}
			jd.MitigationInfo = convertToMitigationInfo(value)
		case "job_info":
			value, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "decode job_info")
			}
			return decodeJobInfo(value, jd)
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to decode a cloud job(%s)", jd.ID))
	}
	if !submittedAtSet {
		zap.L().Error("failed to get submitted_at")
		jd.Created = strfmt.DateTime{}
	}
	zap.L().Debug(fmt.Sprintf("decoded a cloud job(%s)/Transpiler:%v/MitigationInfo:%s",
		jd.ID, jd.Transpiler, jd.MitigationInfo))
	return jd, nil
}

func decodeJobInfo(raw jx.Raw, jd *core.JobData) error {
	d := jx.DecodeBytes(raw)
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "program":
			programs := []string{}
			if err := d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				programs = append(programs, v)
				return nil
			}); err != nil {
				return errors.Wrap(err, "decode program")
			}
			if len(programs) == 0 {
				zap.L().Error(fmt.Sprintf("program is empty in a cloud job(%s)", jd.ID))
				return nil
			}
			jd.QASM = programs[0]
		case "operator":
			value, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "decode operator")
			}
			if value.Type() != jx.Null {
				jd.Info = string(value)
			}
		case "message":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode message")
			}
			jd.Result.Message = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func toJobType(v string) string {
	switch v {
	case sampling.SAMPLING_JOB:
		return sampling.SAMPLING_JOB
	case cdr.CDR_JOB:
		return cdr.CDR_JOB
	default:
		zap.L().Error(fmt.Sprintf("unknown job type %s", v))
		return core.NORMAL_JOB
	}
}

func convertToTranspilerConfig(raw jx.Raw) *core.TranspilerConfig {
	if len(raw) == 0 || raw.Type() == jx.Null {
		zap.L().Debug("use default transpiler config")
		return core.DEFAULT_TRANSPILER_CONFIG()
	}
	fields, err := decodeRawObject(raw)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode transpiler info from %s/reason:%s", raw, err))
		return core.DEFAULT_TRANSPILER_CONFIG()
	}
	tl, ok := fields["transpiler_lib"]
	if !ok {
		zap.L().Debug("not found transpiler_lib/use default transpiler config")
		return core.DEFAULT_TRANSPILER_CONFIG()
	}
	if tl.Type() == jx.Null { // Attention: "null" is not a missing key
		zap.L().Debug("do not use transpiler")
		return &core.TranspilerConfig{TranspilerLib: nil}
	}
	zap.L().Debug("use specified transpiler config")
	tc := &core.TranspilerConfig{}
	if err := jsonIter.Unmarshal(raw, tc); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal transpiler info from %s/reason:%s", raw, err))
		return &core.TranspilerConfig{}
	}
	if restatesDefaultTranspilerConfig(fields) {
		zap.L().Debug("specified transpiler config restates the default")
		tc.UseDefault = true
	}
	return tc
}

// restatesDefaultTranspilerConfig reports whether the supplied fields spell
// out exactly the engine's default transpiler settings, so the config can be
// flagged as default even when the cloud job wrote it in full.
func restatesDefaultTranspilerConfig(fields map[string]jx.Raw) bool {
	def := core.DefaultTranspilerConfigJson()
	lib, ok := fields["transpiler_lib"]
	if !ok || !bytes.Equal(lib, def["transpiler_lib"]) {
		return false
	}
	opts, ok := fields["transpiler_options"]
	if !ok {
		// the lib alone selects the default option set
		return true
	}
	gotOpts, err := decodeRawObject(opts)
	if err != nil {
		return false
	}
	wantOpts, err := decodeRawObject(def["transpiler_options"])
	if err != nil || len(gotOpts) != len(wantOpts) {
		return false
	}
	for key, want := range wantOpts {
		got, ok := gotOpts[key]
		if !ok || !bytes.Equal(got, want) {
			return false
		}
	}
	return true
}

// convertToMitigationInfo keeps each value of the mitigation_info object as
// its raw JSON text so the job layer can interpret it later.
func convertToMitigationInfo(raw jx.Raw) string {
	if len(raw) == 0 || raw.Type() == jx.Null {
		return "{}"
	}
	fields, err := decodeRawObject(raw)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode mitigation info from %s/reason:%s", raw, err))
		return "{}"
	}
	tempMap := make(map[string]string)
	for key, value := range fields {
		tempMap[key] = value.String()
	}
	jsonData, err := json.Marshal(tempMap)
	if err != nil {
		return "{}"
	}
	return string(jsonData)
}

func decodeRawObject(raw jx.Raw) (map[string]jx.Raw, error) {
	fields := make(map[string]jx.Raw)
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		value, err := d.Raw()
		if err != nil {
			return err
		}
		fields[key] = value
		return nil
	}); err != nil {
		return nil, err
	}
	return fields, nil
}

type JobInfoUpdate struct {
	OverwriteStatus string      `json:"overwrite_status"`
	ExecutionTime   *float64    `json:"execution_time"`
	JobInfo         JobInfoBody `json:"job_info"`
}

type JobInfoBody struct {
	TranspileResult *TranspileResult `json:"transpile_result"`
	Result          *JobResultBody   `json:"result"`
	Message         string           `json:"message"`
}

type TranspileResult struct {
	TranspiledProgram      string                         `json:"transpiled_program"`
	Stats                  core.StatsRaw                  `json:"stats"`
	VirtualPhysicalMapping core.VirtualPhysicalMappingRaw `json:"virtual_physical_mapping"`
}

type JobResultBody struct {
	Sampling   *SamplingResultBody `json:"sampling"`
	Mitigation *core.Mitigation    `json:"mitigation"`
}

type SamplingResultBody struct {
	Counts        core.Counts            `json:"counts"`
	DividedCounts map[string]core.Counts `json:"divided_counts,omitempty"`
}

// ConvertToJobInfoUpdate builds the job_info PATCH body from a finished job.
func ConvertToJobInfoUpdate(jd *core.JobData) *JobInfoUpdate {
	var ext *float64
	if jd.Result.ExecutionTime != 0 {
		sec := jd.Result.ExecutionTime.Seconds()
		ext = &sec
	}
	var tr *TranspileResult
	if jd.NeedTranspiling() {
		tr = &TranspileResult{TranspiledProgram: jd.TranspiledQASM}
		if ti := jd.Result.TranspilerInfo; ti != nil {
			tr.Stats = ti.StatsRaw
			tr.VirtualPhysicalMapping = ti.VirtualPhysicalMappingRaw
		}
	}
	var res *JobResultBody
	if jd.Status == core.FAILED {
		zap.L().Debug("failed/setting result to null")
	} else {
		res = &JobResultBody{
			Sampling: &SamplingResultBody{
				Counts:        jd.Result.Counts,
				DividedCounts: convertToDividedCounts(jd.Result.DividedResult),
			},
			Mitigation: jd.Result.Mitigation,
		}
	}
	return &JobInfoUpdate{
		OverwriteStatus: jd.Status.String(),
		ExecutionTime:   ext,
		JobInfo: JobInfoBody{
			TranspileResult: tr,
			Result:          res,
			Message:         jd.Result.Message,
		},
	}
}

func convertToDividedCounts(dr core.DividedResult) map[string]core.Counts {
	if len(dr) == 0 {
		return nil
	}
	res := make(map[string]core.Counts)
	for key, value := range dr {
		res[strconv.FormatUint(uint64(key), 10)] = value
	}
	return res
}

// ConvertToTranspilerInfoUpdate flattens the transpiler configuration into
// the transpiler_info PATCH body. A nil config yields nil.
func ConvertToTranspilerInfoUpdate(tc *core.TranspilerConfig) map[string]json.RawMessage {
	if tc == nil {
		return nil
	}
	jsonData, err := json.Marshal(tc)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal transpiler config/reason:%s", err))
		return map[string]json.RawMessage{}
	}
	res := make(map[string]json.RawMessage)
	if err := json.Unmarshal(jsonData, &res); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal transpiler config/reason:%s", err))
		return map[string]json.RawMessage{}
	}
	return res
}
