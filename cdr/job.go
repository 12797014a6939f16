package cdr

import (
	"encoding/json"
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/circuit"
	"github.com/qem-team/qem-engine/coreapp/core"
	"github.com/qem-team/qem-engine/coreapp/mitig"
	"go.uber.org/zap"
)

const CDR_JOB = "cdr"

const (
	DEFAULT_NUM_TRAINING_CIRCUITS = 10
	DEFAULT_FRACTION_NON_CLIFFORD = 0.2
	DEFAULT_SELECTION_METHOD      = SELECT_UNIFORM
	DEFAULT_SEED                  = int64(1)
)

func DEFAULT_SCALE_FACTORS() []float64 {
	return []float64{1.0}
}

// CDRParam is the "cdr" property of the mitigation_info document.
type CDRParam struct {
	NumTrainingCircuits int       `json:"num_training_circuits"`
	FractionNonClifford float64   `json:"fraction_non_clifford"`
	SelectionMethod     string    `json:"selection_method"`
	Seed                int64     `json:"seed"`
	ScaleFactors        []float64 `json:"scale_factors"`
	Observable          []float64 `json:"observable,omitempty"`
}

func NewCDRParam() *CDRParam {
	return &CDRParam{
		NumTrainingCircuits: DEFAULT_NUM_TRAINING_CIRCUITS,
		FractionNonClifford: DEFAULT_FRACTION_NON_CLIFFORD,
		SelectionMethod:     DEFAULT_SELECTION_METHOD,
		Seed:                DEFAULT_SEED,
		ScaleFactors:        DEFAULT_SCALE_FACTORS(),
	}
}

// CDRSetting is the component setting of the cdr pipeline. With use_batch
// enabled the training circuits of one noise level are packed side by side
// into combined circuits of at most max_batch_qubits qubits and run at once.
type CDRSetting struct {
	UseBatch       bool `toml:"use_batch"`
	MaxBatchQubits int  `toml:"max_batch_qubits"`
}

func NewCDRSetting() *CDRSetting {
	return &CDRSetting{
		UseBatch:       false,
		MaxBatchQubits: 16,
	}
}

func currentCDRSetting() *CDRSetting {
	setting := NewCDRSetting()
	s, ok := core.GetComponentSetting("cdr")
	if !ok {
		return setting
	}
	switch v := s.(type) {
	case *CDRSetting:
		return v
	case map[string]interface{}:
		if b, ok := v["use_batch"].(bool); ok {
			setting.UseBatch = b
		}
		if q, ok := v["max_batch_qubits"].(int64); ok {
			setting.MaxBatchQubits = int(q)
		}
	}
	return setting
}

// CDRJob runs the whole Clifford-data-regression pipeline for one circuit of
// interest: generate near-Clifford training circuits, run them and the
// circuit on the device at every scale factor, simulate the training
// circuits exactly, fit the noisy-to-noiseless model and apply it to the
// circuit's feature vector.
type CDRJob struct {
	jobData        *core.JobData
	jobContext     *core.JobContext
	mitigationInfo *mitig.MitigationInfo

	param             *CDRParam
	observable        core.Observable
	circuitOfInterest circuit.Circuit
	trainingCircuits  []circuit.Circuit

	circuitResults []core.RunResult   // circuit of interest, one per scale factor
	idealResults   []core.RunResult   // noiseless training results
	noisyResults   [][]core.RunResult // indexed [scale factor][training circuit]
}

func (j *CDRJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &CDRJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *CDRJob) PreProcess() {
	if err := j.preProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
}

func (j *CDRJob) preProcessImpl() error {
	jd := j.JobData()
	container := core.GetSystemComponents().Container
	if err := container.Invoke(
		func(d core.DBManager) error {
			if d.ExistInInnerJobIDSet(jd.ID) {
				return core.ErrorJobIDConflict
			}
			return nil
		}); err != nil {
		return err
	}

	j.mitigationInfo = mitig.NewMitigationInfoFromJobData(jd)
	param, err := parseCDRParam(j.mitigationInfo)
	if err != nil {
		return err
	}
	j.param = param

	c, err := circuit.Parse(jd.QASM)
	if err != nil {
		return fmt.Errorf("failed to parse the circuit of a job(%s). Reason:%s", jd.ID, err)
	}
	j.circuitOfInterest = c

	obs, err := buildObservable(param, c.Qubits)
	if err != nil {
		return err
	}
	j.observable = obs

	tcs, err := GenerateTrainingCircuits(c,
		param.NumTrainingCircuits, param.FractionNonClifford, param.SelectionMethod, param.Seed)
	if err != nil {
		return fmt.Errorf("failed to generate training circuits of a job(%s). Reason:%s", jd.ID, err)
	}
	j.trainingCircuits = tcs
	zap.L().Debug(fmt.Sprintf("generated %d training circuits for a job(%s)/rz gates:%d",
		len(tcs), jd.ID, c.CountRZ()))

	if jd.NeedTranspiling() {
		if err := container.Invoke(
			func(t core.Transpiler) error {
				return t.Transpile(j)
			}); err != nil {
			return fmt.Errorf("failed to transpile a job(%s). Reason:%s", jd.ID, err)
		}
	} else {
		zap.L().Debug(fmt.Sprintf("skip transpiling a job(%s)/Transpiler:%v", jd.ID, jd.Transpiler))
	}
	_ = container.Invoke(
		func(d core.DBManager) error {
			d.AddToInnerJobIDSet(jd.ID)
			return nil
		})
	return nil
}

func parseCDRParam(m *mitig.MitigationInfo) (*CDRParam, error) {
	param := NewCDRParam()
	raw, ok := m.Property("cdr")
	if !ok {
		zap.L().Debug("no cdr property in mitigation info, using defaults")
		return param, nil
	}
	if err := json.Unmarshal([]byte(raw), param); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cdr parameters from %s. Reason:%s", raw, err)
	}
	if param.NumTrainingCircuits < 1 {
		return nil, fmt.Errorf("num_training_circuits must be at least 1, got %d", param.NumTrainingCircuits)
	}
	if len(param.ScaleFactors) == 0 {
		return nil, fmt.Errorf("scale_factors must not be empty")
	}
	return param, nil
}

func buildObservable(param *CDRParam, qubits int) (core.Observable, error) {
	if len(param.Observable) == 0 {
		obs := core.PauliZ()
		for q := 1; q < qubits; q++ {
			obs = obs.Kron(core.PauliZ())
		}
		return obs, nil
	}
	obs, err := core.NewDiagonalObservable(param.Observable)
	if err != nil {
		return core.Observable{}, fmt.Errorf("failed to build the observable. Reason:%s", err)
	}
	if obs.Qubits() != qubits {
		return core.Observable{}, fmt.Errorf("observable acts on %d qubit(s) but the circuit has %d",
			obs.Qubits(), qubits)
	}
	return obs, nil
}

func (j *CDRJob) Process() {
	if j.JobData().Status == core.FAILED {
		return
	}
	container := core.GetSystemComponents().Container
	err := container.Invoke(
		func(q core.QPUManager, s core.Simulator) error {
			return j.processImpl(q, s)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to process a job(%s). Reason:%s", j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
	zap.L().Debug(fmt.Sprintf("finished to process a job(%s)/status:%s", j.JobData().ID, j.JobData().Status))
}

func (j *CDRJob) processImpl(q core.QPUManager, s core.Simulator) error {
	jd := j.JobData()
	scales := j.param.ScaleFactors

	j.circuitResults = make([]core.RunResult, 0, len(scales))
	for _, scale := range scales {
		counts, err := q.SendWithScale(j, scale)
		if err != nil {
			return fmt.Errorf("failed to run the circuit of interest at scale %g. Reason:%s", scale, err)
		}
		j.circuitResults = append(j.circuitResults, core.CountsResult{Counts: counts})
	}
	// Raw counts of the first scale factor are reported next to the
	// mitigation.
	if cr, ok := j.circuitResults[0].(core.CountsResult); ok {
		jd.Result.Counts = cr.Counts
	}

	j.noisyResults = make([][]core.RunResult, 0, len(scales))
	for _, scale := range scales {
		perCircuit, err := j.runTrainingCircuits(q, scale)
		if err != nil {
			return err
		}
		j.noisyResults = append(j.noisyResults, perCircuit)
	}

	j.idealResults = make([]core.RunResult, 0, len(j.trainingCircuits))
	for i, tc := range j.trainingCircuits {
		sv, err := s.State(circuit.Write(tc))
		if err != nil {
			return fmt.Errorf("failed to simulate training circuit %d. Reason:%s", i, err)
		}
		j.idealResults = append(j.idealResults, core.StateResult{Vector: sv})
	}
	return nil
}

func (j *CDRJob) runTrainingCircuits(q core.QPUManager, scale float64) ([]core.RunResult, error) {
	setting := currentCDRSetting()
	batch := 1
	if setting.UseBatch && j.circuitOfInterest.Qubits > 0 {
		batch = setting.MaxBatchQubits / j.circuitOfInterest.Qubits
		if batch < 1 {
			batch = 1
		}
	}
	results := make([]core.RunResult, 0, len(j.trainingCircuits))
	for start := 0; start < len(j.trainingCircuits); start += batch {
		end := start + batch
		if end > len(j.trainingCircuits) {
			end = len(j.trainingCircuits)
		}
		group := j.trainingCircuits[start:end]
		if len(group) == 1 {
			counts, err := j.runQASM(q, circuit.Write(group[0]), scale)
			if err != nil {
				return nil, fmt.Errorf("failed to run training circuit %d at scale %g. Reason:%s", start, scale, err)
			}
			results = append(results, core.CountsResult{Counts: counts})
			continue
		}
		divided, err := j.runBatch(q, group, scale)
		if err != nil {
			return nil, fmt.Errorf("failed to run training circuits %d..%d at scale %g. Reason:%s",
				start, end-1, scale, err)
		}
		results = append(results, divided...)
	}
	return results, nil
}

// runBatch packs a group of training circuits side by side into one combined
// circuit, runs it once and divides the combined counts back per circuit.
func (j *CDRJob) runBatch(q core.QPUManager, group []circuit.Circuit, scale float64) ([]core.RunResult, error) {
	combined := packCircuits(group)
	counts, err := j.runQASM(q, circuit.Write(combined), scale)
	if err != nil {
		return nil, err
	}
	scratch := core.NewJobData()
	scratch.Result.Counts = counts
	widths := make([]int, len(group))
	for i, c := range group {
		widths[i] = c.Qubits
	}
	if err := DivideResult(scratch, widths); err != nil {
		return nil, err
	}
	results := make([]core.RunResult, len(group))
	for i := range group {
		divided, ok := scratch.Result.DividedResult[uint32(i)]
		if !ok {
			return nil, fmt.Errorf("no divided counts for packed circuit %d", i)
		}
		results[i] = core.CountsResult{Counts: divided}
	}
	return results, nil
}

// runQASM runs an auxiliary circuit with the shot budget of the job. The
// clone keeps the QPU interface untouched while swapping the program.
func (j *CDRJob) runQASM(q core.QPUManager, qasm string, scale float64) (core.Counts, error) {
	run := j.Clone()
	jd := run.JobData()
	jd.QASM = qasm
	jd.TranspiledQASM = ""
	return q.SendWithScale(run, scale)
}

func packCircuits(group []circuit.Circuit) circuit.Circuit {
	combined := circuit.Circuit{}
	offset := 0
	for _, c := range group {
		for _, g := range c.Gates {
			qubits := make([]int, len(g.Qubits))
			for k, q := range g.Qubits {
				qubits[k] = q + offset
			}
			combined.Gates = append(combined.Gates, circuit.Gate{Name: g.Name, Qubits: qubits, Param: g.Param})
		}
		offset += c.Qubits
	}
	combined.Qubits = offset
	return combined
}

func (j *CDRJob) PostProcess() {
	if j.JobData().Status == core.FAILED {
		return
	}
	if err := j.postProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to post-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
	j.JobData().Status = core.SUCCEEDED
}

func (j *CDRJob) postProcessImpl() error {
	jd := j.JobData()
	if j.mitigationInfo.NeedToBeMitigated {
		if err := j.mitigateCounts(); err != nil {
			return err
		}
		j.mitigationInfo.Mitigated = true
	}
	labels, features, err := ConstructTrainingData(j.idealResults, j.noisyResults, j.observable)
	if err != nil {
		return err
	}
	circuitFeatures, err := ConstructCircuitData(j.circuitResults, j.observable)
	if err != nil {
		return err
	}

	container := core.GetSystemComponents().Container
	var mitigated float64
	if err := container.Invoke(
		func(f core.Fitter) error {
			model, ferr := f.Fit(features, labels)
			if ferr != nil {
				return fmt.Errorf("failed to fit the regression model. Reason:%s", ferr)
			}
			mitigated, ferr = model.Predict(circuitFeatures)
			if ferr != nil {
				return fmt.Errorf("failed to predict the mitigated value. Reason:%s", ferr)
			}
			return nil
		}); err != nil {
		return err
	}
	jd.Result.Mitigation = &core.Mitigation{
		ExpValue: mitigated,
		Raw:      circuitFeatures,
	}
	mitig.CountMitigatedJob()
	zap.L().Debug(fmt.Sprintf("mitigated expectation value of a job(%s):%g/raw:%v",
		jd.ID, mitigated, circuitFeatures))
	return nil
}

// mitigateCounts applies readout mitigation to every counts result before it
// is converted to an expectation value.
func (j *CDRJob) mitigateCounts() error {
	jd := j.JobData()
	mitigate := func(res core.RunResult) (core.RunResult, error) {
		cr, ok := res.(core.CountsResult)
		if !ok {
			return res, nil
		}
		mitigated, err := mitig.PseudoInverseCounts(jd, cr.Counts)
		if err != nil {
			return nil, err
		}
		return core.CountsResult{Counts: mitigated}, nil
	}
	for i, res := range j.circuitResults {
		m, err := mitigate(res)
		if err != nil {
			return err
		}
		j.circuitResults[i] = m
	}
	for level := range j.noisyResults {
		for i, res := range j.noisyResults[level] {
			m, err := mitigate(res)
			if err != nil {
				return err
			}
			j.noisyResults[level][i] = m
		}
	}
	return nil
}

func (j *CDRJob) IsFinished() bool {
	if j.mitigationInfo != nil && j.mitigationInfo.NeedToBeMitigated && !j.mitigationInfo.Mitigated {
		return j.JobData().Status == core.FAILED
	}
	return j.JobData().Status == core.SUCCEEDED || j.JobData().Status == core.FAILED
}

func (j *CDRJob) JobData() *core.JobData {
	return j.jobData
}

func (j *CDRJob) JobType() string {
	return CDR_JOB
}

func (j *CDRJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *CDRJob) UpdateJobData(jd *core.JobData) {
	j.jobData = jd
}

func (j *CDRJob) Clone() core.Job {
	return &CDRJob{
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
		param:      j.param,
		observable: j.observable,
	}
}
