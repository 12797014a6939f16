// Package mitig applies readout error mitigation to measured counts. The
// device reports per-qubit measurement error rates, each qubit gets a 2x2
// confusion matrix built from them, and the pseudo-inverse of their tensor
// product is applied to the measured distribution qubit by qubit.
package mitig

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type PropertyRaw json.RawMessage

const READOUT_PSEUDO_INVERSE = "pseudo_inverse"

// MitigationInfo is the job-side interpretation of the mitigation_info
// document. Each property value is kept as raw JSON text so later stages can
// decode their own parameters out of it.
type MitigationInfo struct {
	NeedToBeMitigated bool
	Mitigated         bool

	PropertyRaw PropertyRaw
}

func NewMitigationInfoFromJobData(jd *core.JobData) *MitigationInfo {
	m := MitigationInfo{
		NeedToBeMitigated: false,
		Mitigated:         false,
	}
	inputBytes := []byte(jd.MitigationInfo)
	if len(inputBytes) > 0 && json.Valid(inputBytes) {
		m.PropertyRaw = PropertyRaw(inputBytes)
		readoutValue, ok := m.Property("readout")
		if ok && readoutValue == READOUT_PSEUDO_INVERSE {
			zap.L().Debug(fmt.Sprintf("job(%s) needs readout mitigation", jd.ID))
			m.NeedToBeMitigated = true
		} else {
			zap.L().Debug(fmt.Sprintf("job(%s) does not need readout mitigation/readout:%s/found:%t",
				jd.ID, readoutValue, ok))
		}
	} else if len(inputBytes) == 0 {
		zap.L().Debug(fmt.Sprintf("job(%s) has no MitigationInfo, assuming not mitigated", jd.ID))
	} else {
		zap.L().Warn(fmt.Sprintf("MitigationInfo of a job(%s) is not valid JSON, assuming not mitigated:%s",
			jd.ID, jd.MitigationInfo))
	}
	return &m
}

// Property returns the value of one mitigation property as text. The cloud
// converter stores every value as raw JSON text, so a string value is
// unquoted here and any other value keeps its raw form.
func (m *MitigationInfo) Property(key string) (string, bool) {
	if len(m.PropertyRaw) == 0 {
		return "", false
	}
	var props map[string]string
	if err := json.Unmarshal(m.PropertyRaw, &props); err != nil {
		zap.L().Warn(fmt.Sprintf("failed to unmarshal mitigation properties. Reason:%s", err))
		return "", false
	}
	raw, ok := props[key]
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s, true
	}
	return raw, true
}

// PseudoInverseMitigation replaces the counts of a finished job with their
// readout-mitigated estimate.
func PseudoInverseMitigation(jd *core.JobData) {
	mitigated, err := PseudoInverseCounts(jd, jd.Result.Counts)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to mitigate counts of a job(%s). Reason:%s", jd.ID, err))
		jd.Status = core.FAILED
		return
	}
	zap.L().Debug(fmt.Sprintf("mitigated counts of a job(%s):%v", jd.ID, mitigated))
	jd.Result.Counts = mitigated
	jd.Status = core.SUCCEEDED
	CountMitigatedJob()
}

// PseudoInverseCounts mitigates one histogram with the confusion matrices of
// the device the job ran on. Negative quasi-probabilities produced by the
// inverse are clipped before the distribution is scaled back to counts.
func PseudoInverseCounts(jd *core.JobData, counts core.Counts) (core.Counts, error) {
	nqubits, err := numOfQubits(counts)
	if err != nil {
		return nil, err
	}
	inverses, err := inverseConfusionMatrices(jd, nqubits)
	if err != nil {
		return nil, err
	}
	return applyInverses(counts, nqubits, inverses)
}

func numOfQubits(counts core.Counts) (int, error) {
	if len(counts) == 0 {
		return 0, core.ErrEmptyCounts
	}
	width := 0
	for k := range counts {
		if width == 0 {
			width = len(k)
		} else if width != len(k) {
			return 0, fmt.Errorf("different length of keys in counts")
		}
	}
	return width, nil
}

// inverseConfusionMatrices builds one inverted 2x2 confusion matrix per
// virtual qubit. The transpiler's virtual-physical mapping selects which
// device qubit's error rates apply to each bit; without a mapping the
// identity placement is assumed.
func inverseConfusionMatrices(jd *core.JobData, nqubits int) ([]*mat.Dense, error) {
	disj := core.GetSystemComponents().GetDeviceInfo().DeviceInfoSpecJson
	var dis core.DeviceInfoSpec
	if err := json.Unmarshal([]byte(disj), &dis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the device info spec. Reason:%s", err)
	}
	measErrors := make(map[int]core.MeasError, len(dis.Qubits))
	for _, q := range dis.Qubits {
		measErrors[q.ID] = q.MeasError
	}

	vpm := core.VirtualPhysicalMappingMap{}
	if jd.Result.TranspilerInfo != nil {
		vpm = jd.Result.TranspilerInfo.VirtualPhysicalMappingMap
	}
	inverses := make([]*mat.Dense, nqubits)
	for q := 0; q < nqubits; q++ {
		physical := q
		if p, ok := vpm[uint32(q)]; ok {
			physical = int(p)
		}
		me, ok := measErrors[physical]
		if !ok {
			return nil, fmt.Errorf("no measurement error rates for physical qubit %d", physical)
		}
		// Columns are the prepared state, rows the measured state.
		confusion := mat.NewDense(2, 2, []float64{
			1 - me.ProbMeas1Prep0, me.ProbMeas0Prep1,
			me.ProbMeas1Prep0, 1 - me.ProbMeas0Prep1,
		})
		var inv mat.Dense
		if err := inv.Inverse(confusion); err != nil {
			return nil, fmt.Errorf("confusion matrix of physical qubit %d is not invertible. Reason:%s", physical, err)
		}
		inverses[q] = &inv
	}
	return inverses, nil
}

// applyInverses applies the tensor product of the per-qubit inverses to the
// measured distribution without materializing the 2^n matrix: each inverse
// acts along its own qubit axis of the probability vector.
func applyInverses(counts core.Counts, nqubits int, inverses []*mat.Dense) (core.Counts, error) {
	shots := counts.Total()
	if shots == 0 {
		return nil, core.ErrEmptyCounts
	}
	dim := 1 << nqubits
	probs := make([]float64, dim)
	for key, count := range counts {
		index, err := core.ParseBasisKey(key, nqubits)
		if err != nil {
			return nil, err
		}
		probs[index] += float64(count) / float64(shots)
	}
	for q, inv := range inverses {
		bit := 1 << q
		next := make([]float64, dim)
		for i := 0; i < dim; i++ {
			if i&bit != 0 {
				continue
			}
			p0, p1 := probs[i], probs[i|bit]
			next[i] = inv.At(0, 0)*p0 + inv.At(0, 1)*p1
			next[i|bit] = inv.At(1, 0)*p0 + inv.At(1, 1)*p1
		}
		probs = next
	}
	clipped := make([]float64, dim)
	total := 0.0
	for i, p := range probs {
		if p > 0 {
			clipped[i] = p
			total += p
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("mitigated distribution vanished")
	}
	mitigated := core.Counts{}
	for i, p := range clipped {
		c := uint32(math.Round(p / total * float64(shots)))
		if c > 0 {
			mitigated[core.CanonicalKey(i, nqubits)] = c
		}
	}
	return mitigated, nil
}
