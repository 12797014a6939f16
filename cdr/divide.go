package cdr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

// swapVirtualPhysical reorders the bits of every counts key from the
// physical qubit order the device measured into the virtual order of the
// submitted circuit. Keys are binary strings of q_{n-1}...q_0.
func swapVirtualPhysical(counts core.Counts, vpm core.VirtualPhysicalMappingMap) (core.Counts, error) {
	if len(vpm) == 0 {
		zap.L().Info("no virtual-physical mapping is given, so the counts are not swapped")
		return counts, nil
	}
	result := core.Counts{}
	nqubits := len(vpm)
	for physicalKey, count := range counts {
		length := len(physicalKey)
		if length != nqubits {
			return counts, errors.New("bit string length of the counts is not equal to the length of the virtual-physical mapping")
		}
		swapped := make([]string, length)
		for virtual, physical := range vpm {
			if int(physical) >= length || int(virtual) >= length {
				return counts, fmt.Errorf("virtual or physical qubit number is out of range. virtual:%d/physical:%d/length:%d",
					virtual, physical, length)
			}
			swapped[length-int(virtual)-1] = physicalKey[length-int(physical)-1 : length-int(physical)]
		}
		result[strings.Join(swapped, "")] += count
	}
	return result, nil
}

// divideKeyByWidths splits one combined counts key into per-circuit keys.
// ex) key: "101011011", widths: [2, 3, 4] -> ["10", "101", "1011"]
func divideKeyByWidths(key string, widths []int) ([]string, error) {
	result := []string{}
	pos := 0
	for _, width := range widths {
		if pos+width > len(key) {
			return nil, errors.New("inconsistent qubits")
		}
		result = append(result, key[pos:pos+width])
		pos += width
	}
	if pos != len(key) {
		return nil, errors.New("inconsistent qubits")
	}
	return result, nil
}

// DivideResult splits the counts of a batched run back into per-circuit
// counts. widths lists the slice widths of the combined key from the left;
// the key is q_{n-1}...q_0, so the leftmost slice belongs to the highest
// circuit index. The counts are first swapped into virtual order when the
// transpiler reports a mapping.
func DivideResult(jd *core.JobData, widths []int) error {
	if len(jd.Result.Counts) == 0 {
		return errors.New("no counts to divide")
	}
	if len(widths) == 0 {
		return errors.New("no circuit widths to divide by")
	}
	if jd.Result.TranspilerInfo != nil {
		swapped, err := swapVirtualPhysical(jd.Result.Counts, jd.Result.TranspilerInfo.VirtualPhysicalMappingMap)
		if err != nil {
			return err
		}
		jd.Result.Counts = swapped
	}
	divided := core.DividedResult{}
	for key, count := range jd.Result.Counts {
		dividedKeys, err := divideKeyByWidths(key, widths)
		if err != nil {
			return err
		}
		for i, dividedKey := range dividedKeys {
			circuitIndex := uint32(len(widths)-i) - 1
			if _, exists := divided[circuitIndex]; !exists {
				divided[circuitIndex] = core.Counts{}
			}
			divided[circuitIndex][dividedKey] += count
		}
	}
	jd.Result.DividedResult = divided
	return nil
}
