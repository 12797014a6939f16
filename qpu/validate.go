package qpu

import (
	"errors"
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/circuit"
	"github.com/qem-team/qem-engine/coreapp/common"
	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

// circuitValidate rejects programs the device cannot run: unparsable text,
// statements or gates outside the device filter lists, an unavailable
// device, and circuits wider than the device register.
func circuitValidate(qasm string, ds *DeviceSetting) error {
	if qasm == "" {
		msg := "no input qasm"
		zap.L().Info(msg)
		return errors.New(msg)
	}
	ir, err := circuit.ParseProgram(qasm)
	if err != nil {
		zap.L().Info(err.Error())
		return err
	}
	if err := validateStatements(ir, ds.QASMSupport); err != nil {
		zap.L().Info(err.Error())
		return err
	}
	di := core.GetSystemComponents().GetDeviceInfo()
	if di.Status != core.Available {
		msg := fmt.Sprintf("device is not available. status:%s", di.Status)
		zap.L().Info(msg)
		return errors.New(msg)
	}
	if err := checkResource(ir, di.MaxQubits); err != nil {
		zap.L().Info(err.Error())
		return err
	}
	return nil
}

func validateStatements(ir *circuit.ProgramIR, qasmSupport *QASMSupport) error {
	if qasmSupport.AllowList.Enabled {
		if err := filterStatements(ir, qasmSupport.AllowList, false); err != nil {
			zap.L().Info(fmt.Sprintf("[AllowList Error] %s", err.Error()))
			return err
		}
	}
	if qasmSupport.DenyList.Enabled {
		if err := filterStatements(ir, qasmSupport.DenyList, true); err != nil {
			zap.L().Info(fmt.Sprintf("[DenyList Error] %s", err.Error()))
			return err
		}
	}
	return nil
}

// filterStatements applies one filter list. A deny list rejects a listed
// statement or gate; an allow list rejects an unlisted one. Empty lists
// filter nothing.
func filterStatements(ir *circuit.ProgramIR, filter *QASMFilter, deny bool) error {
	statementList := []string{}
	for _, qt := range filter.Statements {
		statementList = append(statementList, qt.Name)
	}
	gateList := []string{}
	for _, gt := range filter.Gates {
		gateList = append(gateList, gt.Name)
	}
	for _, statement := range ir.Statements {
		n := statement.String()
		if len(statementList) > 0 &&
			common.ContainsStatementName(n, statementList) == deny {
			return fmt.Errorf("statement:%s is not supported", n)
		}
		g, ok := statement.(*circuit.GateCallStatementIR)
		if !ok || len(gateList) == 0 {
			continue
		}
		if common.ContainsStatementName(g.GateName, gateList) == deny {
			return fmt.Errorf("gate:%s is not supported", g.GateName)
		}
	}
	return nil
}

func checkResource(ir *circuit.ProgramIR, qubitNumber int) error {
	if ir.QubitCount > qubitNumber {
		return fmt.Errorf("Too many quibits in your circuit. We only have %d qubits.", qubitNumber)
	}
	return nil
}
