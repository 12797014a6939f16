package qpu

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/qem-team/qem-engine/coreapp/circuit"
	"github.com/qem-team/qem-engine/coreapp/common"
	"go.uber.org/zap"
)

// DeviceSetting describes the device a QPU manager talks to, loaded from the
// TOML file named by Conf.DeviceSettingPath.
type DeviceSetting struct {
	DeviceName    string       `toml:"device_name"`
	DeviceType    string       `toml:"device_type"`
	ProviderName  string       `toml:"provider_name"`
	MaxShots      int          `toml:"max_shots"`
	QASMSupport   *QASMSupport `toml:"qasm_support"`
	PollingPeriod uint32       `toml:"polling_period"`
}

// QASMSupport restricts what programs the device accepts. The allow list
// rejects anything it does not name, the deny list rejects what it names,
// and a disabled list filters nothing.
type QASMSupport struct {
	AllowList *QASMFilter `toml:"allow_list"`
	DenyList  *QASMFilter `toml:"deny_list"`
}

type QASMFilter struct {
	Enabled    bool
	Statements []*circuit.QASMStatementType `toml:"statements"`
	Gates      []*circuit.QASMGateType      `toml:"gates"`
}

func NewDeviceSetting() *DeviceSetting {
	return &DeviceSetting{
		QASMSupport:   NewQasmSupport(),
		PollingPeriod: 60,
	}
}

func NewQasmSupport() *QASMSupport {
	return &QASMSupport{
		AllowList: &QASMFilter{},
		DenyList:  &QASMFilter{},
	}
}

// LoadDeviceSetting reads the device setting file. A missing file is not an
// error; the defaults let the engine come up before the device profile is
// installed.
func LoadDeviceSetting(path string) (*DeviceSetting, error) {
	ds := NewDeviceSetting()
	blob, readErr := common.ReadFile(path)
	if readErr != nil {
		zap.L().Info(fmt.Sprintf("Failed to read file:%s Reason:%s", path, readErr))
		return ds, nil
	}
	if _, err := toml.Decode(blob, ds); err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode blob:%s", blob))
		return &DeviceSetting{}, err
	}
	return ds, nil
}
