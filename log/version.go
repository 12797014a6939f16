package log

import (
	"fmt"

	"github.com/qem-team/qem-engine/coreapp/core"
	"go.uber.org/zap"
)

const VersionLogTaskName = "version_log"

// VersionLogTaskImpl emits the running version on every tick, so rotated
// logs always carry it.
type VersionLogTaskImpl struct {
	core.DefaultTaskImpl
}

func (v *VersionLogTaskImpl) Task() {
	zap.L().Debug(fmt.Sprintf("engine version %s", core.Version))
}
