package mitig

import "sync/atomic"

var mitigatedJobs atomic.Uint64

// CountMitigatedJob records one job that finished with a mitigated result.
// The metrics log task reports the running total.
func CountMitigatedJob() {
	mitigatedJobs.Add(1)
}

func MitigatedJobCount() uint64 {
	return mitigatedJobs.Load()
}
