package models

import "time"

// StressRun is the outcome of one stress harness invocation. It lives only
// for the duration of the run and is never persisted.
type StressRun struct {
	Attempted int
	Succeeded int
	Failed    int
	Batches   int
	Elapsed   time.Duration
}

// Throughput returns successful inserts per second of wall-clock time.
func (r StressRun) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Succeeded) / r.Elapsed.Seconds()
}
