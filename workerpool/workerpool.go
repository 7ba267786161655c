// Package workerpool holds the process-wide worker budget described by
// the CLI's -t/--threads flag. Every parallel path in gffindex, coverage,
// and gffwriter reads the same budget instead of hardcoding its own
// goroutine count.
package workerpool

import (
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	mu          sync.Mutex
	initialized bool
	workers     int
)

// Init sets the process-wide worker budget. n<=0 means "use all available
// cores" (runtime.NumCPU()). Only the first call takes effect; a later
// call with a different budget is logged as a warning and otherwise
// ignored, matching the "initialized once; subsequent initializations are
// a warning, not an error" scheduling model.
func Init(n int) {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		if n > 0 && n != workers {
			log.Warnf("workerpool.Init: already initialized to %d workers, ignoring request for %d", workers, n)
		}
		return
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}
	workers = n
	initialized = true
}

// Workers returns the process-wide worker budget. If Init has not been
// called yet, it returns runtime.NumCPU() without latching that value, so
// a later Init call still takes effect.
func Workers() int {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		return runtime.NumCPU()
	}
	return workers
}
