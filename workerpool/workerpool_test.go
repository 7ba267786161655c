package workerpool

import (
	"runtime"
	"testing"
)

// resetForTest clears package state between tests. Tests in this
// file run sequentially (no t.Parallel) since Init is process-global.
func resetForTest() {
	mu.Lock()
	initialized = false
	workers = 0
	mu.Unlock()
}

func TestWorkersDefaultsToNumCPUBeforeInit(t *testing.T) {
	resetForTest()
	if got := Workers(); got != runtime.NumCPU() {
		t.Fatalf("want %d (runtime.NumCPU), got %d", runtime.NumCPU(), got)
	}
}

func TestInitZeroMeansAllCores(t *testing.T) {
	resetForTest()
	Init(0)
	if got := Workers(); got != runtime.NumCPU() {
		t.Fatalf("want %d (runtime.NumCPU), got %d", runtime.NumCPU(), got)
	}
}

func TestInitLatchesFirstValue(t *testing.T) {
	resetForTest()
	Init(4)
	Init(16)
	if got := Workers(); got != 4 {
		t.Fatalf("want the first Init(4) to stick, got %d", got)
	}
}
