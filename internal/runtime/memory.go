package runtime

import (
	goruntime "runtime"
	"runtime/debug"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.MemorySampler = (*GoMemorySampler)(nil)

// GoMemorySampler reports memory obtained from the OS by the Go runtime.
// Sys is used rather than HeapAlloc so that stacks and runtime metadata
// count against the ceiling too.
type GoMemorySampler struct{}

// NewGoMemorySampler creates a sampler for the current process.
func NewGoMemorySampler() *GoMemorySampler {
	return &GoMemorySampler{}
}

// Sample returns the bytes currently held from the OS minus those released back.
func (s *GoMemorySampler) Sample() uint64 {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)
	return m.Sys - m.HeapReleased
}

// Reclaim forces a collection and returns freed pages to the OS.
func (s *GoMemorySampler) Reclaim() {
	debug.FreeOSMemory()
}
