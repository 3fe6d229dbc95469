package driven

// MemorySampler reports process memory and forces reclamation.
type MemorySampler interface {
	// Sample returns the current process memory usage in bytes.
	Sample() uint64

	// Reclaim runs a garbage collection pass and returns freed memory to the OS.
	Reclaim()
}
