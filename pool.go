package docpack

import "runtime"

// Worker count bounds.
const (
	// MinWorkers ensures at least one worker is available.
	MinWorkers = 1

	// MaxWorkers caps parallel documents; each may hold several remote
	// fetches and an external converter process.
	MaxWorkers = 8

	// cpuDivisor leaves headroom for converter child processes.
	cpuDivisor = 2
)

// ResolveWorkers determines how many documents to process in parallel.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by the CLI and other batch callers.
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}
