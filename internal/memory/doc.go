// Package memory controls Go's runtime memory usage in containers and holds
// back new conversions under memory pressure.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO when
// GOMEMLIMIT itself is not set:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// A [Monitor] samples heap allocation against the limit. Once usage reaches
// the critical water mark, [Monitor.Wait] blocks until it falls below the
// high water mark again. The job manager calls Wait before starting each
// conversion, so running conversions finish while new ones queue.
package memory
