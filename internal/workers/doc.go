/*
Package workers sizes and bounds concurrent conversion work in containerized
environments.

# Sizing

Go sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU still
reports the host's CPUs. Count and its helpers size pools from GOMAXPROCS:

	// One conversion per available CPU, at most 4
	n := workers.ForCPU(4)

	// Two per CPU for I/O-bound work, no maximum
	n := workers.Count(2.0, 0)

Operators can override the computed value with CONVERSION_WORKERS:

	env:
	- name: CONVERSION_WORKERS
	  value: "2"

# Limiting

A Limiter is a counting semaphore. The job manager acquires a slot before a
conversion starts and releases it when the conversion finishes:

	limiter := workers.NewLimiter(workers.ForCPU(4))
	if err := limiter.Acquire(ctx); err != nil {
		return err
	}
	defer limiter.Release()

All functions and Limiter methods are safe for concurrent use.
*/
package workers
