// Package jobs keeps the in-process registry of conversion jobs.
//
// Submit creates a converter for a catalog asset and queues it behind a
// concurrency limiter; the job runs once a slot is free. Jobs can be listed,
// inspected and cancelled while queued or running. Nothing is persisted: the
// registry lives as long as the process.
package jobs
