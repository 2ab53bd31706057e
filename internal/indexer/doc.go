// Package indexer keeps the asset catalog in step with the media directory.
//
// A scan walks the media directory, registers container files that are new or
// have changed since they were registered, and prunes catalog entries whose
// files have disappeared. Registration loads each file's tracks, so it is
// spread over a small pool of workers. Scans run once at Start, then on a
// fixed interval, and on demand through [Indexer.TriggerScan].
package indexer
