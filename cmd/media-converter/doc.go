// Package main provides the media-converter command.
//
// media-converter rewrites timed media containers into a new container,
// re-encoding video tracks it knows how to decode and passing every other
// track through untouched. It runs either as a long-lived HTTP service or as
// a one-shot command line tool.
//
// # Commands
//
//	media-converter serve
//	media-converter convert [flags] <source>
//	media-converter inspect <source>
//
// serve reads its configuration from the environment (see
// [media-converter/internal/startup]) and exposes the catalog and conversion
// API. convert runs a single conversion in the foreground and exits 0 on
// success, 1 on failure and 130 when interrupted. inspect prints the track
// table of a container.
//
// # Application Lifecycle
//
// serve initializes in this order:
//
//  1. Memory Configuration: Sets GOMEMLIMIT from GOMEMLIMIT or MEMORY_LIMIT
//  2. Configuration Loading: Reads environment variables and prepares directories
//  3. Catalog: Opens the SQLite asset catalog
//  4. Component Initialization:
//     - Memory Monitor: Holds new conversions while the heap is over its high-water mark
//     - Job Manager: Runs conversions with a bounded worker count
//     - Metrics Collector: Refreshes Prometheus gauges
//     - Indexer: Registers containers found under MEDIA_DIR
//  5. HTTP Server Setup: Routes, middleware and the optional metrics server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests
//  2. Stop the indexer
//  3. Cancel running conversions and wait for their completion handlers
//  4. Stop the metrics collector and memory monitor
//  5. Shutdown the metrics server (if running)
//  6. Close the catalog
//
// All shutdown steps share a 30 second deadline.
//
// # Related Packages
//
//   - [media-converter/internal/converter]: Conversion sessions
//   - [media-converter/internal/container]: Container reading and writing
//   - [media-converter/internal/jobs]: Conversion scheduling
//   - [media-converter/internal/catalog]: SQLite asset catalog
//   - [media-converter/internal/handlers]: HTTP request handlers
//   - [media-converter/internal/startup]: Configuration and initialization
package main
