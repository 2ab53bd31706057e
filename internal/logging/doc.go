// Package logging provides a simple leveled logging interface for the
// media converter.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-sample and per-phase detail)
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// DEBUG=true. Conversion jobs log through a prefixed Logger obtained from
// WithPrefix so that interleaved output from concurrent jobs stays readable.
package logging
