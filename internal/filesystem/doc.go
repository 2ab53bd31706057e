/*
Package filesystem provides resilient filesystem operations with automatic retry
logic for NFS stale file handle errors.

# Purpose

Conversion output usually lands on a network share. Container writers refuse to
overwrite an existing file, so the converter removes any previous output at the
destination before opening its writer. This package wraps os.Stat and os.Remove
with retry logic for transient ESTALE (stale file handle) errors that occur when
NFS-mounted files are accessed during network issues or server-side changes.

# Usage

	removed, err := filesystem.RemoveIfExists(dest, filesystem.DefaultRetryConfig())
	if err != nil {
	    return fmt.Errorf("clear destination: %w", err)
	}

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only NFS stale file handle errors (ESTALE) trigger retries. All other errors
fail immediately without retry attempts.
*/
package filesystem
