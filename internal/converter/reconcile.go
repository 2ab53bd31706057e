package converter

import (
	"context"
	"fmt"

	"media-converter/internal/filesystem"
	"media-converter/internal/mediatypes"
)

// reconcile decides the outcome once every transfer has stopped. The order
// is cancellation, recorded transfer error, reader status, writer status.
// An unexpected terminal status is a programming error and panics.
func (c *Converter) reconcile(ctx context.Context, reader mediatypes.Reader, writer mediatypes.Writer, transfers []*transfer) Result {
	if c.isCancelled() {
		reader.CancelReading()
		writer.CancelWriting()
		return cancellation(c.id, "transfer")
	}

	if err := c.transferError(); err != nil {
		reader.CancelReading()
		writer.CancelWriting()
		return failure(ErrSampleProcessingFailed, c.id, "process sample", err)
	}

	rejected := false
	for _, t := range transfers {
		rejected = rejected || t.rejected
	}

	switch status := reader.Status(); status {
	case mediatypes.StatusCompleted:
	case mediatypes.StatusCancelled:
		writer.CancelWriting()
		return cancellation(c.id, "read")
	case mediatypes.StatusFailed:
		writer.CancelWriting()
		return failure(ErrReaderFailed, c.id, "read", reader.Err())
	case mediatypes.StatusReading:
		// A rejected append stops its track early. The writer status
		// carries the cause.
		if !rejected {
			panic(fmt.Sprintf("converter: reader still reading after all transfers stopped (job %s)", c.id))
		}
		reader.CancelReading()
	default:
		panic(fmt.Sprintf("converter: unexpected reader status %s (job %s)", status, c.id))
	}

	writer.FinishWriting(ctx)

	switch status := writer.Status(); status {
	case mediatypes.StatusCompleted:
		if rejected {
			if _, err := filesystem.RemoveIfExists(c.outputPath, c.retry); err != nil {
				c.log.Warn("Failed to remove incomplete output %s: %v", c.outputPath, err)
			}
			return failure(ErrAppendRejected, c.id, "write", nil)
		}
		return success(c.capability.OpenAsset(c.outputPath))
	case mediatypes.StatusCancelled:
		return cancellation(c.id, "write")
	case mediatypes.StatusFailed:
		err := writer.Err()
		if err == nil && rejected {
			return failure(ErrAppendRejected, c.id, "write", nil)
		}
		return failure(ErrWriterFailed, c.id, "write", err)
	default:
		panic(fmt.Sprintf("converter: unexpected writer status %s (job %s)", status, c.id))
	}
}
