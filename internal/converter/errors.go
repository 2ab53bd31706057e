package converter

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure Result carries an *Error whose Kind is one of
// these.
var (
	ErrMetadataLoadFailed     = errors.New("metadata load failed")
	ErrNoMediaData            = errors.New("no media data")
	ErrReaderStartFailed      = errors.New("reader start failed")
	ErrWriterStartFailed      = errors.New("writer start failed")
	ErrSampleProcessingFailed = errors.New("sample processing failed")
	ErrAppendRejected         = errors.New("append rejected")
	ErrReaderFailed           = errors.New("reader failed")
	ErrWriterFailed           = errors.New("writer failed")
	ErrCancelled              = errors.New("cancelled")
)

// ErrAlreadyStarted is returned by Start when the job was started before.
var ErrAlreadyStarted = errors.New("conversion already started")

// Error describes why a conversion did not succeed.
type Error struct {
	Kind  error  // One of the Err* kinds above
	Op    string // Step that failed (e.g. "load tracks", "inspect format")
	JobID string
	Err   error // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.JobID != "" {
		msg += " for job " + e.JobID
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind of err, or nil if err is not a conversion error.
func KindOf(err error) error {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return nil
}

var kindLabels = map[error]string{
	ErrMetadataLoadFailed:     "metadata_load_failed",
	ErrNoMediaData:            "no_media_data",
	ErrReaderStartFailed:      "reader_start_failed",
	ErrWriterStartFailed:      "writer_start_failed",
	ErrSampleProcessingFailed: "sample_processing_failed",
	ErrAppendRejected:         "append_rejected",
	ErrReaderFailed:           "reader_failed",
	ErrWriterFailed:           "writer_failed",
}

// kindLabel returns the metrics label for the kind of err.
func kindLabel(err error) string {
	if label, ok := kindLabels[KindOf(err)]; ok {
		return label
	}
	return "other"
}
