package pipeline

import (
	"fmt"
	"time"
)

// SubmitError reports that the transcription provider rejected the audio at
// submission — unsupported codec, oversized file, or an I/O failure while
// uploading. The provider's own message is preserved in the chain.
type SubmitError struct {
	// Filename is the name the audio was submitted under.
	Filename string

	// Err is the underlying provider or I/O error.
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("pipeline: submit %q: %v", e.Filename, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// TranscriptionFailedError reports that the provider processed the job and
// ended in the failed state. Detail carries the provider's failure reason
// verbatim.
type TranscriptionFailedError struct {
	// JobID identifies the failed job at the provider.
	JobID string

	// Detail is the provider's failure reason, unmodified.
	Detail string
}

func (e *TranscriptionFailedError) Error() string {
	return fmt.Sprintf("pipeline: transcription job %s failed: %s", e.JobID, e.Detail)
}

// PollingTimeoutError reports that the job reached no terminal state within
// the polling timeout. The job may still complete on the provider side; the
// caller decides whether to resume polling or abandon it.
type PollingTimeoutError struct {
	// JobID identifies the job that was being polled.
	JobID string

	// Timeout is the wall-time bound that was exceeded.
	Timeout time.Duration
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("pipeline: transcription job %s did not finish within %s", e.JobID, e.Timeout)
}
