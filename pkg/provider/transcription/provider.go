// Package transcription defines the Provider interface for asynchronous
// speech-to-text backends.
//
// Unlike a streaming recogniser, an async transcription provider works on
// whole recordings through a job lifecycle: the caller submits an audio file
// and receives a job handle, polls the job until it reaches a terminal state,
// and then fetches the finished transcript as a JSON document. The provider
// performs speaker diarization server-side; speakers appear in the transcript
// as zero-based ordinals only.
//
// Implementations must be safe for concurrent use — many consultations may be
// in flight at once, each polling its own job.
package transcription

import (
	"context"
	"encoding/json"
	"io"
)

// Status is the lifecycle state of a transcription job as reported by the
// provider.
type Status string

const (
	// StatusQueued means the job is accepted but processing has not started.
	StatusQueued Status = "queued"

	// StatusInProgress means the provider is actively transcribing.
	StatusInProgress Status = "in_progress"

	// StatusTranscribed is the successful terminal state; the transcript can
	// be fetched.
	StatusTranscribed Status = "transcribed"

	// StatusFailed is the failing terminal state; Job.FailureDetail carries
	// the provider's reason.
	StatusFailed Status = "failed"
)

// Terminal reports whether s is a state the job will not transition out of.
func (s Status) Terminal() bool {
	return s == StatusTranscribed || s == StatusFailed
}

// Job describes a transcription job as known to the provider.
type Job struct {
	// ID is the provider-assigned job identifier.
	ID string

	// Status is the job's current lifecycle state.
	Status Status

	// FailureDetail is the provider's failure reason, set only when Status is
	// StatusFailed. It is passed through verbatim — the provider's wording is
	// what callers log and surface.
	FailureDetail string
}

// Provider is the abstraction over any async speech-to-text backend.
type Provider interface {
	// SubmitFile uploads the audio read from media under the given filename
	// and starts a transcription job. The audio format is not validated here;
	// an unsupported codec surfaces later as a failed job or an immediate
	// provider rejection.
	SubmitFile(ctx context.Context, media io.Reader, filename string) (Job, error)

	// JobDetails fetches the current state of a previously submitted job.
	JobDetails(ctx context.Context, jobID string) (Job, error)

	// Transcript fetches the finished diarized transcript for a job in the
	// StatusTranscribed state. The document shape is
	//
	//	{"monologues": [{"speaker": 0, "elements": [{"type": "text", "value": "Hello"}, ...]}, ...]}
	//
	// It is returned as raw JSON; parsing and shape validation belong to the
	// transcript normalizer, which must not trust the provider's output.
	Transcript(ctx context.Context, jobID string) (json.RawMessage, error)
}
