package resilience

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
)

// TranscriptionFallback implements [transcription.Provider] with failover at
// the submission boundary. A transcription job lives at whichever backend
// accepted it, so only SubmitFile participates in failover; JobDetails and
// Transcript are routed to the backend that owns the job.
//
// SubmitFile buffers the audio in memory so it can be replayed against a
// fallback backend after a failed upload. Callers already bound upload sizes
// before reaching the pipeline.
type TranscriptionFallback struct {
	group *FallbackGroup[transcription.Provider]

	mu     sync.Mutex
	owners map[string]transcription.Provider
}

// Compile-time interface assertion.
var _ transcription.Provider = (*TranscriptionFallback)(nil)

// NewTranscriptionFallback creates a [TranscriptionFallback] with primary as
// the preferred backend.
func NewTranscriptionFallback(primary transcription.Provider, primaryName string, cfg FallbackConfig) *TranscriptionFallback {
	return &TranscriptionFallback{
		group:  NewFallbackGroup(primary, primaryName, cfg),
		owners: make(map[string]transcription.Provider),
	}
}

// AddFallback registers an additional transcription provider as a fallback.
func (f *TranscriptionFallback) AddFallback(name string, provider transcription.Provider) {
	f.group.AddFallback(name, provider)
}

// SubmitFile submits the audio to the first healthy backend and remembers
// which backend accepted the job so later calls can be routed to it.
func (f *TranscriptionFallback) SubmitFile(ctx context.Context, media io.Reader, filename string) (transcription.Job, error) {
	audio, err := io.ReadAll(media)
	if err != nil {
		return transcription.Job{}, err
	}

	var owner transcription.Provider
	job, err := ExecuteWithResult(f.group, func(p transcription.Provider) (transcription.Job, error) {
		job, err := p.SubmitFile(ctx, bytes.NewReader(audio), filename)
		if err == nil {
			owner = p
		}
		return job, err
	})
	if err != nil {
		return transcription.Job{}, err
	}

	f.mu.Lock()
	f.owners[job.ID] = owner
	f.mu.Unlock()
	return job, nil
}

// JobDetails routes to the backend that accepted the job. Unknown job IDs
// (e.g. after a restart) go to the primary.
func (f *TranscriptionFallback) JobDetails(ctx context.Context, jobID string) (transcription.Job, error) {
	return f.owner(jobID).JobDetails(ctx, jobID)
}

// Transcript routes to the backend that accepted the job.
func (f *TranscriptionFallback) Transcript(ctx context.Context, jobID string) (json.RawMessage, error) {
	return f.owner(jobID).Transcript(ctx, jobID)
}

func (f *TranscriptionFallback) owner(jobID string) transcription.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.owners[jobID]; ok {
		return p
	}
	return f.group.entries[0].value
}
