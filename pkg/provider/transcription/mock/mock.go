// Package mock provides a test double for the transcription.Provider
// interface.
//
// Use Provider to script job lifecycles without a live speech-to-text
// backend: set SubmitJob for the submission result, queue StatusSequence for
// successive JobDetails calls, and set TranscriptJSON for the final fetch.
package mock

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
)

// SubmitCall records a single invocation of SubmitFile.
type SubmitCall struct {
	// Filename is the name passed to SubmitFile.
	Filename string
	// Media is the full content read from the media reader.
	Media []byte
}

// Provider is a mock implementation of transcription.Provider.
// Zero values cause methods to return zero values and nil errors; set Err
// fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SubmitJob is returned by SubmitFile.
	SubmitJob transcription.Job

	// SubmitErr, if non-nil, is returned as the error from SubmitFile.
	SubmitErr error

	// StatusSequence is consumed one element per JobDetails call. When the
	// sequence is exhausted the last element is repeated, so a sequence
	// ending in a non-terminal status simulates a job that never finishes.
	StatusSequence []transcription.Job

	// DetailsErr, if non-nil, is returned as the error from JobDetails.
	DetailsErr error

	// TranscriptJSON is returned by Transcript.
	TranscriptJSON json.RawMessage

	// TranscriptErr, if non-nil, is returned as the error from Transcript.
	TranscriptErr error

	// --- Call records (read after test) ---

	// SubmitCalls records every invocation of SubmitFile in order.
	SubmitCalls []SubmitCall

	// DetailsCalls records the job ID of every JobDetails invocation.
	DetailsCalls []string

	// TranscriptCalls records the job ID of every Transcript invocation.
	TranscriptCalls []string
}

// Compile-time interface assertion.
var _ transcription.Provider = (*Provider)(nil)

// SubmitFile implements transcription.Provider.
func (p *Provider) SubmitFile(_ context.Context, media io.Reader, filename string) (transcription.Job, error) {
	content, _ := io.ReadAll(media)

	p.mu.Lock()
	p.SubmitCalls = append(p.SubmitCalls, SubmitCall{Filename: filename, Media: content})
	p.mu.Unlock()

	if p.SubmitErr != nil {
		return transcription.Job{}, p.SubmitErr
	}
	return p.SubmitJob, nil
}

// JobDetails implements transcription.Provider.
func (p *Provider) JobDetails(_ context.Context, jobID string) (transcription.Job, error) {
	p.mu.Lock()
	p.DetailsCalls = append(p.DetailsCalls, jobID)
	n := len(p.DetailsCalls)
	p.mu.Unlock()

	if p.DetailsErr != nil {
		return transcription.Job{}, p.DetailsErr
	}
	if len(p.StatusSequence) == 0 {
		return transcription.Job{ID: jobID, Status: transcription.StatusInProgress}, nil
	}
	idx := n - 1
	if idx >= len(p.StatusSequence) {
		idx = len(p.StatusSequence) - 1
	}
	return p.StatusSequence[idx], nil
}

// Transcript implements transcription.Provider.
func (p *Provider) Transcript(_ context.Context, jobID string) (json.RawMessage, error) {
	p.mu.Lock()
	p.TranscriptCalls = append(p.TranscriptCalls, jobID)
	p.mu.Unlock()

	if p.TranscriptErr != nil {
		return nil, p.TranscriptErr
	}
	return p.TranscriptJSON, nil
}
