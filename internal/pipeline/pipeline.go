// Package pipeline orchestrates the consultation flow: submit audio to the
// transcription provider, poll the job to a terminal state, normalize the
// diarized transcript into dialogue text, and extract the structured clinical
// note.
//
// Each [Orchestrator.Run] invocation is an independent sequential task — the
// four stages form a strict chain with no internal parallelism, and
// concurrency exists only across consultations. The run is modelled as an
// explicit state machine with typed terminal failures so callers can
// distinguish a provider rejection (re-submit, costly) from a mere timeout
// (re-poll, cheap). No stage is retried here; retry policy belongs to the
// caller.
//
// Polling is a fixed-interval blocking wait, not backoff: transcription jobs
// have fairly uniform turnaround, so a constant cadence is both simpler and
// friendlier to the provider's rate limits. Cancellation is honored between
// polls; an individual status request, once issued, runs to completion.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/voice2vital/voice2vital/internal/note"
	"github.com/voice2vital/voice2vital/internal/observe"
	"github.com/voice2vital/voice2vital/internal/transcript"
	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
)

const (
	// defaultPollInterval is the fixed pause between job-status polls.
	defaultPollInterval = 5 * time.Second

	// defaultPollTimeout bounds total polling wall time per job.
	defaultPollTimeout = 300 * time.Second
)

// State is a position in the consultation run lifecycle.
type State string

const (
	// StateSubmitted means the audio was accepted and a job ID exists.
	StateSubmitted State = "submitted"

	// StatePolling means the run is waiting for the job to reach a terminal
	// status.
	StatePolling State = "polling"

	// StateTranscribed means the raw transcript has been fetched.
	StateTranscribed State = "transcribed"

	// StateNormalized means the transcript has been flattened into dialogue
	// text.
	StateNormalized State = "normalized"

	// StateExtracted is the successful terminal state: the clinical note is
	// ready.
	StateExtracted State = "extracted"

	// StateSubmitFailed is terminal: the provider rejected the audio.
	StateSubmitFailed State = "submit_failed"

	// StateProviderFailed is terminal: transcription processing failed, or
	// the transcript was malformed or unextractable upstream of our control.
	StateProviderFailed State = "provider_failed"

	// StateTimedOut is terminal: no terminal job status within the timeout.
	StateTimedOut State = "timed_out"

	// StateExtractionFailed is terminal: the note could not be extracted from
	// a good transcript.
	StateExtractionFailed State = "extraction_failed"
)

// NoteExtractor turns dialogue text into a structured clinical note. It is
// satisfied by [github.com/voice2vital/voice2vital/internal/extract.Extractor]
// and by resilience wrappers around it.
type NoteExtractor interface {
	Extract(ctx context.Context, dialogue string) (*note.ClinicalNote, error)
}

// Result is the outcome of a successful run. The intermediate artifacts are
// kept because callers archive them alongside the note.
type Result struct {
	// JobID is the provider-assigned transcription job identifier.
	JobID string

	// Dialogue is the normalized "Person N: ..." text the note was extracted
	// from.
	Dialogue string

	// Note is the extracted, normalized clinical note.
	Note *note.ClinicalNote
}

// Option is a functional option for configuring an [Orchestrator].
type Option func(*Orchestrator)

// WithPollInterval overrides the fixed pause between job-status polls.
// Intended for tests; production keeps the 5 s default.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pollInterval = d
	}
}

// WithPollTimeout overrides the total polling wall-time bound per job.
func WithPollTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pollTimeout = d
	}
}

// WithMetrics sets the metrics instance. Defaults to
// [observe.DefaultMetrics] at first use.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// Orchestrator drives consultations through the transcription and extraction
// stages. It is safe for concurrent use; each Run is independent.
type Orchestrator struct {
	stt       transcription.Provider
	extractor NoteExtractor

	pollInterval time.Duration
	pollTimeout  time.Duration
	metrics      *observe.Metrics
}

// New returns a new [Orchestrator] using the given transcription provider and
// note extractor.
func New(stt transcription.Provider, extractor NoteExtractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stt:          stt,
		extractor:    extractor,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) meter() *observe.Metrics {
	if o.metrics != nil {
		return o.metrics
	}
	return observe.DefaultMetrics()
}

// Submit uploads the audio and starts a transcription job. Provider
// rejections surface as [*SubmitError] with the provider's message intact.
func (o *Orchestrator) Submit(ctx context.Context, media io.Reader, filename string) (transcription.Job, error) {
	job, err := o.stt.SubmitFile(ctx, media, filename)
	if err != nil {
		o.meter().RecordProviderError(ctx, "transcription", "submit")
		return transcription.Job{}, &SubmitError{Filename: filename, Err: err}
	}
	o.meter().RecordProviderRequest(ctx, "transcription", "submit", "ok")
	observe.Logger(ctx).Info("transcription job submitted",
		"job_id", job.ID, "filename", filename, "status", string(job.Status))
	return job, nil
}

// Poll queries the job status at a fixed interval until it reaches a terminal
// state, then fetches and returns the raw transcript.
//
// A failed job surfaces as [*TranscriptionFailedError] carrying the
// provider's detail verbatim. When the configured timeout elapses without a
// terminal status, Poll returns [*PollingTimeoutError]; the timeout bounds
// total wall time, not individual requests. Cancellation is checked before
// each wait, so an aborted ctx ends the loop within one interval.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (json.RawMessage, error) {
	start := time.Now()
	for {
		job, err := o.stt.JobDetails(ctx, jobID)
		if err != nil {
			o.meter().RecordProviderError(ctx, "transcription", "status")
			return nil, fmt.Errorf("pipeline: poll job %s: %w", jobID, err)
		}
		o.meter().RecordPoll(ctx, string(job.Status))

		switch job.Status {
		case transcription.StatusTranscribed:
			o.meter().TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
			raw, err := o.stt.Transcript(ctx, jobID)
			if err != nil {
				o.meter().RecordProviderError(ctx, "transcription", "transcript")
				return nil, fmt.Errorf("pipeline: fetch transcript for job %s: %w", jobID, err)
			}
			return raw, nil
		case transcription.StatusFailed:
			o.meter().TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
			return nil, &TranscriptionFailedError{JobID: jobID, Detail: job.FailureDetail}
		}

		remaining := o.pollTimeout - time.Since(start)
		if remaining <= 0 {
			return nil, &PollingTimeoutError{JobID: jobID, Timeout: o.pollTimeout}
		}
		wait := o.pollInterval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pipeline: poll job %s: %w", jobID, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// Run drives one consultation end to end: submit, poll, normalize, extract.
// Any stage's failure aborts the remaining stages and propagates its typed
// error; no stage mutates shared state, so there is nothing to roll back.
func (o *Orchestrator) Run(ctx context.Context, media io.Reader, filename string) (*Result, error) {
	m := o.meter()
	m.ActiveRuns.Add(ctx, 1)
	defer m.ActiveRuns.Add(ctx, -1)

	start := time.Now()
	log := observe.Logger(ctx)

	job, err := o.Submit(ctx, media, filename)
	if err != nil {
		return nil, o.fail(ctx, StateSubmitFailed, err)
	}
	state := StateSubmitted
	log.Debug("consultation state", "state", string(state), "job_id", job.ID)

	state = StatePolling
	log.Debug("consultation state", "state", string(state), "job_id", job.ID)
	raw, err := o.Poll(ctx, job.ID)
	if err != nil {
		return nil, o.fail(ctx, pollFailureState(err), err)
	}

	state = StateTranscribed
	log.Debug("consultation state", "state", string(state), "job_id", job.ID)
	dialogue, err := transcript.Dialogue(raw)
	if err != nil {
		return nil, o.fail(ctx, StateProviderFailed, err)
	}

	state = StateNormalized
	log.Debug("consultation state", "state", string(state), "job_id", job.ID)
	extractStart := time.Now()
	n, err := o.extractor.Extract(ctx, dialogue)
	if err != nil {
		m.RecordProviderError(ctx, "llm", "extraction")
		return nil, o.fail(ctx, StateExtractionFailed, err)
	}
	m.ExtractionDuration.Record(ctx, time.Since(extractStart).Seconds())

	state = StateExtracted
	m.RecordNoteExtracted(ctx, "ok")
	m.ConsultationDuration.Record(ctx, time.Since(start).Seconds())
	log.Info("consultation completed",
		"state", string(state), "job_id", job.ID, "duration", time.Since(start))

	return &Result{JobID: job.ID, Dialogue: dialogue, Note: n}, nil
}

// fail records the terminal failure state and returns err unchanged.
func (o *Orchestrator) fail(ctx context.Context, state State, err error) error {
	o.meter().RecordNoteExtracted(ctx, string(state))
	observe.Logger(ctx).Error("consultation failed",
		"state", string(state), "error", err)
	return err
}

// pollFailureState maps a Poll error to its terminal state.
func pollFailureState(err error) State {
	var timeout *PollingTimeoutError
	if errors.As(err, &timeout) {
		return StateTimedOut
	}
	return StateProviderFailed
}
