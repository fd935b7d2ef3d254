package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/voice2vital/voice2vital/internal/note"
	"github.com/voice2vital/voice2vital/internal/observe"
	"github.com/voice2vital/voice2vital/internal/pipeline"
	"github.com/voice2vital/voice2vital/internal/transcript"
	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
	"github.com/voice2vital/voice2vital/pkg/provider/transcription/mock"
)

// fakeExtractor is a scripted pipeline.NoteExtractor.
type fakeExtractor struct {
	note *note.ClinicalNote
	err  error

	dialogues []string
}

func (f *fakeExtractor) Extract(_ context.Context, dialogue string) (*note.ClinicalNote, error) {
	f.dialogues = append(f.dialogues, dialogue)
	if f.err != nil {
		return nil, f.err
	}
	return f.note, nil
}

// newMetrics returns an isolated Metrics instance so tests never touch the
// global meter provider.
func newMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

const twoSpeakerTranscript = `{"monologues": [
	{"speaker": 0, "elements": [{"type": "text", "value": "Hello"}]},
	{"speaker": 1, "elements": [{"type": "text", "value": "Hi"}, {"type": "text", "value": " there"}]}
]}`

func job(id string, status transcription.Status) transcription.Job {
	return transcription.Job{ID: id, Status: status}
}

func TestPoll_FetchesTranscriptOnSuccess(t *testing.T) {
	t.Parallel()

	stt := &mock.Provider{
		StatusSequence: []transcription.Job{
			job("j1", transcription.StatusQueued),
			job("j1", transcription.StatusInProgress),
			job("j1", transcription.StatusTranscribed),
		},
		TranscriptJSON: json.RawMessage(twoSpeakerTranscript),
	}
	o := pipeline.New(stt, &fakeExtractor{},
		pipeline.WithPollInterval(time.Millisecond),
		pipeline.WithMetrics(newMetrics(t)))

	raw, err := o.Poll(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if string(raw) != twoSpeakerTranscript {
		t.Errorf("Poll returned unexpected transcript: %s", raw)
	}
	if len(stt.DetailsCalls) != 3 {
		t.Errorf("JobDetails called %d times, want 3", len(stt.DetailsCalls))
	}
	if len(stt.TranscriptCalls) != 1 || stt.TranscriptCalls[0] != "j1" {
		t.Errorf("Transcript calls = %v, want [j1]", stt.TranscriptCalls)
	}
}

func TestPoll_TimesOutWithinBound(t *testing.T) {
	t.Parallel()

	// The sequence never reaches a terminal state, so the last element is
	// repeated forever.
	stt := &mock.Provider{
		StatusSequence: []transcription.Job{job("j1", transcription.StatusInProgress)},
	}
	const timeout = 100 * time.Millisecond
	o := pipeline.New(stt, &fakeExtractor{},
		pipeline.WithPollInterval(20*time.Millisecond),
		pipeline.WithPollTimeout(timeout),
		pipeline.WithMetrics(newMetrics(t)))

	start := time.Now()
	_, err := o.Poll(context.Background(), "j1")
	elapsed := time.Since(start)

	var terr *pipeline.PollingTimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *PollingTimeoutError", err)
	}
	if terr.JobID != "j1" {
		t.Errorf("JobID = %q, want j1", terr.JobID)
	}
	if terr.Timeout != timeout {
		t.Errorf("Timeout = %v, want %v", terr.Timeout, timeout)
	}
	// The timeout is a hard bound on wall time, allow 50% margin.
	if elapsed > timeout*3/2 {
		t.Errorf("Poll took %v, want <= %v", elapsed, timeout*3/2)
	}
}

func TestPoll_PropagatesFailureDetail(t *testing.T) {
	t.Parallel()

	stt := &mock.Provider{
		StatusSequence: []transcription.Job{
			job("j1", transcription.StatusInProgress),
			{ID: "j1", Status: transcription.StatusFailed, FailureDetail: "bad audio"},
		},
	}
	o := pipeline.New(stt, &fakeExtractor{},
		pipeline.WithPollInterval(time.Millisecond),
		pipeline.WithMetrics(newMetrics(t)))

	_, err := o.Poll(context.Background(), "j1")
	var ferr *pipeline.TranscriptionFailedError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want *TranscriptionFailedError", err)
	}
	if ferr.Detail != "bad audio" {
		t.Errorf("Detail = %q, want %q", ferr.Detail, "bad audio")
	}
}

func TestPoll_CancellationBetweenPolls(t *testing.T) {
	t.Parallel()

	stt := &mock.Provider{
		StatusSequence: []transcription.Job{job("j1", transcription.StatusInProgress)},
	}
	o := pipeline.New(stt, &fakeExtractor{},
		pipeline.WithPollInterval(time.Hour),
		pipeline.WithMetrics(newMetrics(t)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := o.Poll(ctx, "j1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled in chain", err)
	}
	// Cancellation must not wait out the full interval.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Poll took %v after cancellation", elapsed)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	stt := &mock.Provider{
		SubmitJob: job("j42", transcription.StatusQueued),
		StatusSequence: []transcription.Job{
			job("j42", transcription.StatusInProgress),
			job("j42", transcription.StatusTranscribed),
		},
		TranscriptJSON: json.RawMessage(twoSpeakerTranscript),
	}
	want := &note.ClinicalNote{Assessment: "Healthy"}
	ex := &fakeExtractor{note: want}
	o := pipeline.New(stt, ex,
		pipeline.WithPollInterval(time.Millisecond),
		pipeline.WithMetrics(newMetrics(t)))

	res, err := o.Run(context.Background(), strings.NewReader("RIFFaudio"), "visit.wav")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.JobID != "j42" {
		t.Errorf("JobID = %q, want j42", res.JobID)
	}
	if res.Dialogue != "Person 1: Hello\nPerson 2: Hi there" {
		t.Errorf("Dialogue = %q", res.Dialogue)
	}
	if res.Note != want {
		t.Errorf("Note = %+v, want the extractor's note", res.Note)
	}
	if len(ex.dialogues) != 1 || ex.dialogues[0] != res.Dialogue {
		t.Errorf("extractor saw dialogues %v", ex.dialogues)
	}
	if len(stt.SubmitCalls) != 1 || stt.SubmitCalls[0].Filename != "visit.wav" {
		t.Errorf("SubmitCalls = %+v", stt.SubmitCalls)
	}
	if string(stt.SubmitCalls[0].Media) != "RIFFaudio" {
		t.Errorf("submitted media = %q", stt.SubmitCalls[0].Media)
	}
}

func TestRun_SubmitRejection(t *testing.T) {
	t.Parallel()

	cause := errors.New("unsupported codec")
	stt := &mock.Provider{SubmitErr: cause}
	o := pipeline.New(stt, &fakeExtractor{}, pipeline.WithMetrics(newMetrics(t)))

	_, err := o.Run(context.Background(), strings.NewReader("x"), "visit.ogg")
	var serr *pipeline.SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *SubmitError", err)
	}
	if serr.Filename != "visit.ogg" {
		t.Errorf("Filename = %q", serr.Filename)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error chain lost the provider cause: %v", err)
	}
}

func TestRun_MalformedTranscriptAborts(t *testing.T) {
	t.Parallel()

	stt := &mock.Provider{
		SubmitJob: job("j1", transcription.StatusQueued),
		StatusSequence: []transcription.Job{
			job("j1", transcription.StatusTranscribed),
		},
		TranscriptJSON: json.RawMessage(`{"surprise": true}`),
	}
	ex := &fakeExtractor{note: &note.ClinicalNote{}}
	o := pipeline.New(stt, ex,
		pipeline.WithPollInterval(time.Millisecond),
		pipeline.WithMetrics(newMetrics(t)))

	_, err := o.Run(context.Background(), strings.NewReader("x"), "visit.wav")
	var merr *transcript.MalformedTranscriptError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want *MalformedTranscriptError", err)
	}
	// Extraction must not run on a malformed transcript.
	if len(ex.dialogues) != 0 {
		t.Errorf("extractor was invoked with %v", ex.dialogues)
	}
}

func TestRun_ExtractionFailurePropagates(t *testing.T) {
	t.Parallel()

	stt := &mock.Provider{
		SubmitJob: job("j1", transcription.StatusQueued),
		StatusSequence: []transcription.Job{
			job("j1", transcription.StatusTranscribed),
		},
		TranscriptJSON: json.RawMessage(twoSpeakerTranscript),
	}
	cause := errors.New("llm unavailable")
	o := pipeline.New(stt, &fakeExtractor{err: cause},
		pipeline.WithPollInterval(time.Millisecond),
		pipeline.WithMetrics(newMetrics(t)))

	_, err := o.Run(context.Background(), strings.NewReader("x"), "visit.wav")
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want the extractor failure", err)
	}
}
