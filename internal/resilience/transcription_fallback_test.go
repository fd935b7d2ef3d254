package resilience

import (
	"context"
	"strings"
	"testing"

	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
	"github.com/voice2vital/voice2vital/pkg/provider/transcription/mock"
)

func TestTranscriptionFallback_SubmitFailover(t *testing.T) {
	primary := &mock.Provider{SubmitErr: errProviderDown}
	secondary := &mock.Provider{
		SubmitJob: transcription.Job{ID: "j2", Status: transcription.StatusQueued},
	}

	f := NewTranscriptionFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	job, err := f.SubmitFile(context.Background(), strings.NewReader("RIFFaudio"), "visit.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID != "j2" {
		t.Fatalf("job ID = %q, want j2", job.ID)
	}

	// The audio must be replayed in full against the fallback, even though
	// the primary consumed the reader first.
	if len(secondary.SubmitCalls) != 1 {
		t.Fatalf("secondary submit calls = %d, want 1", len(secondary.SubmitCalls))
	}
	if got := string(secondary.SubmitCalls[0].Media); got != "RIFFaudio" {
		t.Errorf("fallback received media %q, want full audio", got)
	}
}

func TestTranscriptionFallback_RoutesPollsToOwner(t *testing.T) {
	primary := &mock.Provider{SubmitErr: errProviderDown}
	secondary := &mock.Provider{
		SubmitJob: transcription.Job{ID: "j2", Status: transcription.StatusQueued},
		StatusSequence: []transcription.Job{
			{ID: "j2", Status: transcription.StatusTranscribed},
		},
		TranscriptJSON: []byte(`{"monologues": []}`),
	}

	f := NewTranscriptionFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	job, err := f.SubmitFile(context.Background(), strings.NewReader("x"), "visit.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.JobDetails(context.Background(), job.ID); err != nil {
		t.Fatalf("JobDetails: %v", err)
	}
	if _, err := f.Transcript(context.Background(), job.ID); err != nil {
		t.Fatalf("Transcript: %v", err)
	}

	// All post-submit traffic must hit the backend that owns the job.
	if len(secondary.DetailsCalls) != 1 || len(secondary.TranscriptCalls) != 1 {
		t.Errorf("owner calls = %d details / %d transcripts, want 1 / 1",
			len(secondary.DetailsCalls), len(secondary.TranscriptCalls))
	}
	if len(primary.DetailsCalls) != 0 || len(primary.TranscriptCalls) != 0 {
		t.Errorf("primary received post-submit calls for a job it does not own")
	}
}

func TestTranscriptionFallback_UnknownJobGoesToPrimary(t *testing.T) {
	primary := &mock.Provider{
		StatusSequence: []transcription.Job{
			{ID: "restarted", Status: transcription.StatusInProgress},
		},
	}
	f := NewTranscriptionFallback(primary, "primary", FallbackConfig{})

	job, err := f.JobDetails(context.Background(), "restarted")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != transcription.StatusInProgress {
		t.Errorf("status = %q", job.Status)
	}
	if len(primary.DetailsCalls) != 1 {
		t.Errorf("primary details calls = %d, want 1", len(primary.DetailsCalls))
	}
}
