// Package revai provides an async transcription provider backed by the Rev AI
// speech-to-text API (https://docs.rev.ai). It implements the
// transcription.Provider interface.
//
// Jobs are submitted as multipart uploads to the v1 jobs endpoint with speaker
// diarization enabled; finished transcripts are fetched in the Rev AI
// monologue JSON format, which is the wire shape the rest of the pipeline
// consumes.
package revai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voice2vital/voice2vital/pkg/provider/transcription"
)

const (
	defaultBaseURL = "https://api.rev.ai/speechtotext/v1"

	// transcriptAccept selects the structured JSON transcript representation
	// instead of plain text.
	transcriptAccept = "application/vnd.rev.transcript.v1.0+json"
)

// Provider implements transcription.Provider using the Rev AI REST API.
type Provider struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ transcription.Provider = (*Provider)(nil)

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBaseURL overrides the default Rev AI API base URL. Used by tests to
// point the client at a local fake server.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// New creates a new Rev AI Provider. token must be non-empty.
func New(token string, opts ...Option) (*Provider, error) {
	if token == "" {
		return nil, errors.New("revai: token must not be empty")
	}
	p := &Provider{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- Wire types ----

// jobResponse mirrors the Rev AI job object. Only the fields the pipeline
// needs are decoded.
type jobResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Failure       string `json:"failure,omitempty"`
	FailureDetail string `json:"failure_detail,omitempty"`
}

// jobOptions is the JSON options part of a multipart job submission.
type jobOptions struct {
	SkipDiarization bool `json:"skip_diarization"`
}

// errorResponse is the Rev AI error body returned with non-2xx statuses.
type errorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// SubmitFile implements transcription.Provider. The audio is uploaded as a
// multipart form with diarization enabled. Provider rejections (unsupported
// codec, bad auth) are returned with the provider's own error detail.
func (p *Provider) SubmitFile(ctx context.Context, media io.Reader, filename string) (transcription.Job, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("media", filename)
	if err != nil {
		return transcription.Job{}, fmt.Errorf("revai: create media part: %w", err)
	}
	if _, err := io.Copy(part, media); err != nil {
		return transcription.Job{}, fmt.Errorf("revai: read media: %w", err)
	}

	optsJSON, _ := json.Marshal(jobOptions{SkipDiarization: false})
	if err := mw.WriteField("options", string(optsJSON)); err != nil {
		return transcription.Job{}, fmt.Errorf("revai: write options part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return transcription.Job{}, fmt.Errorf("revai: finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/jobs", &body)
	if err != nil {
		return transcription.Job{}, fmt.Errorf("revai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var job jobResponse
	if err := p.do(req, http.StatusOK, &job); err != nil {
		return transcription.Job{}, fmt.Errorf("revai: submit job: %w", err)
	}
	return toJob(job), nil
}

// JobDetails implements transcription.Provider.
func (p *Provider) JobDetails(ctx context.Context, jobID string) (transcription.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return transcription.Job{}, fmt.Errorf("revai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)

	var job jobResponse
	if err := p.do(req, http.StatusOK, &job); err != nil {
		return transcription.Job{}, fmt.Errorf("revai: job details %q: %w", jobID, err)
	}
	return toJob(job), nil
}

// Transcript implements transcription.Provider. The monologue JSON is passed
// through untouched; shape validation is the normalizer's job.
func (p *Provider) Transcript(ctx context.Context, jobID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/jobs/"+jobID+"/transcript", nil)
	if err != nil {
		return nil, fmt.Errorf("revai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", transcriptAccept)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revai: get transcript %q: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("revai: get transcript %q: %w", jobID, apiError(resp))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("revai: read transcript %q: %w", jobID, err)
	}
	return json.RawMessage(raw), nil
}

// do executes req, checks for wantStatus, and decodes the JSON body into out.
func (p *Provider) do(req *http.Request, wantStatus int, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError builds an error from a non-2xx Rev AI response, preserving the
// provider's own title/detail wording when the body is parseable.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && (e.Title != "" || e.Detail != "") {
		if e.Detail != "" {
			return fmt.Errorf("status %d: %s: %s", resp.StatusCode, e.Title, e.Detail)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, e.Title)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

// toJob converts a wire job to the provider-neutral representation. Rev AI
// reports failures in a "failure" code plus human-readable "failure_detail";
// the detail is preferred, falling back to the code.
func toJob(j jobResponse) transcription.Job {
	detail := j.FailureDetail
	if detail == "" {
		detail = j.Failure
	}
	return transcription.Job{
		ID:            j.ID,
		Status:        transcription.Status(j.Status),
		FailureDetail: detail,
	}
}
