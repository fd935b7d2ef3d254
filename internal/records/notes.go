package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

// ArchiveNote persists one extracted consultation note. The note's rendered
// text is embedded at archive time so the record immediately participates in
// semantic search.
func (s *Store) ArchiveNote(ctx context.Context, rec NoteRecord) (NoteRecord, error) {
	noteJSON, err := json.Marshal(&rec.Note)
	if err != nil {
		return NoteRecord{}, fmt.Errorf("records: marshal note: %w", err)
	}

	vec, err := s.embedder.Embed(ctx, rec.Note.Render())
	if err != nil {
		return NoteRecord{}, fmt.Errorf("records: embed note: %w", err)
	}

	const q = `
		INSERT INTO clinical_notes (patient_id, doctor_id, job_id, dialogue, note, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = s.pool.QueryRow(ctx, q,
		rec.PatientID, rec.DoctorID, rec.JobID, rec.Dialogue, noteJSON,
		pgvector.NewVector(vec),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return NoteRecord{}, fmt.Errorf("records: archive note: %w", err)
	}
	return rec, nil
}

// Note fetches one archived note by ID. Returns [ErrNotFound] when no row
// matches.
func (s *Store) Note(ctx context.Context, id uuid.UUID) (NoteRecord, error) {
	const q = `
		SELECT id, patient_id, doctor_id, job_id, dialogue, note, created_at
		FROM   clinical_notes
		WHERE  id = $1`

	rec, err := scanNoteRow(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return NoteRecord{}, ErrNotFound
	}
	if err != nil {
		return NoteRecord{}, fmt.Errorf("records: get note: %w", err)
	}
	return rec, nil
}

// NotesForPatient returns all archived notes for one patient, newest first.
func (s *Store) NotesForPatient(ctx context.Context, patientID uuid.UUID) ([]NoteRecord, error) {
	const q = `
		SELECT id, patient_id, doctor_id, job_id, dialogue, note, created_at
		FROM   clinical_notes
		WHERE  patient_id = $1
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("records: notes for patient: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NoteRecord, error) {
		return scanNoteRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("records: scan notes: %w", err)
	}
	if recs == nil {
		recs = []NoteRecord{}
	}
	return recs, nil
}

// SearchNotes embeds the free-text query and returns the topK archived notes
// nearest to it by cosine distance, most similar first.
func (s *Store) SearchNotes(ctx context.Context, query string, topK int) ([]NoteSearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("records: embed query: %w", err)
	}

	const q = `
		SELECT id, patient_id, doctor_id, job_id, dialogue, note, created_at,
		       embedding <=> $1 AS distance
		FROM   clinical_notes
		WHERE  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("records: search notes: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NoteSearchResult, error) {
		var (
			res      NoteSearchResult
			noteJSON []byte
		)
		if err := row.Scan(
			&res.Record.ID,
			&res.Record.PatientID,
			&res.Record.DoctorID,
			&res.Record.JobID,
			&res.Record.Dialogue,
			&noteJSON,
			&res.Record.CreatedAt,
			&res.Distance,
		); err != nil {
			return NoteSearchResult{}, err
		}
		if err := json.Unmarshal(noteJSON, &res.Record.Note); err != nil {
			return NoteSearchResult{}, err
		}
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("records: scan search results: %w", err)
	}
	if results == nil {
		results = []NoteSearchResult{}
	}
	return results, nil
}

// noteRow is satisfied by both pgx.Row and pgx.CollectableRow.
type noteRow interface {
	Scan(dest ...any) error
}

func scanNoteRow(row noteRow) (NoteRecord, error) {
	var (
		rec      NoteRecord
		noteJSON []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.DoctorID,
		&rec.JobID,
		&rec.Dialogue,
		&noteJSON,
		&rec.CreatedAt,
	); err != nil {
		return NoteRecord{}, err
	}
	if err := json.Unmarshal(noteJSON, &rec.Note); err != nil {
		return NoteRecord{}, err
	}
	return rec, nil
}
