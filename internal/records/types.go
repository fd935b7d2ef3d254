// Package records is the PostgreSQL-backed medical records store: doctors,
// patients, and the archive of extracted clinical notes.
//
// Notes are stored twice over: the structured document as JSONB (the
// persisted artifact format, field names fixed), and an embedding of the
// note text in a pgvector column for semantic search. Person lookup by name
// is fuzzy — clinicians search for "Jon Smyth" and expect John Smith — using
// Double Metaphone phonetic codes with Jaro-Winkler ranking.
//
// All operations share a single [pgxpool.Pool] and are safe for concurrent
// use. The pgvector extension must be available in the target database;
// [Migrate] installs it via CREATE EXTENSION IF NOT EXISTS.
package records

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/voice2vital/voice2vital/internal/note"
)

// ErrNotFound is returned when a lookup by ID matches no row.
var ErrNotFound = errors.New("records: not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// such as registering a doctor email twice.
var ErrDuplicate = errors.New("records: already exists")

// Doctor is a registered clinician account.
type Doctor struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`

	// PasswordHash is the bcrypt hash of the signup password. Never
	// serialized.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Patient is a registered patient.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`

	// DateOfBirth is stored as text exactly as registered; no date arithmetic
	// happens on it.
	DateOfBirth string `json:"date_of_birth"`

	// DoctorID links the patient to their primary doctor, when known.
	DoctorID uuid.NullUUID `json:"doctor_id"`

	CreatedAt time.Time `json:"created_at"`
}

// FullName returns "First Last" for display and fuzzy matching.
func (p Patient) FullName() string { return p.FirstName + " " + p.LastName }

// FullName returns "First Last" for display and fuzzy matching.
func (d Doctor) FullName() string { return d.FirstName + " " + d.LastName }

// NoteRecord is one archived consultation: the transcription job it came
// from, the normalized dialogue, and the extracted note.
type NoteRecord struct {
	ID        uuid.UUID         `json:"id"`
	PatientID uuid.UUID         `json:"patient_id"`
	DoctorID  uuid.NullUUID     `json:"doctor_id"`
	JobID     string            `json:"job_id"`
	Dialogue  string            `json:"dialogue"`
	Note      note.ClinicalNote `json:"note"`
	CreatedAt time.Time         `json:"created_at"`
}

// NoteSearchResult pairs an archived note with its cosine distance to a
// semantic search query. Smaller distance means more similar.
type NoteSearchResult struct {
	Record   NoteRecord `json:"record"`
	Distance float64    `json:"distance"`
}

// PersonMatch is one ranked hit from a fuzzy person search.
type PersonMatch[T any] struct {
	Person T       `json:"person"`
	Score  float64 `json:"score"`
}
