package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlPersons = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS doctors (
    id            UUID         PRIMARY KEY DEFAULT uuid_generate_v4(),
    first_name    TEXT         NOT NULL,
    last_name     TEXT         NOT NULL,
    email         TEXT         NOT NULL UNIQUE,
    phone         TEXT         NOT NULL DEFAULT '',
    password_hash TEXT         NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_doctors_last_name ON doctors (last_name);

CREATE TABLE IF NOT EXISTS patients (
    id            UUID         PRIMARY KEY DEFAULT uuid_generate_v4(),
    first_name    TEXT         NOT NULL,
    last_name     TEXT         NOT NULL,
    email         TEXT         NOT NULL DEFAULT '',
    phone         TEXT         NOT NULL DEFAULT '',
    date_of_birth TEXT         NOT NULL DEFAULT '',
    doctor_id     UUID         REFERENCES doctors (id) ON DELETE SET NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_patients_last_name ON patients (last_name);
CREATE INDEX IF NOT EXISTS idx_patients_doctor_id ON patients (doctor_id);
`

// ddlNotes returns the clinical-note archive DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time and must match the configured embeddings model.
func ddlNotes(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS clinical_notes (
    id          UUID         PRIMARY KEY DEFAULT uuid_generate_v4(),
    patient_id  UUID         NOT NULL REFERENCES patients (id) ON DELETE CASCADE,
    doctor_id   UUID         REFERENCES doctors (id) ON DELETE SET NULL,
    job_id      TEXT         NOT NULL DEFAULT '',
    dialogue    TEXT         NOT NULL DEFAULT '',
    note        JSONB        NOT NULL,
    embedding   vector(%d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_clinical_notes_patient_id
    ON clinical_notes (patient_id);

CREATE INDEX IF NOT EXISTS idx_clinical_notes_created_at
    ON clinical_notes (created_at);

CREATE INDEX IF NOT EXISTS idx_clinical_notes_embedding
    ON clinical_notes USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables, indexes, and extensions
// exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) and safe to call on every application start.
//
// embeddingDimensions must match the output dimension of the configured
// embeddings model (e.g., 1536 for OpenAI text-embedding-3-small). Changing
// it after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlPersons,
		ddlNotes(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("records migrate: %w", err)
		}
	}
	return nil
}
