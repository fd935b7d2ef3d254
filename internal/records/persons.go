package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint hits.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateDoctor inserts a new doctor account and returns it with the
// database-assigned ID and timestamp. The password must already be hashed;
// plaintext never reaches this layer.
func (s *Store) CreateDoctor(ctx context.Context, d Doctor) (Doctor, error) {
	const q = `
		INSERT INTO doctors (first_name, last_name, email, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, q,
		d.FirstName, d.LastName, d.Email, d.Phone, d.PasswordHash,
	).Scan(&d.ID, &d.CreatedAt)
	if isUniqueViolation(err) {
		return Doctor{}, fmt.Errorf("records: create doctor: %w", ErrDuplicate)
	}
	if err != nil {
		return Doctor{}, fmt.Errorf("records: create doctor: %w", err)
	}
	return d, nil
}

// CreatePatient inserts a new patient and returns it with the
// database-assigned ID and timestamp.
func (s *Store) CreatePatient(ctx context.Context, p Patient) (Patient, error) {
	const q = `
		INSERT INTO patients (first_name, last_name, email, phone, date_of_birth, doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, q,
		p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.DoctorID,
	).Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err) {
		return Patient{}, fmt.Errorf("records: create patient: %w", ErrDuplicate)
	}
	if err != nil {
		return Patient{}, fmt.Errorf("records: create patient: %w", err)
	}
	return p, nil
}

// Doctor fetches one doctor by ID. Returns [ErrNotFound] when no row
// matches.
func (s *Store) Doctor(ctx context.Context, id uuid.UUID) (Doctor, error) {
	const q = `
		SELECT id, first_name, last_name, email, phone, password_hash, created_at
		FROM   doctors
		WHERE  id = $1`

	var d Doctor
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.PasswordHash, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Doctor{}, ErrNotFound
	}
	if err != nil {
		return Doctor{}, fmt.Errorf("records: get doctor: %w", err)
	}
	return d, nil
}

// DoctorByEmail fetches one doctor by email, for credential checks. Returns
// [ErrNotFound] when no row matches.
func (s *Store) DoctorByEmail(ctx context.Context, email string) (Doctor, error) {
	const q = `
		SELECT id, first_name, last_name, email, phone, password_hash, created_at
		FROM   doctors
		WHERE  email = $1`

	var d Doctor
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.PasswordHash, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Doctor{}, ErrNotFound
	}
	if err != nil {
		return Doctor{}, fmt.Errorf("records: get doctor by email: %w", err)
	}
	return d, nil
}

// Patient fetches one patient by ID. Returns [ErrNotFound] when no row
// matches.
func (s *Store) Patient(ctx context.Context, id uuid.UUID) (Patient, error) {
	const q = `
		SELECT id, first_name, last_name, email, phone, date_of_birth, doctor_id, created_at
		FROM   patients
		WHERE  id = $1`

	var p Patient
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth, &p.DoctorID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Patient{}, ErrNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("records: get patient: %w", err)
	}
	return p, nil
}

// SearchPatients finds patients whose names fuzzily match the query, most
// similar first, capped at limit. Matching runs in-process over all
// registered names: a practice's patient roster is small enough that
// shipping phonetics into SQL is not worth it.
func (s *Store) SearchPatients(ctx context.Context, query string, limit int) ([]PersonMatch[Patient], error) {
	const q = `
		SELECT id, first_name, last_name, email, phone, date_of_birth, doctor_id, created_at
		FROM   patients`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("records: search patients: %w", err)
	}
	patients, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Patient, error) {
		var p Patient
		err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
			&p.DateOfBirth, &p.DoctorID, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("records: scan patients: %w", err)
	}

	names := make([]string, len(patients))
	for i, p := range patients {
		names[i] = p.FullName()
	}

	matches := []PersonMatch[Patient]{}
	for _, hit := range s.matcher.rank(query, names) {
		matches = append(matches, PersonMatch[Patient]{Person: patients[hit.index], Score: hit.score})
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// SearchDoctors finds doctors whose names fuzzily match the query, most
// similar first, capped at limit.
func (s *Store) SearchDoctors(ctx context.Context, query string, limit int) ([]PersonMatch[Doctor], error) {
	const q = `
		SELECT id, first_name, last_name, email, phone, password_hash, created_at
		FROM   doctors`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("records: search doctors: %w", err)
	}
	doctors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Doctor, error) {
		var d Doctor
		err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
			&d.PasswordHash, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("records: scan doctors: %w", err)
	}

	names := make([]string, len(doctors))
	for i, d := range doctors {
		names[i] = d.FullName()
	}

	matches := []PersonMatch[Doctor]{}
	for _, hit := range s.matcher.rank(query, names) {
		matches = append(matches, PersonMatch[Doctor]{Person: doctors[hit.index], Score: hit.score})
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	return matches, nil
}
