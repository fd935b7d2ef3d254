package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
)

// Default result caps when the caller does not provide one.
const (
	defaultPersonLimit = 5
	defaultNoteTopK    = 3
)

// catalogue returns all records tools in their fixed registration order.
func (s *Server) catalogue() []toolEntry {
	return []toolEntry{
		{
			name: "search_patients",
			description: "Find patients by name. Matching is fuzzy and phonetic, " +
				"so misspelled names like 'Jon Smyth' still find John Smith. " +
				"Returns ranked matches with similarity scores.",
			schema: searchSchema("patient name (full or partial) to look up"),
			run:    s.searchPatients,
		},
		{
			name: "search_doctors",
			description: "Find doctors by name. Matching is fuzzy and phonetic. " +
				"Returns ranked matches with similarity scores.",
			schema: searchSchema("doctor name (full or partial) to look up"),
			run:    s.searchDoctors,
		},
		{
			name:        "get_patient",
			description: "Fetch one patient record by its UUID.",
			schema:      idSchema("patient_id", "UUID of the patient"),
			run:         s.getPatient,
		},
		{
			name:        "get_doctor",
			description: "Fetch one doctor record by its UUID.",
			schema:      idSchema("doctor_id", "UUID of the doctor"),
			run:         s.getDoctor,
		},
		{
			name: "get_clinical_notes",
			description: "List all archived clinical notes for a patient, " +
				"newest first. Each note includes the full structured document " +
				"and the consultation dialogue it was extracted from.",
			schema: idSchema("patient_id", "UUID of the patient"),
			run:    s.getClinicalNotes,
		},
		{
			name: "search_notes",
			description: "Semantic search over all archived clinical notes. " +
				"Describe symptoms, diagnoses, or treatments in free text; " +
				"returns the closest notes with their cosine distance " +
				"(smaller is more similar).",
			schema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "free-text description of the clinical content to find"},
					"top_k": {Type: "integer", Description: "maximum notes to return (default 3)"},
				},
				Required: []string{"query"},
			},
			run: s.searchNotes,
		},
		{
			name: "list_tables",
			description: "List all tables in the records database. Use together " +
				"with get_table_schema to understand what data is stored.",
			schema: &jsonschema.Schema{Type: "object"},
			run:    s.listTables,
		},
		{
			name:        "get_table_schema",
			description: "Describe the columns of one records database table.",
			schema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"table": {Type: "string", Description: "table name, as returned by list_tables"},
				},
				Required: []string{"table"},
			},
			run: s.getTableSchema,
		},
	}
}

// searchSchema builds the shared query+limit input schema for person search.
func searchSchema(queryDesc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string", Description: queryDesc},
			"limit": {Type: "integer", Description: "maximum matches to return (default 5)"},
		},
		Required: []string{"query"},
	}
}

// idSchema builds a single-required-UUID input schema.
func idSchema(field, desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			field: {Type: "string", Description: desc},
		},
		Required: []string{field},
	}
}

type searchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) searchPatients(ctx context.Context, args []byte) (string, error) {
	var a searchArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Limit <= 0 {
		a.Limit = defaultPersonLimit
	}
	matches, err := s.store.SearchPatients(ctx, a.Query, a.Limit)
	if err != nil {
		return "", err
	}
	return encodeResult(matches)
}

func (s *Server) searchDoctors(ctx context.Context, args []byte) (string, error) {
	var a searchArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Limit <= 0 {
		a.Limit = defaultPersonLimit
	}
	matches, err := s.store.SearchDoctors(ctx, a.Query, a.Limit)
	if err != nil {
		return "", err
	}
	return encodeResult(matches)
}

func (s *Server) getPatient(ctx context.Context, args []byte) (string, error) {
	id, err := idArg(args, "patient_id")
	if err != nil {
		return "", err
	}
	p, err := s.store.Patient(ctx, id)
	if err != nil {
		return "", err
	}
	return encodeResult(p)
}

func (s *Server) getDoctor(ctx context.Context, args []byte) (string, error) {
	id, err := idArg(args, "doctor_id")
	if err != nil {
		return "", err
	}
	d, err := s.store.Doctor(ctx, id)
	if err != nil {
		return "", err
	}
	return encodeResult(d)
}

func (s *Server) getClinicalNotes(ctx context.Context, args []byte) (string, error) {
	id, err := idArg(args, "patient_id")
	if err != nil {
		return "", err
	}
	notes, err := s.store.NotesForPatient(ctx, id)
	if err != nil {
		return "", err
	}
	return encodeResult(notes)
}

func (s *Server) searchNotes(ctx context.Context, args []byte) (string, error) {
	var a struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.TopK <= 0 {
		a.TopK = defaultNoteTopK
	}
	results, err := s.store.SearchNotes(ctx, a.Query, a.TopK)
	if err != nil {
		return "", err
	}
	return encodeResult(results)
}

func (s *Server) listTables(ctx context.Context, _ []byte) (string, error) {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return "", err
	}
	return encodeResult(tables)
}

func (s *Server) getTableSchema(ctx context.Context, args []byte) (string, error) {
	var a struct {
		Table string `json:"table"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	cols, err := s.store.TableColumns(ctx, a.Table)
	if err != nil {
		return "", err
	}
	return encodeResult(cols)
}

// idArg decodes a single UUID field from the argument object.
func idArg(args []byte, field string) (uuid.UUID, error) {
	var m map[string]string
	if err := decodeArgs(args, &m); err != nil {
		return uuid.Nil, err
	}
	raw, ok := m[field]
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("toolserver: missing required argument %q", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("toolserver: argument %q is not a valid UUID: %w", field, err)
	}
	return id, nil
}

func decodeArgs(args []byte, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("toolserver: invalid arguments: %w", err)
	}
	return nil
}

func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toolserver: encode result: %w", err)
	}
	return string(data), nil
}
