package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/voice2vital/voice2vital/internal/records"
)

// multipartMemory is how much of a parsed upload is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// consultationResponse is returned after a successful pipeline run. NoteID
// is set only when the note was archived.
type consultationResponse struct {
	JobID    string `json:"job_id"`
	Dialogue string `json:"dialogue"`
	Note     any    `json:"note"`
	NoteID   string `json:"note_id,omitempty"`
	Archived bool   `json:"archived"`
}

// uploadConsultation accepts a multipart form with an "audio" file part and
// an optional patient_id/doctor_id, runs the transcription-and-extraction
// pipeline synchronously, and archives the note when a patient is given and
// the store is configured.
func (s *Server) uploadConsultation(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription pipeline is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, `missing "audio" file part`)
		return
	}
	defer file.Close()

	var patientID uuid.UUID
	if raw := r.FormValue("patient_id"); raw != "" {
		patientID, err = uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "patient_id is not a valid UUID")
			return
		}
		if s.store != nil {
			if _, err := s.store.Patient(r.Context(), patientID); errors.Is(err, records.ErrNotFound) {
				writeError(w, http.StatusNotFound, "patient not found")
				return
			} else if err != nil {
				slog.ErrorContext(r.Context(), "patient lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "patient lookup failed")
				return
			}
		}
	}
	var doctorID uuid.NullUUID
	if raw := r.FormValue("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "doctor_id is not a valid UUID")
			return
		}
		doctorID = uuid.NullUUID{UUID: id, Valid: true}
	}

	result, err := s.runner.Run(r.Context(), file, header.Filename)
	if err != nil {
		slog.ErrorContext(r.Context(), "consultation pipeline failed",
			"filename", header.Filename, "error", err)
		writeError(w, pipelineStatus(err), err.Error())
		return
	}

	resp := consultationResponse{
		JobID:    result.JobID,
		Dialogue: result.Dialogue,
		Note:     result.Note,
	}
	if s.store != nil && patientID != uuid.Nil {
		rec, err := s.store.ArchiveNote(r.Context(), records.NoteRecord{
			PatientID: patientID,
			DoctorID:  doctorID,
			JobID:     result.JobID,
			Dialogue:  result.Dialogue,
			Note:      *result.Note,
		})
		if err != nil {
			// The note was extracted; losing the archive is reported but the
			// caller still gets the document.
			slog.ErrorContext(r.Context(), "note archival failed",
				"job_id", result.JobID, "patient_id", patientID, "error", err)
		} else {
			resp.NoteID = rec.ID.String()
			resp.Archived = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// patientNotes lists a patient's archived notes, newest first.
func (s *Server) patientNotes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "records store is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "patient ID is not a valid UUID")
		return
	}
	if _, err := s.store.Patient(r.Context(), id); errors.Is(err, records.ErrNotFound) {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	} else if err != nil {
		slog.ErrorContext(r.Context(), "patient lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "patient lookup failed")
		return
	}

	notes, err := s.store.NotesForPatient(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "notes lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "notes lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}
