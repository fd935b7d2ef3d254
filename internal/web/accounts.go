package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/voice2vital/voice2vital/internal/records"
)

// signupRequest is the shared JSON payload for doctor and patient signup.
// Patients additionally carry date_of_birth and an optional doctor_id.
type signupRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	DateOfBirth string `json:"date_of_birth"`
	DoctorID    string `json:"doctor_id"`
}

// validate checks the fields shared by both signup flows and returns the
// normalized phone number.
func (req *signupRequest) validate(needPassword bool) (phone string, err error) {
	if req.Email == "" {
		return "", errors.New("email is required")
	}
	if !validEmail(req.Email) {
		return "", errors.New("invalid email format")
	}
	if needPassword {
		if req.Password == "" {
			return "", errors.New("password is required")
		}
		if err := checkPassword(req.Password); err != nil {
			return "", err
		}
	}
	return normalizePhone(req.Phone)
}

func (s *Server) doctorSignup(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "records store is not configured")
		return
	}

	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	phone, err := req.validate(true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	doctor, err := s.store.CreateDoctor(r.Context(), records.Doctor{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        phone,
		PasswordHash: string(hash),
	})
	if errors.Is(err, records.ErrDuplicate) {
		writeError(w, http.StatusConflict, "email address already registered")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "doctor signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create doctor record")
		return
	}

	slog.InfoContext(r.Context(), "doctor registered", "doctor_id", doctor.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"doctor": doctor})
}

func (s *Server) patientSignup(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "records store is not configured")
		return
	}

	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	phone, err := req.validate(false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var doctorID uuid.NullUUID
	if req.DoctorID != "" {
		id, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "doctor_id is not a valid UUID")
			return
		}
		doctorID = uuid.NullUUID{UUID: id, Valid: true}
	}

	patient, err := s.store.CreatePatient(r.Context(), records.Patient{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       phone,
		DateOfBirth: req.DateOfBirth,
		DoctorID:    doctorID,
	})
	if errors.Is(err, records.ErrDuplicate) {
		writeError(w, http.StatusConflict, "email address already registered")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "patient signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create patient record")
		return
	}

	slog.InfoContext(r.Context(), "patient registered", "patient_id", patient.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"patient": patient})
}

// login verifies a doctor's credentials. The same 401 is returned for an
// unknown email and a wrong password, so the endpoint cannot be used to
// probe which addresses are registered.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "records store is not configured")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	doctor, err := s.store.DoctorByEmail(r.Context(), req.Email)
	if errors.Is(err, records.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"doctor": doctor})
}
