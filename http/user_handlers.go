package http

import (
	"errors"
	"net/http"
	"strconv"

	"cardioml/db"
)

// RegisterUserHandlers registers the account and patient CRUD routes.
func RegisterUserHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users", handleCreateUser)
	mux.HandleFunc("POST /api/users/login", handleLogin)
	mux.HandleFunc("GET /api/users/{id}", handleGetUser)
	mux.HandleFunc("DELETE /api/users/{id}", handleDeleteUser)

	mux.HandleFunc("POST /api/patients", handleCreatePatient)
	mux.HandleFunc("GET /api/patients", handleListPatients)
	mux.HandleFunc("GET /api/patients/{id}", handleGetPatient)
	mux.HandleFunc("PUT /api/patients/{id}", handleUpdatePatient)
	mux.HandleFunc("DELETE /api/patients/{id}", handleDeletePatient)

	mux.HandleFunc("POST /api/practitioners", handleCreatePractitioner)
	mux.HandleFunc("GET /api/practitioners/{id}", handleGetPractitioner)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func respondDBError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var request UserRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := db.HashPassword(request.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	id, err := db.AddUser(db.User{
		Email:        request.Email,
		PasswordHash: hash,
		FirstName:    request.FirstName,
		LastName:     request.LastName,
		Category:     request.Category,
	})
	if err != nil {
		respondDBError(w, err)
		return
	}

	user, err := db.GetUser(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, user)
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var request LoginRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := db.GetUserByEmail(request.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondDBError(w, err)
		return
	}
	if !db.VerifyPassword(request.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, user)
}

func handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := db.GetUser(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, user)
}

func handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := db.DeleteUser(id); err != nil {
		respondDBError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var request PatientRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := db.HashPassword(request.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	id, err := db.AddPatient(request.record(hash))
	if err != nil {
		respondDBError(w, err)
		return
	}

	patient, err := db.GetPatient(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, patient)
}

func handleListPatients(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	patients, err := db.ListPatients(limit)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

func handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	patient, err := db.GetPatient(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, patient)
}

func handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	var request PatientRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if request.Age < 0 || request.Age > 120 {
		respondError(w, http.StatusBadRequest, "age must be between 0 and 120")
		return
	}

	if err := db.UpdatePatient(id, request.record("")); err != nil {
		respondDBError(w, err)
		return
	}

	patient, err := db.GetPatient(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, patient)
}

func handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	if err := db.DeleteUser(id); err != nil {
		respondDBError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleCreatePractitioner(w http.ResponseWriter, r *http.Request) {
	var request PractitionerRequest
	if err := decodeJSON(r, &request); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := db.HashPassword(request.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	id, err := db.AddPractitioner(request.record(hash))
	if err != nil {
		respondDBError(w, err)
		return
	}

	practitioner, err := db.GetPractitioner(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, practitioner)
}

func handleGetPractitioner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid practitioner id")
		return
	}
	practitioner, err := db.GetPractitioner(id)
	if err != nil {
		respondDBError(w, err)
		return
	}
	respondJSON(w, practitioner)
}
