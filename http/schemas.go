package http

import (
	"fmt"
	"net/mail"
	"time"

	"cardioml/db"
	"cardioml/ml"
)

// FeatureInput is the 13-feature clinical record accepted by the
// prediction and feature endpoints.
type FeatureInput struct {
	Age      int     `json:"age"`
	Sex      int     `json:"sex"`
	CP       int     `json:"cp"`
	Trestbps int     `json:"trestbps"`
	Chol     int     `json:"chol"`
	FBS      int     `json:"fbs"`
	Restecg  int     `json:"restecg"`
	Thalach  int     `json:"thalach"`
	Exang    int     `json:"exang"`
	Oldpeak  float64 `json:"oldpeak"`
	Slope    int     `json:"slope"`
	CA       int     `json:"ca"`
	Thal     int     `json:"thal"`
}

// Validate checks each feature against its clinical domain.
func (f FeatureInput) Validate() error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"age", float64(f.Age), 1, 120},
		{"sex", float64(f.Sex), 0, 1},
		{"cp", float64(f.CP), 0, 3},
		{"trestbps", float64(f.Trestbps), 1, 300},
		{"chol", float64(f.Chol), 1, 700},
		{"fbs", float64(f.FBS), 0, 1},
		{"restecg", float64(f.Restecg), 0, 2},
		{"thalach", float64(f.Thalach), 1, 300},
		{"exang", float64(f.Exang), 0, 1},
		{"oldpeak", f.Oldpeak, 0, 10},
		{"slope", float64(f.Slope), 0, 2},
		{"ca", float64(f.CA), 0, 4},
		{"thal", float64(f.Thal), 0, 3},
	}
	for _, check := range checks {
		if check.value < check.min || check.value > check.max {
			return fmt.Errorf("%s must be between %g and %g", check.name, check.min, check.max)
		}
	}
	return nil
}

// Vector returns the features in the canonical model input order.
func (f FeatureInput) Vector() []float64 {
	return []float64{
		float64(f.Age), float64(f.Sex), float64(f.CP), float64(f.Trestbps),
		float64(f.Chol), float64(f.FBS), float64(f.Restecg), float64(f.Thalach),
		float64(f.Exang), f.Oldpeak, float64(f.Slope), float64(f.CA),
		float64(f.Thal),
	}
}

// Record converts the input into a storable feature row.
func (f FeatureInput) Record(target *int) db.FeatureRecord {
	return db.FeatureRecord{
		Age: f.Age, Sex: f.Sex, CP: f.CP, Trestbps: f.Trestbps,
		Chol: f.Chol, FBS: f.FBS, Restecg: f.Restecg, Thalach: f.Thalach,
		Exang: f.Exang, Oldpeak: f.Oldpeak, Slope: f.Slope, CA: f.CA,
		Thal: f.Thal, Target: target,
	}
}

// PredictionRequest asks one model (or the best available when
// ModelName is empty) for a prediction.
type PredictionRequest struct {
	ModelName string       `json:"model_name,omitempty"`
	Data      FeatureInput `json:"data"`
}

// RecordRequest is one record in a batch prediction.
type RecordRequest struct {
	RecordID string       `json:"record_id"`
	Data     FeatureInput `json:"data"`
}

// BatchPredictionRequest runs one model over many records.
type BatchPredictionRequest struct {
	ModelName string          `json:"model_name"`
	Values    []RecordRequest `json:"values"`
}

// Message wraps an error or warning string.
type Message struct {
	Message string `json:"message"`
}

// RecordResponse carries the outcome for one batch record; Errors is
// set instead of Data when the record failed.
type RecordResponse struct {
	RecordID string         `json:"record_id"`
	Data     *ml.Prediction `json:"data,omitempty"`
	Errors   []Message      `json:"errors,omitempty"`
}

// BatchResponse is the batch prediction result.
type BatchResponse struct {
	Values []RecordResponse `json:"values"`
}

// Metadata describes the API.
type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author"`
	License string `json:"license"`
}

// UserRequest registers a plain user account.
type UserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Category  string `json:"category,omitempty"`
}

// Validate checks email, password and category.
func (u UserRequest) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	if len(u.Password) < 4 || len(u.Password) > 72 {
		return fmt.Errorf("password must be between 4 and 72 characters")
	}
	switch u.Category {
	case "", db.CategoryPatient, db.CategoryPractitioner:
	default:
		return fmt.Errorf("category must be %q or %q", db.CategoryPatient, db.CategoryPractitioner)
	}
	return nil
}

// LoginRequest authenticates a user by email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PatientRequest registers a patient with clinical record fields.
type PatientRequest struct {
	UserRequest
	Age                  int        `json:"age,omitempty"`
	Contact              string     `json:"contact,omitempty"`
	History              string     `json:"history,omitempty"`
	Ailment              string     `json:"ailment,omitempty"`
	LastVisitDiagnosis   *time.Time `json:"last_visit_diagnosis,omitempty"`
	GuardianFullname     string     `json:"guardian_fullname,omitempty"`
	GuardianEmail        string     `json:"guardian_email,omitempty"`
	GuardianPhone        string     `json:"guardian_phone,omitempty"`
	OccurrencesOfIllness string     `json:"occurrences_of_illness,omitempty"`
	LastTreatment        *time.Time `json:"last_treatment,omitempty"`
}

// Validate extends user validation with patient constraints.
func (p PatientRequest) Validate() error {
	if err := p.UserRequest.Validate(); err != nil {
		return err
	}
	if p.Age < 0 || p.Age > 120 {
		return fmt.Errorf("age must be between 0 and 120")
	}
	if p.GuardianEmail != "" {
		if _, err := mail.ParseAddress(p.GuardianEmail); err != nil {
			return fmt.Errorf("invalid guardian email address")
		}
	}
	return nil
}

func (p PatientRequest) record(passwordHash string) db.Patient {
	return db.Patient{
		User: db.User{
			Email:        p.Email,
			PasswordHash: passwordHash,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Category:     db.CategoryPatient,
		},
		Age:                  p.Age,
		Contact:              p.Contact,
		History:              p.History,
		Ailment:              p.Ailment,
		LastVisitDiagnosis:   p.LastVisitDiagnosis,
		GuardianFullname:     p.GuardianFullname,
		GuardianEmail:        p.GuardianEmail,
		GuardianPhone:        p.GuardianPhone,
		OccurrencesOfIllness: p.OccurrencesOfIllness,
		LastTreatment:        p.LastTreatment,
	}
}

// PractitionerRequest registers a medical practitioner.
type PractitionerRequest struct {
	UserRequest
	Specialty     string `json:"specialty,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
}

func (p PractitionerRequest) record(passwordHash string) db.Practitioner {
	return db.Practitioner{
		User: db.User{
			Email:        p.Email,
			PasswordHash: passwordHash,
			FirstName:    p.FirstName,
			LastName:     p.LastName,
			Category:     db.CategoryPractitioner,
		},
		Specialty:     p.Specialty,
		LicenseNumber: p.LicenseNumber,
	}
}

// FeatureCreateRequest stores a feature row, optionally with a
// confirmed diagnosis target.
type FeatureCreateRequest struct {
	Data   FeatureInput `json:"data"`
	Target *int         `json:"target,omitempty"`
}
