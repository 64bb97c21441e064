// Package db provides SQLite persistence for users, patients,
// practitioners, clinical feature records and training history.
package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

var database *sql.DB

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// User categories.
const (
	CategoryPatient      = "patient"
	CategoryPractitioner = "practitioner"
)

// InitDB opens the SQLite database and creates the schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        first_name TEXT,
        last_name TEXT,
        category TEXT NOT NULL DEFAULT 'patient',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS patients (
        user_id INTEGER PRIMARY KEY REFERENCES users(id),
        age INTEGER,
        contact TEXT,
        history TEXT,
        ailment TEXT,
        last_visit_diagnosis DATETIME,
        guardian_fullname TEXT,
        guardian_email TEXT,
        guardian_phone TEXT,
        occurrences_of_illness TEXT,
        last_treatment DATETIME
    );
    CREATE TABLE IF NOT EXISTS practitioners (
        user_id INTEGER PRIMARY KEY REFERENCES users(id),
        specialty TEXT,
        license_number TEXT
    );
    CREATE TABLE IF NOT EXISTS features (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        age INTEGER NOT NULL,
        sex INTEGER NOT NULL,
        cp INTEGER NOT NULL,
        trestbps INTEGER NOT NULL,
        chol INTEGER NOT NULL,
        fbs INTEGER NOT NULL,
        restecg INTEGER NOT NULL,
        thalach INTEGER NOT NULL,
        exang INTEGER NOT NULL,
        oldpeak REAL NOT NULL,
        slope INTEGER NOT NULL,
        ca INTEGER NOT NULL,
        thal INTEGER NOT NULL,
        target INTEGER,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name TEXT NOT NULL,
        predicted_label INTEGER NOT NULL,
        confidence REAL NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name TEXT NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        trained_at DATETIME NOT NULL,
        data_points INTEGER
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close closes the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	return database.Close()
}

func ready() error {
	if database == nil {
		return errors.New("database not initialized")
	}
	return nil
}

func translateErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrDuplicateEmail
	}
	return err
}

// User is an account row; Category is patient or practitioner.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

// Patient extends a user with clinical record fields.
type Patient struct {
	User
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

// Practitioner extends a user with professional fields.
type Practitioner struct {
	User
	Specialty     string `json:"specialty,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
}

// AddUser inserts a user row and returns its id.
func AddUser(user User) (int64, error) {
	if err := ready(); err != nil {
		return 0, err
	}
	if user.Category == "" {
		user.Category = CategoryPatient
	}
	result, err := database.Exec(`
        INSERT INTO users (email, password_hash, first_name, last_name, category)
        VALUES (?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Category)
	if err != nil {
		return 0, translateErr(err)
	}
	return result.LastInsertId()
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Category, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// GetUser looks a user up by id.
func GetUser(id int64) (User, error) {
	if err := ready(); err != nil {
		return User{}, err
	}
	return scanUser(database.QueryRow(`
        SELECT id, email, password_hash,
               COALESCE(first_name, ''), COALESCE(last_name, ''),
               category, created_at
        FROM users WHERE id = ?`, id))
}

// GetUserByEmail looks a user up by email.
func GetUserByEmail(email string) (User, error) {
	if err := ready(); err != nil {
		return User{}, err
	}
	return scanUser(database.QueryRow(`
        SELECT id, email, password_hash,
               COALESCE(first_name, ''), COALESCE(last_name, ''),
               category, created_at
        FROM users WHERE email = ?`, email))
}

// DeleteUser removes a user and any patient/practitioner extension.
func DeleteUser(id int64) error {
	if err := ready(); err != nil {
		return err
	}
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM patients WHERE user_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM practitioners WHERE user_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	result, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

// AddPatient inserts the user row and its patient extension in one
// transaction.
func AddPatient(patient Patient) (int64, error) {
	if err := ready(); err != nil {
		return 0, err
	}
	tx, err := database.Begin()
	if err != nil {
		return 0, err
	}
	result, err := tx.Exec(`
        INSERT INTO users (email, password_hash, first_name, last_name, category)
        VALUES (?, ?, ?, ?, ?)`,
		patient.Email, patient.PasswordHash, patient.FirstName,
		patient.LastName, CategoryPatient)
	if err != nil {
		tx.Rollback()
		return 0, translateErr(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	_, err = tx.Exec(`
        INSERT INTO patients (
            user_id, age, contact, history, ailment, last_visit_diagnosis,
            guardian_fullname, guardian_email, guardian_phone,
            occurrences_of_illness, last_treatment
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, patient.Age, patient.Contact, patient.History, patient.Ailment,
		patient.LastVisitDiagnosis, patient.GuardianFullname,
		patient.GuardianEmail, patient.GuardianPhone,
		patient.OccurrencesOfIllness, patient.LastTreatment)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const patientSelect = `
    SELECT u.id, u.email, u.password_hash,
           COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
           u.category, u.created_at,
           COALESCE(p.age, 0), COALESCE(p.contact, ''),
           COALESCE(p.history, ''), COALESCE(p.ailment, ''),
           p.last_visit_diagnosis,
           COALESCE(p.guardian_fullname, ''), COALESCE(p.guardian_email, ''),
           COALESCE(p.guardian_phone, ''), COALESCE(p.occurrences_of_illness, ''),
           p.last_treatment
    FROM users u JOIN patients p ON p.user_id = u.id`

func scanPatient(scanner interface{ Scan(...interface{}) error }) (Patient, error) {
	var patient Patient
	var lastVisit, lastTreatment sql.NullTime
	err := scanner.Scan(&patient.ID, &patient.Email, &patient.PasswordHash,
		&patient.FirstName, &patient.LastName, &patient.Category, &patient.CreatedAt,
		&patient.Age, &patient.Contact, &patient.History, &patient.Ailment,
		&lastVisit, &patient.GuardianFullname, &patient.GuardianEmail,
		&patient.GuardianPhone, &patient.OccurrencesOfIllness, &lastTreatment)
	if errors.Is(err, sql.ErrNoRows) {
		return Patient{}, ErrNotFound
	}
	if err != nil {
		return Patient{}, err
	}
	if lastVisit.Valid {
		patient.LastVisitDiagnosis = &lastVisit.Time
	}
	if lastTreatment.Valid {
		patient.LastTreatment = &lastTreatment.Time
	}
	return patient, nil
}

// GetPatient looks a patient up by user id.
func GetPatient(id int64) (Patient, error) {
	if err := ready(); err != nil {
		return Patient{}, err
	}
	return scanPatient(database.QueryRow(patientSelect+` WHERE u.id = ?`, id))
}

// ListPatients returns patients ordered by id, up to limit rows.
func ListPatients(limit int) ([]Patient, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(patientSelect+` ORDER BY u.id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]Patient, 0)
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, patient)
	}
	return patients, rows.Err()
}

// UpdatePatient updates the mutable patient fields.
func UpdatePatient(id int64, patient Patient) error {
	if err := ready(); err != nil {
		return err
	}
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
        UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`,
		patient.FirstName, patient.LastName, id); err != nil {
		tx.Rollback()
		return err
	}
	result, err := tx.Exec(`
        UPDATE patients SET age = ?, contact = ?, history = ?, ailment = ?,
            last_visit_diagnosis = ?, guardian_fullname = ?, guardian_email = ?,
            guardian_phone = ?, occurrences_of_illness = ?, last_treatment = ?
        WHERE user_id = ?`,
		patient.Age, patient.Contact, patient.History, patient.Ailment,
		patient.LastVisitDiagnosis, patient.GuardianFullname,
		patient.GuardianEmail, patient.GuardianPhone,
		patient.OccurrencesOfIllness, patient.LastTreatment, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

// AddPractitioner inserts the user row and its practitioner extension.
func AddPractitioner(practitioner Practitioner) (int64, error) {
	if err := ready(); err != nil {
		return 0, err
	}
	tx, err := database.Begin()
	if err != nil {
		return 0, err
	}
	result, err := tx.Exec(`
        INSERT INTO users (email, password_hash, first_name, last_name, category)
        VALUES (?, ?, ?, ?, ?)`,
		practitioner.Email, practitioner.PasswordHash, practitioner.FirstName,
		practitioner.LastName, CategoryPractitioner)
	if err != nil {
		tx.Rollback()
		return 0, translateErr(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if _, err := tx.Exec(`
        INSERT INTO practitioners (user_id, specialty, license_number)
        VALUES (?, ?, ?)`,
		id, practitioner.Specialty, practitioner.LicenseNumber); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetPractitioner looks a practitioner up by user id.
func GetPractitioner(id int64) (Practitioner, error) {
	if err := ready(); err != nil {
		return Practitioner{}, err
	}
	var practitioner Practitioner
	err := database.QueryRow(`
        SELECT u.id, u.email, u.password_hash,
               COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
               u.category, u.created_at,
               COALESCE(pr.specialty, ''), COALESCE(pr.license_number, '')
        FROM users u JOIN practitioners pr ON pr.user_id = u.id
        WHERE u.id = ?`, id).Scan(
		&practitioner.ID, &practitioner.Email, &practitioner.PasswordHash,
		&practitioner.FirstName, &practitioner.LastName,
		&practitioner.Category, &practitioner.CreatedAt,
		&practitioner.Specialty, &practitioner.LicenseNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return Practitioner{}, ErrNotFound
	}
	return practitioner, err
}
