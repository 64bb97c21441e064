package db

import (
	"database/sql"
	"errors"
	"time"
)

// FeatureRecord is one stored clinical feature row; Target is nil until
// a diagnosis is confirmed.
type FeatureRecord struct {
	ID        int64     `json:"id"`
	Age       int       `json:"age"`
	Sex       int       `json:"sex"`
	CP        int       `json:"cp"`
	Trestbps  int       `json:"trestbps"`
	Chol      int       `json:"chol"`
	FBS       int       `json:"fbs"`
	Restecg   int       `json:"restecg"`
	Thalach   int       `json:"thalach"`
	Exang     int       `json:"exang"`
	Oldpeak   float64   `json:"oldpeak"`
	Slope     int       `json:"slope"`
	CA        int       `json:"ca"`
	Thal      int       `json:"thal"`
	Target    *int      `json:"target,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AddFeatures stores one feature row and returns its id.
func AddFeatures(record FeatureRecord) (int64, error) {
	if err := ready(); err != nil {
		return 0, err
	}
	result, err := database.Exec(`
        INSERT INTO features (
            age, sex, cp, trestbps, chol, fbs, restecg,
            thalach, exang, oldpeak, slope, ca, thal, target
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Age, record.Sex, record.CP, record.Trestbps, record.Chol,
		record.FBS, record.Restecg, record.Thalach, record.Exang,
		record.Oldpeak, record.Slope, record.CA, record.Thal, record.Target)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const featureSelect = `
    SELECT id, age, sex, cp, trestbps, chol, fbs, restecg,
           thalach, exang, oldpeak, slope, ca, thal, target, created_at
    FROM features`

func scanFeatures(scanner interface{ Scan(...interface{}) error }) (FeatureRecord, error) {
	var record FeatureRecord
	var target sql.NullInt64
	err := scanner.Scan(&record.ID, &record.Age, &record.Sex, &record.CP,
		&record.Trestbps, &record.Chol, &record.FBS, &record.Restecg,
		&record.Thalach, &record.Exang, &record.Oldpeak, &record.Slope,
		&record.CA, &record.Thal, &target, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return FeatureRecord{}, ErrNotFound
	}
	if err != nil {
		return FeatureRecord{}, err
	}
	if target.Valid {
		value := int(target.Int64)
		record.Target = &value
	}
	return record, nil
}

// GetFeatures looks a feature row up by id.
func GetFeatures(id int64) (FeatureRecord, error) {
	if err := ready(); err != nil {
		return FeatureRecord{}, err
	}
	return scanFeatures(database.QueryRow(featureSelect+` WHERE id = ?`, id))
}

// ListFeatures returns the most recent feature rows, up to limit.
func ListFeatures(limit int) ([]FeatureRecord, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(featureSelect+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]FeatureRecord, 0)
	for rows.Next() {
		record, err := scanFeatures(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// SavePrediction records a served prediction.
func SavePrediction(modelName string, label int, confidence float64) error {
	if err := ready(); err != nil {
		return err
	}
	_, err := database.Exec(`
        INSERT INTO predictions (model_name, predicted_label, confidence)
        VALUES (?, ?, ?)`,
		modelName, label, confidence)
	return err
}

// TrainingLog is one row of training history.
type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

// AddTrainingLog appends a training history row.
func AddTrainingLog(entry TrainingLog) error {
	if err := ready(); err != nil {
		return err
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO training_log (
            model_name, accuracy, precision, recall, trained_at, data_points
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.Accuracy, entry.Precision, entry.Recall,
		entry.TrainedAt, entry.DataPoints)
	return err
}

// LoadTrainingLog returns training history, most recent first.
func LoadTrainingLog() ([]TrainingLog, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	rows, err := database.Query(`
        SELECT model_name, accuracy, precision, recall, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var entry TrainingLog
		if err := rows.Scan(&entry.ModelName, &entry.Accuracy, &entry.Precision,
			&entry.Recall, &entry.TrainedAt, &entry.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
