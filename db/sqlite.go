// Package db persists the prediction log and training history in SQLite.
package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"pcodrisk/ml"
)

var database *sql.DB

// InitDB opens the SQLite database and creates the tables.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        payload TEXT NOT NULL,
        probability REAL NOT NULL,
        risk_label VARCHAR(20) NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        auc REAL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        data_points INTEGER,
        trained_at DATETIME
    );
    `
	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one logged inference request.
type PredictionRecord struct {
	ID          int64     `json:"id"`
	Payload     string    `json:"payload"`
	Probability float64   `json:"probability"`
	RiskLabel   string    `json:"risk_label"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavePrediction appends one inference outcome to the prediction log.
func SavePrediction(payload []byte, probability float64, riskLabel string) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO predictions (payload, probability, risk_label, created_at) VALUES (?, ?, ?, ?)`,
		string(payload), probability, riskLabel, time.Now(),
	)
	return err
}

// QueryPredictions returns the most recent logged predictions.
func QueryPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(
		`SELECT id, payload, probability, risk_label, created_at FROM predictions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Payload, &rec.Probability, &rec.RiskLabel, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveTrainingRun records one training run and its held-out metrics.
func SaveTrainingRun(modelName string, metrics ml.Metrics, dataPoints int) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(
		`INSERT INTO training_log (model_name, auc, accuracy, precision, recall, f1, data_points, trained_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		modelName, metrics.AUC, metrics.Accuracy, metrics.Precision, metrics.Recall, metrics.F1, dataPoints, time.Now(),
	)
	return err
}
