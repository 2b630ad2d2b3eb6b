// Package db persists prediction history and training runs in SQLite.
package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	conn *sql.DB
}

type PredictionRecord struct {
	ID            int64     `json:"id"`
	Label         int       `json:"prediction"`
	LabelName     string    `json:"prediction_label"`
	Confidence    float64   `json:"confidence"`
	ProbDisease   float64   `json:"probability_disease"`
	ProbNoDisease float64   `json:"probability_no_disease"`
	LatencyMs     float64   `json:"latency_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type TrainingRun struct {
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	F1         float64   `json:"f1"`
	DataPoints int       `json:"data_points"`
	TrainedAt  time.Time `json:"trained_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    label INTEGER NOT NULL,
    label_name TEXT NOT NULL,
    confidence REAL NOT NULL,
    prob_disease REAL NOT NULL,
    prob_no_disease REAL NOT NULL,
    latency_ms REAL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS training_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_name VARCHAR(50),
    accuracy REAL,
    precision REAL,
    recall REAL,
    f1 REAL,
    data_points INTEGER,
    trained_at DATETIME
);
`

func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) SavePrediction(rec PredictionRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
        INSERT INTO predictions (label, label_name, confidence, prob_disease, prob_no_disease, latency_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Label, rec.LabelName, rec.Confidence, rec.ProbDisease, rec.ProbNoDisease, rec.LatencyMs, createdAt)
	return err
}

// RecentPredictions returns the newest rows first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(`
        SELECT id, label, label_name, confidence, prob_disease, prob_no_disease, latency_ms, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.LabelName, &rec.Confidence,
			&rec.ProbDisease, &rec.ProbNoDisease, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) SaveTrainingRun(run TrainingRun) error {
	trainedAt := run.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
        INSERT INTO training_log (model_name, accuracy, precision, recall, f1, data_points, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ModelName, run.Accuracy, run.Precision, run.Recall, run.F1, run.DataPoints, trainedAt)
	return err
}
