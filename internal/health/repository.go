package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("health record not found")

type Repository interface {
	// CreateRecord stores the record and, when entry is not nil, its symptom
	// entry in the same transaction.
	CreateRecord(ctx context.Context, rec *Record, entry *SymptomEntry) error
	ListRecords(ctx context.Context, userID uuid.UUID) ([]Record, error)
	RecentRecords(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error)
	RecordsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Record, error)
	LatestRecord(ctx context.Context, userID uuid.UUID, t RecordType) (*Record, error)
	ListSymptoms(ctx context.Context, userID uuid.UUID) ([]SymptomEntry, error)
	RecentSymptoms(ctx context.Context, userID uuid.UUID, limit int) ([]SymptomEntry, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) CreateRecord(ctx context.Context, rec *Record, entry *SymptomEntry) error {
	dataJSON, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO health_records (id, user_id, type, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.UserID, rec.Type, dataJSON, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	if entry != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO symptoms (id, user_id, category, symptoms, severity, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.UserID, entry.Category, pq.Array(entry.Symptoms), entry.Severity, entry.Notes, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert symptoms: %w", err)
		}
	}

	return tx.Commit()
}

const recordColumns = `id, user_id, type, data, created_at`

func (r *postgresRepo) ListRecords(ctx context.Context, userID uuid.UUID) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) RecentRecords(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

func (r *postgresRepo) RecordsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at DESC`, userID, since)
}

func (r *postgresRepo) LatestRecord(ctx context.Context, userID uuid.UUID, t RecordType) (*Record, error) {
	records, err := r.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM health_records WHERE user_id = $1 AND type = $2 ORDER BY created_at DESC LIMIT 1`, userID, t)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

func (r *postgresRepo) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var dataJSON []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &dataJSON, &rec.Timestamp); err != nil {
			return nil, err
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &rec.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const symptomColumns = `id, user_id, category, symptoms, severity, notes, created_at`

func (r *postgresRepo) ListSymptoms(ctx context.Context, userID uuid.UUID) ([]SymptomEntry, error) {
	return r.querySymptoms(ctx,
		`SELECT `+symptomColumns+` FROM symptoms WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) RecentSymptoms(ctx context.Context, userID uuid.UUID, limit int) ([]SymptomEntry, error) {
	return r.querySymptoms(ctx,
		`SELECT `+symptomColumns+` FROM symptoms WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

func (r *postgresRepo) querySymptoms(ctx context.Context, query string, args ...any) ([]SymptomEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []SymptomEntry{}
	for rows.Next() {
		var e SymptomEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Category, pq.Array(&e.Symptoms), &e.Severity, &e.Notes, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
