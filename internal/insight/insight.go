package insight

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hercure/internal/risk"
)

// Insight is the audit record of one assistant interaction. It is never read
// back by the assistant.
type Insight struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Input     string     `json:"input"`
	Response  string     `json:"response"`
	RiskLevel risk.Level `json:"risk_level"`
	Timestamp time.Time  `json:"timestamp"`
}

// Repository writes insights inside the caller's transaction, so the audit
// record commits or rolls back with the exchange it describes.
type Repository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, in *Insight) error
}

type postgresRepo struct{}

func NewRepository() Repository {
	return postgresRepo{}
}

func (postgresRepo) CreateTx(ctx context.Context, tx *sql.Tx, in *Insight) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	query := `
		INSERT INTO insights (id, user_id, input, response, risk_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		in.ID, in.UserID, in.Input, in.Response, in.RiskLevel.String(), in.Timestamp)
	return err
}
