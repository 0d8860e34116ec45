package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrAlreadyExists = errors.New("conversation already exists")
	// ErrConflict means the stored document moved past the version that
	// was read.
	ErrConflict = errors.New("conversation changed concurrently")
)

// TxFunc adds writes to the transaction that saves a conversation. tx is nil
// for stores without transactions.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

type Repository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*State, error)
	Create(ctx context.Context, s *State) error
	Save(ctx context.Context, s *State, also ...TxFunc) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*State, error) {
	query := `SELECT user_id, messages, last_updated, version FROM conversations WHERE user_id = $1`

	var s State
	var messagesJSON []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &messagesJSON, &s.LastUpdated, &s.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(messagesJSON) > 0 {
		if err := json.Unmarshal(messagesJSON, &s.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
	}
	return &s, nil
}

func (r *postgresRepo) Create(ctx context.Context, s *State) error {
	messagesJSON, err := marshalMessages(s.Messages)
	if err != nil {
		return err
	}

	query := `INSERT INTO conversations (user_id, messages, last_updated, version) VALUES ($1, $2, $3, $4)`
	_, err = r.db.ExecContext(ctx, query, s.UserID, messagesJSON, s.LastUpdated, s.Version)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

// Save overwrites the whole document if it is still at s.Version, then runs
// also in the same transaction. A moved document yields ErrConflict and
// nothing is written.
func (r *postgresRepo) Save(ctx context.Context, s *State, also ...TxFunc) error {
	messagesJSON, err := marshalMessages(s.Messages)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE conversations SET
			messages = $2,
			last_updated = $3,
			version = version + 1
		WHERE user_id = $1 AND version = $4
	`
	res, err := tx.ExecContext(ctx, query, s.UserID, messagesJSON, s.LastUpdated, s.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}

	for _, fn := range also {
		if err := fn(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}
	s.Version++
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = $1`, userID)
	return err
}

func marshalMessages(messages []Turn) ([]byte, error) {
	if messages == nil {
		messages = []Turn{}
	}
	return json.Marshal(messages)
}
