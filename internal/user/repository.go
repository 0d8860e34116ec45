package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	// Ensure inserts a bare user row unless one exists.
	Ensure(ctx context.Context, id uuid.UUID, email string) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const selectUser = `SELECT id, COALESCE(email, ''), name, age, location, pregnancy_status, known_conditions, created_at FROM users`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	var age sql.NullInt64
	var status string
	var conditions []string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &age, &u.Location, &status, pq.Array(&conditions), &u.CreatedAt); err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		u.Age = &v
	}
	u.PregnancyStatus = PregnancyStatus(status)
	u.KnownConditions = conditions
	if u.KnownConditions == nil {
		u.KnownConditions = []string{}
	}
	return &u, nil
}

func (r *postgresRepo) Ensure(ctx context.Context, id uuid.UUID, email string) error {
	var mail any
	if email != "" {
		mail = email
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, mail)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, selectUser+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *postgresRepo) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, u *User) error {
	var age any
	if u.Age != nil {
		age = *u.Age
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, age = $3, location = $4, pregnancy_status = $5, known_conditions = $6
		WHERE id = $1`,
		u.ID, u.Name, age, u.Location, string(u.PregnancyStatus), pq.Array(u.KnownConditions))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
