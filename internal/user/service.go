package user

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Service interface {
	Ensure(ctx context.Context, id uuid.UUID, email string) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*User, error)
}

type service struct {
	repo Repository

	// ids known to have a row
	known sync.Map
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Ensure creates the user row on first sight of an authenticated user, so
// rows that reference users can be written right away.
func (s *service) Ensure(ctx context.Context, id uuid.UUID, email string) error {
	if _, ok := s.known.Load(id); ok {
		return nil
	}
	if err := s.repo.Ensure(ctx, id, email); err != nil {
		return err
	}
	s.known.Store(id, struct{}{})
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(u); err != nil {
		return nil, &InvalidProfileError{Err: err}
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

type InvalidProfileError struct {
	Err error
}

func (e *InvalidProfileError) Error() string { return e.Err.Error() }
func (e *InvalidProfileError) Unwrap() error { return e.Err }
