package health

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	SaveRecord(ctx context.Context, userID uuid.UUID, t RecordType, data map[string]any) (*Record, error)
	SaveForm(ctx context.Context, userID uuid.UUID, form Form) (*Record, *SymptomEntry, error)
	Records(ctx context.Context, userID uuid.UUID) ([]Record, error)
	Symptoms(ctx context.Context, userID uuid.UUID) ([]SymptomEntry, error)
	LatestAssessment(ctx context.Context, userID uuid.UUID) (*Record, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Record, []SymptomEntry, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// SaveRecord stores a raw record without deriving symptoms.
func (s *service) SaveRecord(ctx context.Context, userID uuid.UUID, t RecordType, data map[string]any) (*Record, error) {
	if data == nil {
		data = map[string]any{}
	}
	rec := &Record{ID: uuid.New(), UserID: userID, Type: t, Data: data, Timestamp: s.now()}
	if err := s.repo.CreateRecord(ctx, rec, nil); err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveForm stores the form as a record together with the symptom tokens it
// implies. No symptom entry is written when the form reports none.
func (s *service) SaveForm(ctx context.Context, userID uuid.UUID, form Form) (*Record, *SymptomEntry, error) {
	now := s.now()
	rec := &Record{ID: uuid.New(), UserID: userID, Type: form.Type(), Data: form.Data(), Timestamp: now}

	var entry *SymptomEntry
	if tokens, severity := DeriveSymptoms(*rec); len(tokens) > 0 {
		entry = &SymptomEntry{
			ID:        uuid.New(),
			UserID:    userID,
			Category:  rec.Type,
			Symptoms:  tokens,
			Severity:  severity,
			Timestamp: now,
		}
		if notes, ok := rec.Data["notes"].(string); ok {
			entry.Notes = notes
		}
	}

	if err := s.repo.CreateRecord(ctx, rec, entry); err != nil {
		return nil, nil, err
	}
	return rec, entry, nil
}

func (s *service) Records(ctx context.Context, userID uuid.UUID) ([]Record, error) {
	return s.repo.ListRecords(ctx, userID)
}

func (s *service) Symptoms(ctx context.Context, userID uuid.UUID) ([]SymptomEntry, error) {
	return s.repo.ListSymptoms(ctx, userID)
}

// LatestAssessment returns nil without error when none was submitted.
func (s *service) LatestAssessment(ctx context.Context, userID uuid.UUID) (*Record, error) {
	rec, err := s.repo.LatestRecord(ctx, userID, TypeAssessment)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Recent returns the newest records and symptom entries, newest first.
func (s *service) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]Record, []SymptomEntry, error) {
	records, err := s.repo.RecentRecords(ctx, userID, limit)
	if err != nil {
		return nil, nil, err
	}
	symptoms, err := s.repo.RecentSymptoms(ctx, userID, limit)
	if err != nil {
		return nil, nil, err
	}
	return records, symptoms, nil
}
