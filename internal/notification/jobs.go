package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hercure/internal/health"
	"hercure/internal/risk"
	"hercure/internal/user"
)

// RecordSource is the read side of the health store used by the jobs.
type RecordSource interface {
	LatestRecord(ctx context.Context, userID uuid.UUID, t health.RecordType) (*health.Record, error)
	RecordsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]health.Record, error)
}

type Notifier interface {
	Send(ctx context.Context, userID uuid.UUID, t Type, p Priority, message string) (*Notification, error)
}

const (
	msgWater          = "Drink plenty of water today!"
	msgWalk           = "Take a short walk for better health."
	msgMissedPeriod   = "Missed period? Please check and consult if needed."
	msgExpectedPeriod = "Expected period date today. Track your symptoms."
	msgVitamins       = "Remember to take prenatal vitamins."
	msgMovements      = "Monitor baby movements and visit doctor regularly."
	msgHighBP         = "High blood pressure detected. Consult doctor immediately."
	msgPregnancyAlert = "Urgent pregnancy symptom detected. Seek medical help now!"

	missedPeriodDays   = 35
	expectedPeriodDays = 28
	alertWindow        = 7 * 24 * time.Hour
	summaryWindow      = 30 * 24 * time.Hour
)

const day = 24 * time.Hour

// Jobs holds the scheduled notification routines. A failure for one user is
// collected and the run moves on to the next user.
type Jobs struct {
	users   UserDirectory
	records RecordSource
	notify  Notifier
	now     func() time.Time
}

func NewJobs(users UserDirectory, records RecordSource, notify Notifier) *Jobs {
	return &Jobs{users: users, records: records, notify: notify, now: time.Now}
}

func (j *Jobs) forEachUser(ctx context.Context, keep func(user.User) bool, fn func(user.User) error) error {
	users, err := j.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	var errs []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if keep != nil && !keep(u) {
			continue
		}
		if err := fn(u); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", u.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (j *Jobs) send(ctx context.Context, userID uuid.UUID, t Type, p Priority, messages ...string) error {
	for _, m := range messages {
		if _, err := j.notify.Send(ctx, userID, t, p, m); err != nil {
			return err
		}
	}
	return nil
}

func (j *Jobs) DailyReminders(ctx context.Context) error {
	return j.forEachUser(ctx, nil, func(u user.User) error {
		return j.send(ctx, u.ID, TypeReminder, PriorityNormal, msgWater, msgWalk)
	})
}

// PeriodTracking checks the latest period record of every user who is not
// pregnant.
func (j *Jobs) PeriodTracking(ctx context.Context) error {
	notPregnant := func(u user.User) bool { return !u.IsPregnant() }
	return j.forEachUser(ctx, notPregnant, func(u user.User) error {
		rec, err := j.records.LatestRecord(ctx, u.ID, health.TypePeriod)
		if errors.Is(err, health.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		days, ok := daysSince(rec.Data["lastPeriodDate"], j.now())
		if !ok {
			return nil
		}
		switch {
		case days > missedPeriodDays:
			return j.send(ctx, u.ID, TypeAlert, PriorityWarning, msgMissedPeriod)
		case days == expectedPeriodDays:
			return j.send(ctx, u.ID, TypeReminder, PriorityNormal, msgExpectedPeriod)
		}
		return nil
	})
}

func (j *Jobs) PregnancyReminders(ctx context.Context) error {
	pregnant := func(u user.User) bool { return u.IsPregnant() }
	return j.forEachUser(ctx, pregnant, func(u user.User) error {
		return j.send(ctx, u.ID, TypeReminder, PriorityNormal, msgVitamins, msgMovements)
	})
}

// HealthAlerts runs every record of the last week through the risk rules
// and raises at most one alert of each kind per user.
func (j *Jobs) HealthAlerts(ctx context.Context) error {
	return j.forEachUser(ctx, nil, func(u user.User) error {
		records, err := j.records.RecordsSince(ctx, u.ID, j.now().Add(-alertWindow))
		if err != nil {
			return err
		}
		var highBP, pregnancy bool
		for _, rec := range records {
			symptoms, _ := health.DeriveSymptoms(rec)
			a := risk.Assess(risk.Snapshot(rec.Data), symptoms)
			highBP = highBP || (rec.Type == health.TypeHeart && a.Has(risk.RuleHighBloodPressure))
			pregnancy = pregnancy || (rec.Type == health.TypePregnancy && a.Has(risk.RulePregnancyComplication))
		}
		if highBP {
			if err := j.send(ctx, u.ID, TypeAlert, PriorityUrgent, msgHighBP); err != nil {
				return err
			}
		}
		if pregnancy {
			return j.send(ctx, u.ID, TypeAlert, PriorityUrgent, msgPregnancyAlert)
		}
		return nil
	})
}

func (j *Jobs) MonthlySummary(ctx context.Context) error {
	return j.forEachUser(ctx, nil, func(u user.User) error {
		records, err := j.records.RecordsSince(ctx, u.ID, j.now().Add(-summaryWindow))
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Monthly Summary: %d health entries recorded. Keep tracking!", len(records))
		return j.send(ctx, u.ID, TypeSummary, PriorityNormal, msg)
	})
}

// daysSince counts whole days between the reported date and now. Dates are
// accepted as YYYY-MM-DD or RFC 3339.
func daysSince(v any, now time.Time) (int, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return 0, false
		}
	}
	return int(now.Sub(t) / day), true
}
