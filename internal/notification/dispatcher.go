package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hercure/internal/user"
)

type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CareTeam is the chat the clinicians watch.
type CareTeam interface {
	SendMessage(text string) error
}

const urgentSubject = "Urgent Health Alert"

// Dispatcher stores notifications and fans urgent ones out to email and the
// care team. Mailer and CareTeam may be nil.
type Dispatcher struct {
	repo     Repository
	users    UserDirectory
	mailer   Mailer
	careTeam CareTeam
	now      func() time.Time
}

func NewDispatcher(repo Repository, users UserDirectory, mailer Mailer, careTeam CareTeam) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		users:    users,
		mailer:   mailer,
		careTeam: careTeam,
		now:      time.Now,
	}
}

// Send persists the notification. Delivery failures of urgent alerts are
// logged and do not fail the call.
func (d *Dispatcher) Send(ctx context.Context, userID uuid.UUID, t Type, p Priority, message string) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      t,
		Priority:  p,
		Message:   message,
		Timestamp: d.now().UTC(),
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if p == PriorityUrgent {
		d.deliverUrgent(ctx, n)
	}
	return n, nil
}

func (d *Dispatcher) deliverUrgent(ctx context.Context, n *Notification) {
	if d.mailer != nil {
		u, err := d.users.Get(ctx, n.UserID)
		switch {
		case err != nil:
			log.Printf("urgent alert %s: load user %s: %v", n.ID, n.UserID, err)
		case u.Email == "":
			log.Printf("urgent alert %s: user %s has no email", n.ID, n.UserID)
		default:
			if err := d.mailer.Send(ctx, u.Email, urgentSubject, n.Message); err != nil {
				log.Printf("urgent alert %s: email: %v", n.ID, err)
			}
		}
	}
	if d.careTeam != nil {
		text := fmt.Sprintf("%s\nUser: %s\n%s", urgentSubject, n.UserID, n.Message)
		if err := d.careTeam.SendMessage(text); err != nil {
			log.Printf("urgent alert %s: care team: %v", n.ID, err)
		}
	}
}
