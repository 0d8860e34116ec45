package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PregnancyStatus string

const (
	NotPregnant       PregnancyStatus = "Not pregnant"
	Pregnant          PregnancyStatus = "Pregnant"
	RecentlyDelivered PregnancyStatus = "Recently delivered"
	Menopause         PregnancyStatus = "Menopause"
)

func ParsePregnancyStatus(s string) (PregnancyStatus, error) {
	switch p := PregnancyStatus(s); p {
	case NotPregnant, Pregnant, RecentlyDelivered, Menopause:
		return p, nil
	}
	return "", fmt.Errorf("unknown pregnancy status %q", s)
}

type User struct {
	ID              uuid.UUID       `json:"id"`
	Email           string          `json:"email"`
	Name            string          `json:"name"`
	Age             *int            `json:"age,omitempty"`
	Location        string          `json:"location"`
	PregnancyStatus PregnancyStatus `json:"pregnancyStatus"`
	KnownConditions []string        `json:"knownConditions"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsPregnant is used by the scheduled reminders to pick their audience.
func (u User) IsPregnant() bool {
	return u.PregnancyStatus == Pregnant
}

// Profile holds the fields a user may change. Nil fields are left as is.
type Profile struct {
	Name            *string  `json:"name"`
	Age             *int     `json:"age"`
	Location        *string  `json:"location"`
	PregnancyStatus *string  `json:"pregnancyStatus"`
	KnownConditions []string `json:"knownConditions"`
}

// Apply validates the profile and copies the set fields onto u.
func (p Profile) Apply(u *User) error {
	if p.Age != nil && (*p.Age < 0 || *p.Age > 120) {
		return fmt.Errorf("age %d is out of range", *p.Age)
	}
	if p.PregnancyStatus != nil {
		status, err := ParsePregnancyStatus(*p.PregnancyStatus)
		if err != nil {
			return err
		}
		u.PregnancyStatus = status
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		age := *p.Age
		u.Age = &age
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.KnownConditions != nil {
		u.KnownConditions = append([]string{}, p.KnownConditions...)
	}
	return nil
}
