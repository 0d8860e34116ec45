package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hercure/internal/health"
	"hercure/internal/risk"
	"hercure/internal/user"
)

const disclaimer = "This AI does not replace a doctor."

type Section struct {
	Title string
	Lines []string
}

// Summary is the text content of one health report.
type Summary struct {
	Title       string
	GeneratedAt time.Time
	Sections    []Section
}

// BuildSummary lays out the profile, the current assessment and the recent
// history. Records and entries are expected newest first.
func BuildSummary(u *user.User, records []health.Record, entries []health.SymptomEntry, a risk.Assessment, now time.Time) Summary {
	s := Summary{Title: "HerCure Health Summary", GeneratedAt: now}

	profile := Section{Title: "Patient"}
	if u != nil {
		profile.Lines = append(profile.Lines, "Name: "+orDash(u.Name), "Email: "+orDash(u.Email))
		if u.Age != nil {
			profile.Lines = append(profile.Lines, fmt.Sprintf("Age: %d", *u.Age))
		}
		profile.Lines = append(profile.Lines,
			"Pregnancy status: "+orDash(string(u.PregnancyStatus)),
			"Known conditions: "+orDash(strings.Join(u.KnownConditions, ", ")),
		)
	}
	s.Sections = append(s.Sections, profile)

	assessment := Section{Title: "Risk assessment", Lines: []string{"Risk level: " + a.Level.String()}}
	for _, r := range a.Reasons {
		assessment.Lines = append(assessment.Lines, "- "+r)
	}
	s.Sections = append(s.Sections, assessment)

	symptoms := Section{Title: "Recent symptoms"}
	for _, e := range entries {
		symptoms.Lines = append(symptoms.Lines, fmt.Sprintf("%s [%s, %s] %s",
			e.Timestamp.Format("02.01.2006"), e.Category, e.Severity, strings.Join(e.Symptoms, ", ")))
	}
	if len(symptoms.Lines) == 0 {
		symptoms.Lines = []string{"No symptoms reported."}
	}
	s.Sections = append(s.Sections, symptoms)

	history := Section{Title: "Recent records"}
	for _, r := range records {
		history.Lines = append(history.Lines, fmt.Sprintf("%s %s: %s",
			r.Timestamp.Format("02.01.2006"), r.Type, formatData(r.Data)))
	}
	if len(history.Lines) == 0 {
		history.Lines = []string{"No records yet."}
	}
	s.Sections = append(s.Sections, history)

	s.Sections = append(s.Sections, Section{Lines: []string{disclaimer}})
	return s
}

// formatData prints the reported fields in key order, skipping empty ones.
func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		if v == nil || v == "" || v == false {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
