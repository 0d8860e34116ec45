package health

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"hercure/internal/risk"
)

type RecordType string

const (
	TypePeriod     RecordType = "Period"
	TypeHeart      RecordType = "Heart"
	TypePregnancy  RecordType = "Pregnancy"
	TypeLifestyle  RecordType = "Lifestyle"
	TypeAssessment RecordType = "Assessment"
)

func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(s); t {
	case TypePeriod, TypeHeart, TypePregnancy, TypeLifestyle, TypeAssessment:
		return t, nil
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// Record is one submitted health form. Data keeps the form fields as
// reported, keyed by their JSON names.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      RecordType     `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// SymptomEntry groups the symptom tokens derived from one submission.
type SymptomEntry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Category  RecordType `json:"category"`
	Symptoms  []string   `json:"symptoms"`
	Severity  Severity   `json:"severity"`
	Notes     string     `json:"notes,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Snapshot merges records ordered newest first into the latest value of
// every reported field.
func Snapshot(records []Record) risk.Snapshot {
	data := make([]map[string]any, 0, len(records))
	for _, r := range records {
		data = append(data, r.Data)
	}
	return risk.MergeSnapshot(data...)
}

// Flatten concatenates the tokens of all entries. Duplicates are kept.
func Flatten(entries []SymptomEntry) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Symptoms...)
	}
	return out
}

// DeriveSymptoms maps the boolean form fields of a record to symptom tokens
// and grades their severity. Records without symptom fields yield no tokens.
func DeriveSymptoms(r Record) ([]string, Severity) {
	data := risk.Snapshot(r.Data)
	var tokens []string
	flag := func(field, token string) {
		if data.Flag(field) {
			tokens = append(tokens, token)
		}
	}

	switch r.Type {
	case TypePeriod:
		flag("hairFall", "hair fall")
		flag("acne", "acne")
		flag("weightGain", "weight gain")
		if s, _ := data["painLevel"].(string); s == string(SeveritySevere) {
			return tokens, SeveritySevere
		}
		return tokens, SeverityMild
	case TypeHeart:
		flag("chestPain", "chest pain")
		flag("breathlessness", "breathlessness")
		flag("dizziness", "dizziness")
		if bp, ok := data.Number("bpReading"); ok && bp > 140 {
			return tokens, SeveritySevere
		}
		return tokens, SeverityModerate
	case TypePregnancy:
		flag("headache", "headache")
		flag("visionBlur", "vision blur")
		flag("lessMovement", "less baby movement")
		flag("bleeding", "bleeding")
		flag("breastPain", "breast pain")
		flag("moodIssues", "mood issues")
		if data.Flag("bleeding") || data.Flag("visionBlur") {
			return tokens, SeveritySevere
		}
		return tokens, SeverityModerate
	case TypeLifestyle:
		return stringList(data["symptoms"]), SeverityModerate
	}
	return nil, SeverityMild
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
