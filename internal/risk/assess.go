package risk

import "strings"

// Rule identifies one of the assessment rules.
type Rule int

const (
	RuleHormonalImbalance Rule = iota
	RuleIronOrThyroid
	RuleHighBloodPressure
	RuleCardiacSymptom
	RulePregnancyComplication
	RuleInadequateSleep
)

const (
	highBloodPressure = 140
	minSleepHours     = 6
)

// Assessment is the result of one pass over the rules.
type Assessment struct {
	Level   Level    `json:"riskLevel"`
	Reasons []string `json:"reasons"`

	fired []Rule
}

// Has reports whether the rule matched during the pass.
func (a Assessment) Has(r Rule) bool {
	for _, f := range a.fired {
		if f == r {
			return true
		}
	}
	return false
}

// escalate raises the level to at least l and records the reason. The
// reason is kept even when the level was already at or above l.
func (a *Assessment) escalate(r Rule, l Level, reason string) {
	if l > a.Level {
		a.Level = l
	}
	a.Reasons = append(a.Reasons, reason)
	a.fired = append(a.fired, r)
}

// Assess classifies the snapshot and the recent symptom tokens. Missing or
// malformed fields never match a rule.
func Assess(snapshot Snapshot, symptoms []string) Assessment {
	a := Assessment{Level: Normal, Reasons: []string{}}
	has := symptomSet(symptoms)

	// Period
	if snapshot.Flag("irregularPeriods") || snapshot.Flag("heavyBleeding") {
		a.escalate(RuleHormonalImbalance, BeCareful, "Irregular or heavy periods may indicate hormonal issues")
	}
	if has("hair fall") && has("tiredness") {
		a.escalate(RuleIronOrThyroid, Urgent, "Possible iron deficiency or thyroid issue")
	}

	// Heart
	if bp, ok := snapshot.Number("bpReading"); ok && bp > highBloodPressure {
		a.escalate(RuleHighBloodPressure, Urgent, "High blood pressure requires immediate attention")
	}
	if has("chest pain") || has("breathlessness") {
		a.escalate(RuleCardiacSymptom, Urgent, "Cardiac symptoms detected")
	}

	// Pregnancy
	if has("bleeding") || has("vision blur") || has("less baby movement") {
		a.escalate(RulePregnancyComplication, Urgent, "Pregnancy complications detected")
	}

	// Lifestyle
	if hours, ok := snapshot.Number("sleepHours"); ok && hours < minSleepHours {
		a.escalate(RuleInadequateSleep, BeCareful, "Inadequate sleep may affect health")
	}

	return a
}

func symptomSet(symptoms []string) func(string) bool {
	set := make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}
