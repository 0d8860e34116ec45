package health

// Form is a typed health questionnaire that becomes one Record.
type Form interface {
	Type() RecordType
	Data() map[string]any
}

type PeriodForm struct {
	LastPeriodDate string `json:"lastPeriodDate"`
	Regular        *bool  `json:"regular"`
	PainLevel      string `json:"painLevel"`
	HeavyBleeding  bool   `json:"heavyBleeding"`
	MoodChanges    bool   `json:"moodChanges"`
	Acne           bool   `json:"acne"`
	HairFall       bool   `json:"hairFall"`
	WeightGain     bool   `json:"weightGain"`
}

func (PeriodForm) Type() RecordType { return TypePeriod }

func (f PeriodForm) Data() map[string]any {
	data := map[string]any{
		"lastPeriodDate": f.LastPeriodDate,
		"painLevel":      f.PainLevel,
		"heavyBleeding":  f.HeavyBleeding,
		"moodChanges":    f.MoodChanges,
		"acne":           f.Acne,
		"hairFall":       f.HairFall,
		"weightGain":     f.WeightGain,
	}
	if f.Regular != nil {
		data["regular"] = *f.Regular
		data["irregularPeriods"] = !*f.Regular
	}
	return data
}

type HeartForm struct {
	BPReading      *float64 `json:"bpReading"`
	ChestPain      bool     `json:"chestPain"`
	Breathlessness bool     `json:"breathlessness"`
	Dizziness      bool     `json:"dizziness"`
	StressLevel    string   `json:"stressLevel"`
}

func (HeartForm) Type() RecordType { return TypeHeart }

func (f HeartForm) Data() map[string]any {
	data := map[string]any{
		"chestPain":      f.ChestPain,
		"breathlessness": f.Breathlessness,
		"dizziness":      f.Dizziness,
		"stressLevel":    f.StressLevel,
	}
	if f.BPReading != nil {
		data["bpReading"] = *f.BPReading
	}
	return data
}

type PregnancyForm struct {
	PregnancyMonth *int `json:"pregnancyMonth"`
	DoctorVisit    bool `json:"doctorVisit"`
	Headache       bool `json:"headache"`
	VisionBlur     bool `json:"visionBlur"`
	LessMovement   bool `json:"lessMovement"`
	Bleeding       bool `json:"bleeding"`
	BreastPain     bool `json:"breastPain"`
	MoodIssues     bool `json:"moodIssues"`
}

func (PregnancyForm) Type() RecordType { return TypePregnancy }

func (f PregnancyForm) Data() map[string]any {
	data := map[string]any{
		"doctorVisit":  f.DoctorVisit,
		"headache":     f.Headache,
		"visionBlur":   f.VisionBlur,
		"lessMovement": f.LessMovement,
		"bleeding":     f.Bleeding,
		"breastPain":   f.BreastPain,
		"moodIssues":   f.MoodIssues,
	}
	if f.PregnancyMonth != nil {
		data["pregnancyMonth"] = *f.PregnancyMonth
	}
	return data
}

type LifestyleForm struct {
	SleepHours       *float64 `json:"sleepHours"`
	Mood             string   `json:"mood"`
	Energy           string   `json:"energy"`
	Symptoms         []string `json:"symptoms"`
	Notes            string   `json:"notes"`
	FoodHabits       string   `json:"foodHabits"`
	PhysicalActivity string   `json:"physicalActivity"`
}

func (LifestyleForm) Type() RecordType { return TypeLifestyle }

func (f LifestyleForm) Data() map[string]any {
	symptoms := f.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	data := map[string]any{
		"mood":             f.Mood,
		"energy":           f.Energy,
		"symptoms":         symptoms,
		"notes":            f.Notes,
		"foodHabits":       f.FoodHabits,
		"physicalActivity": f.PhysicalActivity,
	}
	if f.SleepHours != nil {
		data["sleepHours"] = *f.SleepHours
	}
	return data
}

type AssessmentForm struct {
	Responses map[string]any `json:"responses"`
	Scores    map[string]any `json:"scores"`
}

func (AssessmentForm) Type() RecordType { return TypeAssessment }

func (f AssessmentForm) Data() map[string]any {
	return map[string]any{
		"responses": f.Responses,
		"scores":    f.Scores,
	}
}
