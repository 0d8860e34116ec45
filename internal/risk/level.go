package risk

import (
	"encoding/json"
	"fmt"
)

// Level is a totally ordered severity classification.
type Level int

const (
	Normal Level = iota
	BeCareful
	Urgent
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "Normal"
	case BeCareful:
		return "Be Careful"
	case Urgent:
		return "Urgent"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts the text form produced by String.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "Normal":
		return Normal, nil
	case "Be Careful":
		return BeCareful, nil
	case "Urgent":
		return Urgent, nil
	}
	return Normal, fmt.Errorf("unknown risk level %q", s)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
