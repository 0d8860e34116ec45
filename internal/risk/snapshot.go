package risk

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Snapshot maps metric names (irregularPeriods, bpReading, sleepHours, ...)
// to their latest reported value.
type Snapshot map[string]any

// MergeSnapshot folds record payloads ordered newest first. The first
// non-nil value seen for a field wins, so the most recent report of every
// field ends up in the snapshot.
func MergeSnapshot(records ...map[string]any) Snapshot {
	out := Snapshot{}
	for _, data := range records {
		for k, v := range data {
			if v == nil {
				continue
			}
			if _, seen := out[k]; seen {
				continue
			}
			out[k] = v
		}
	}
	return out
}

// Flag reports whether the field is present and truthy.
func (s Snapshot) Flag(key string) bool {
	return truthy(s[key])
}

// Number returns the numeric value of the field. ok is false when the field
// is absent or does not hold a number.
func (s Snapshot) Number(key string) (float64, bool) {
	return number(s[key])
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	default:
		if n, ok := number(v); ok {
			return n != 0
		}
		return true
	}
}

func number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
