package risk

import "testing"

func TestMergeSnapshotNewestWins(t *testing.T) {
	newest := map[string]any{"bpReading": 150, "sleepHours": nil}
	older := map[string]any{"bpReading": 120, "sleepHours": 7, "irregularPeriods": true}
	oldest := map[string]any{"sleepHours": 4}

	got := MergeSnapshot(newest, older, oldest)

	if v, _ := got.Number("bpReading"); v != 150 {
		t.Fatalf("expected newest bp 150, got %v", got["bpReading"])
	}
	if v, _ := got.Number("sleepHours"); v != 7 {
		t.Fatalf("nil value should not shadow older report, got %v", got["sleepHours"])
	}
	if !got.Flag("irregularPeriods") {
		t.Fatalf("expected field from older record to be merged")
	}
}

func TestMergeSnapshotEmpty(t *testing.T) {
	got := MergeSnapshot()
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got)
	}
	if got.Flag("anything") {
		t.Fatalf("absent field must be falsy")
	}
	if _, ok := got.Number("bpReading"); ok {
		t.Fatalf("absent field must not be numeric")
	}
}
