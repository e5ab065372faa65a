package syncclient

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw json.RawMessage) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

func TestMergeRatings_LocalWinsPerWeek(t *testing.T) {
	server := json.RawMessage(`{"w1":"S1","w2":"S2"}`)
	local := json.RawMessage(`{"w2":"L2","w3":"L3"}`)

	got := decode(t, MergeRatings(server, local))
	want := map[string]string{"w1": "S1", "w2": "L2", "w3": "L3"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeRatings() = %v, want %v", got, want)
	}
}

func TestMergeRatings_NonObjectSides(t *testing.T) {
	local := json.RawMessage(`{"w1":"L"}`)

	if got := MergeRatings(json.RawMessage(`"broken"`), local); string(got) != string(local) {
		t.Errorf("MergeRatings(broken server) = %s, want local", got)
	}
	if got := MergeRatings(json.RawMessage(`null`), local); string(got) != string(local) {
		t.Errorf("MergeRatings(null server) = %s, want local", got)
	}
	broken := json.RawMessage(`[1]`)
	if got := MergeRatings(json.RawMessage(`{"w":"S"}`), broken); string(got) != string(broken) {
		t.Errorf("MergeRatings(array local) = %s, want local unchanged", got)
	}
}

func TestMerge(t *testing.T) {
	server := Payload{
		SectionRatings:    json.RawMessage(`{"w1":"S"}`),
		SectionGoals:      json.RawMessage(`"server goals"`),
		SectionHypotheses: json.RawMessage(`"server hyps"`),
	}
	local := Payload{
		SectionRatings:    json.RawMessage(`{"w2":"L"}`),
		SectionHypotheses: json.RawMessage(`"local hyps"`),
	}

	got := Merge(server, local)

	if string(got[SectionGoals]) != `"server goals"` {
		t.Errorf("goals = %s, want server value kept", got[SectionGoals])
	}
	if string(got[SectionHypotheses]) != `"local hyps"` {
		t.Errorf("hypotheses = %s, want local override", got[SectionHypotheses])
	}
	if r := decode(t, got[SectionRatings]); len(r) != 2 {
		t.Errorf("ratings = %v, want union", r)
	}

	if got := Merge(nil, local); len(got) != 2 {
		t.Errorf("Merge(nil, local) = %v, want local", got)
	}
}
