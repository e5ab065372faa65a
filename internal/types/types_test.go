package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMoodFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Mood
	}{
		{10, MoodExcellent},
		{8, MoodExcellent},
		{7.9, MoodGood},
		{6, MoodGood},
		{5.9, MoodNeutral},
		{4, MoodNeutral},
		{3.9, MoodPoor},
		{2, MoodPoor},
		{1.9, MoodTerrible},
		{0, MoodTerrible},
	}

	for _, tt := range tests {
		if got := MoodFromScore(tt.score); got != tt.want {
			t.Errorf("MoodFromScore(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestMood_Valid(t *testing.T) {
	for _, m := range Moods {
		if !m.Valid() {
			t.Errorf("%q.Valid() = false, want true", m)
		}
	}
	if Mood("ecstatic").Valid() {
		t.Error(`Mood("ecstatic").Valid() = true, want false`)
	}
}

func TestRoundOne(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{4, 4},
		{6.66666, 6.7},
		{7.25, 7.3},
		{7.24, 7.2},
		{0, 0},
	}
	for _, tt := range tests {
		if got := RoundOne(tt.in); got != tt.want {
			t.Errorf("RoundOne(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTrendPoint_NullAverageForGap(t *testing.T) {
	data, err := json.Marshal(TrendPoint{WeekID: "2024-02-26", HasData: false})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"averageScore":null`) {
		t.Errorf("gap week JSON = %s, want averageScore null", data)
	}
	if !strings.Contains(string(data), `"hasData":false`) {
		t.Errorf("gap week JSON = %s, want hasData false", data)
	}
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	data, _ := json.Marshal(ErrorResponse{Error: "Unauthorized"})
	if string(data) != `{"error":"Unauthorized"}` {
		t.Errorf("ErrorResponse JSON = %s", data)
	}
}
