package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidateRating(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"min", 1, false},
		{"max", 10, false},
		{"middle", 5, false},
		{"zero", 0, true},
		{"eleven", 11, true},
		{"negative", -3, true},
		{"fraction", 7.5, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRating("ratings.health", tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRating(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMetricID(t *testing.T) {
	valid := []string{"health", "peace_of_mind", "a", "metric_2"}
	invalid := []string{"", "Health", "peace-of-mind", "_leading", strings.Repeat("a", 65), "has space"}

	for _, v := range valid {
		if err := ValidateMetricID("metric", v); err != nil {
			t.Errorf("ValidateMetricID(%q) = %v, want nil", v, err)
		}
	}
	for _, v := range invalid {
		if err := ValidateMetricID("metric", v); err == nil {
			t.Errorf("ValidateMetricID(%q) = nil, want error", v)
		}
	}
}

func TestValidateNote(t *testing.T) {
	if err := ValidateNote("notes.health", strings.Repeat("x", MaxNoteLength)); err != nil {
		t.Errorf("note at limit: %v", err)
	}
	if err := ValidateNote("notes.health", strings.Repeat("x", MaxNoteLength+1)); err == nil {
		t.Error("note over limit accepted")
	}
	if err := ValidateNote("notes.health", "bad\x00byte"); err == nil {
		t.Error("note with null byte accepted")
	}
	if err := ValidateNote("notes.health", string([]byte{0xff, 0xfe})); err == nil {
		t.Error("invalid UTF-8 accepted")
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Add(nil)
	if c.HasErrors() || c.Err() != nil {
		t.Fatal("empty collector reports errors")
	}

	c.Add(ValidateMaxLength("title", strings.Repeat("x", 11), 10))
	c.Add(ValidateEnum("status", "paused", []string{"draft", "active"}))
	if len(c.Errors()) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(c.Errors()))
	}
	if err := c.Err(); err == nil || !strings.Contains(err.Error(), "title: exceeds maximum length") {
		t.Errorf("Err() = %v, want joined message containing title", err)
	}
}

type sample struct {
	Name  string `validate:"required"`
	Score int    `validate:"gte=1,lte=10"`
	Inner struct {
		Level int `validate:"lte=4"`
	}
}

func TestValidateStruct(t *testing.T) {
	ok := sample{Name: "x", Score: 5}
	if errs := ValidateStruct(ok); len(errs) != 0 {
		t.Errorf("ValidateStruct(valid) = %v, want none", errs)
	}

	bad := sample{Score: 11}
	bad.Inner.Level = 9
	errs := ValidateStruct(bad)
	if len(errs) != 3 {
		t.Fatalf("ValidateStruct(invalid) returned %d errors, want 3: %v", len(errs), errs)
	}

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Message
	}
	if fields["Name"] != "is required" {
		t.Errorf("Name message = %q", fields["Name"])
	}
	if fields["Score"] != "must be <= 10" {
		t.Errorf("Score message = %q", fields["Score"])
	}
	if fields["Inner.Level"] != "must be <= 4" {
		t.Errorf("Inner.Level message = %q", fields["Inner.Level"])
	}
}
