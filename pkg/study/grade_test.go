package study

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseGrade(t *testing.T) {
	cases := []struct {
		value string
		want  Grade
		ok    bool
	}{
		{"again", GradeAgain, true},
		{"Hard", GradeHard, true},
		{" GOOD ", GradeGood, true},
		{"easy", GradeEasy, true},
		{"medium", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseGrade(tc.value)
		if tc.ok && err != nil {
			t.Fatalf("ParseGrade(%q) unexpected error: %v", tc.value, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidGrade) {
			t.Fatalf("ParseGrade(%q) expected ErrInvalidGrade, got %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("ParseGrade(%q) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestGradeUnmarshalJSON(t *testing.T) {
	var g Grade
	if err := json.Unmarshal([]byte(`"good"`), &g); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if g != GradeGood {
		t.Fatalf("expected good, got %q", g)
	}

	if err := json.Unmarshal([]byte(`"okay"`), &g); !errors.Is(err, ErrInvalidGrade) {
		t.Fatalf("expected ErrInvalidGrade, got %v", err)
	}
}
