package study

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Grade is the user's self-reported recall quality for a card.
type Grade string

const (
	GradeAgain Grade = "again"
	GradeHard  Grade = "hard"
	GradeGood  Grade = "good"
	GradeEasy  Grade = "easy"
)

func ParseGrade(value string) (Grade, error) {
	switch Grade(strings.ToLower(strings.TrimSpace(value))) {
	case GradeAgain:
		return GradeAgain, nil
	case GradeHard:
		return GradeHard, nil
	case GradeGood:
		return GradeGood, nil
	case GradeEasy:
		return GradeEasy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGrade, value)
	}
}

func (g Grade) Valid() bool {
	switch g {
	case GradeAgain, GradeHard, GradeGood, GradeEasy:
		return true
	default:
		return false
	}
}

func (g Grade) String() string {
	return string(g)
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseGrade(raw)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
