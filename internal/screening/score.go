package screening

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrIncompleteAnswers indicates at least one item was left unanswered.
	ErrIncompleteAnswers = errors.New("screening: please answer all questions before submitting")
	// ErrInvalidAnswer indicates an answer outside the instrument's options.
	ErrInvalidAnswer = errors.New("screening: answer out of range")
)

// Result is the scored outcome of a submission.
type Result struct {
	Instrument string `json:"instrument"`
	Score      int    `json:"score"`
	MaxScore   int    `json:"max_score"`
	Severity   string `json:"severity"`
	Label      string `json:"label"`
}

// Score totals the answers (nil means unanswered) and classifies the total.
// Reverse-scored items count as (highest option - answer).
func Score(instrument Instrument, answers []*int) (Result, error) {
	if len(answers) != len(instrument.Questions) {
		return Result{}, fmt.Errorf("%w: got %d of %d", ErrIncompleteAnswers, len(answers), len(instrument.Questions))
	}
	highest := instrument.MaxOptionValue()
	total := 0
	for index, answer := range answers {
		if answer == nil {
			return Result{}, fmt.Errorf("%w: item %d", ErrIncompleteAnswers, index+1)
		}
		if !slices.ContainsFunc(instrument.Options, func(option Option) bool { return option.Value == *answer }) {
			return Result{}, fmt.Errorf("%w: item %d value %d", ErrInvalidAnswer, index+1, *answer)
		}
		value := *answer
		if slices.Contains(instrument.ReverseScored, index) {
			value = highest - value
		}
		total += value
	}

	band := Classify(instrument, total)
	return Result{
		Instrument: instrument.ID,
		Score:      total,
		MaxScore:   highest * len(instrument.Questions),
		Severity:   band.Severity,
		Label:      band.Label,
	}, nil
}

// Classify returns the first band whose cutoff is at or above total.
func Classify(instrument Instrument, total int) Band {
	for _, band := range instrument.Bands {
		if band.Max == nil || total <= *band.Max {
			return band
		}
	}
	return Band{}
}
