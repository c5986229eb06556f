package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidInput is returned when a dataset violates its declared shape:
// negative counts, or a response whose indices fall outside them.
var ErrInvalidInput = errors.New("invalid input")

// Dataset is the full response matrix handed to the estimator, stored sparsely.
// It is read-only once constructed.
type Dataset struct {
	Examinees int        `json:"examinees" yaml:"examinees"`
	Items     int        `json:"items" yaml:"items"`
	Responses []Response `json:"responses" yaml:"responses"`
}

// NewDataset builds a dataset and validates it.
func NewDataset(examinees, items int, responses []Response) (*Dataset, error) {
	d := &Dataset{
		Examinees: examinees,
		Items:     items,
		Responses: responses,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the declared counts and every response index.
func (d *Dataset) Validate() error {
	if d.Examinees < 0 {
		return fmt.Errorf("%w: examinee count %d is negative", ErrInvalidInput, d.Examinees)
	}
	if d.Items < 0 {
		return fmt.Errorf("%w: item count %d is negative", ErrInvalidInput, d.Items)
	}
	for i, r := range d.Responses {
		if r.Examinee < 0 || r.Examinee >= d.Examinees {
			return fmt.Errorf("%w: response %d: examinee %d out of range [0, %d)", ErrInvalidInput, i, r.Examinee, d.Examinees)
		}
		if r.Item < 0 || r.Item >= d.Items {
			return fmt.Errorf("%w: response %d: item %d out of range [0, %d)", ErrInvalidInput, i, r.Item, d.Items)
		}
	}
	return nil
}

// ByExaminee groups responses per examinee. Each group is sorted by item and
// outcome, so the grouping is identical for any permutation of Responses.
// Examinees without responses get an empty group.
func (d *Dataset) ByExaminee() [][]Response {
	groups := make([][]Response, d.Examinees)
	for _, r := range d.Responses {
		groups[r.Examinee] = append(groups[r.Examinee], r)
	}
	for _, g := range groups {
		slices.SortFunc(g, compareResponses)
	}
	return groups
}

// ItemCounts returns, per item, the number of correct responses and the
// number of responses overall.
func (d *Dataset) ItemCounts() (correct, total []int) {
	correct = make([]int, d.Items)
	total = make([]int, d.Items)
	for _, r := range d.Responses {
		total[r.Item]++
		if r.Correct {
			correct[r.Item]++
		}
	}
	return correct, total
}

// RawScores returns each examinee's number-correct score and response count.
func (d *Dataset) RawScores() (correct, answered []int) {
	correct = make([]int, d.Examinees)
	answered = make([]int, d.Examinees)
	for _, r := range d.Responses {
		answered[r.Examinee]++
		if r.Correct {
			correct[r.Examinee]++
		}
	}
	return correct, answered
}
