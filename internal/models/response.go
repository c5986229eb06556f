package models

import "cmp"

// Response is a single scored answer: examinee Examinee answered item Item
// and was either correct or incorrect. Indices are zero-based.
type Response struct {
	Examinee int  `json:"examinee" yaml:"examinee" mapstructure:"examinee"`
	Item     int  `json:"item" yaml:"item" mapstructure:"item"`
	Correct  bool `json:"correct" yaml:"correct" mapstructure:"correct"`
}

// Outcome returns the response as a 0/1 bit.
func (r Response) Outcome() int {
	if r.Correct {
		return 1
	}
	return 0
}

// compareResponses orders responses by item, then outcome, then examinee.
func compareResponses(a, b Response) int {
	if c := cmp.Compare(a.Item, b.Item); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Outcome(), b.Outcome()); c != 0 {
		return c
	}
	return cmp.Compare(a.Examinee, b.Examinee)
}
