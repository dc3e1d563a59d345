package models

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidFeedback = errors.New("invalid feedback")

var (
	feedbackCategories = []string{"app", "feature", "bug", "suggestion"}
	feedbackTypes      = []string{"rating", "comment", "feature_request"}
)

// Feedback is the body of POST /feedback/.
type Feedback struct {
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// Validate applies the server's rules locally so that a queued feedback
// action is not doomed to be rejected on replay.
func (f Feedback) Validate() error {
	if !slices.Contains(feedbackCategories, f.Category) {
		return fmt.Errorf("%w: category must be one of %v", ErrInvalidFeedback, feedbackCategories)
	}
	if !slices.Contains(feedbackTypes, f.Type) {
		return fmt.Errorf("%w: type must be one of %v", ErrInvalidFeedback, feedbackTypes)
	}
	if f.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidFeedback)
	}
	if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidFeedback)
	}
	return nil
}
