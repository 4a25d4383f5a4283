package models

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of a complaint
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{StatusNew, StatusInProgress, StatusResolved, StatusClosed}

// ParseStatus converts a raw value into a Status, rejecting anything outside the fixed set
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusInProgress, StatusResolved, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CanTransitionTo reports whether a complaint in status s may move to next.
// Forward moves are always allowed, Resolved may be reopened to InProgress,
// and Closed is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return false
	}

	switch s {
	case StatusNew:
		return next == StatusInProgress || next == StatusResolved || next == StatusClosed
	case StatusInProgress:
		return next == StatusResolved || next == StatusClosed
	case StatusResolved:
		return next == StatusInProgress || next == StatusClosed
	case StatusClosed:
		return false
	}
	return false
}

// RequiresResponse reports whether moving into this status needs a response message
func (s Status) RequiresResponse() bool {
	return s == StatusResolved
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Priority is the triage priority of a complaint
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Category classifies what a complaint is about
type Category string

const (
	CategoryInternet  Category = "Internet"
	CategoryTelephony Category = "Telephony"
	CategoryTV        Category = "TV"
	CategoryBilling   Category = "Billing"
	CategoryOther     Category = "Other"
)

// Categories lists the accepted complaint categories
var Categories = []Category{CategoryInternet, CategoryTelephony, CategoryTV, CategoryBilling, CategoryOther}

// ParseCategory converts a raw value into a Category
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryInternet, CategoryTelephony, CategoryTV, CategoryBilling, CategoryOther:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
