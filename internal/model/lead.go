package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits for a contact form submission, counted in characters.
const (
	MaxNameLength    = 100
	MaxPhoneLength   = 20
	MaxMessageLength = 1000
)

// ErrInvalidLead is returned when a submission is missing a field or a field
// exceeds its length limit. It deliberately carries no field-level detail.
var ErrInvalidLead = errors.New("invalid lead")

// Status is the triage state of a lead.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusNew || s == StatusContacted
}

// CanTransition reports whether a lead may move from one status to another.
// Leads only ever move forward from new to contacted; staying put is allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return from == StatusNew && to == StatusContacted
}

// Lead is a contact form submission.
type Lead struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Message   string    `json:"message" db:"message"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewLead validates a submission and returns an unsaved lead with status new.
// ID and CreatedAt are assigned by the store.
func NewLead(name, phone, message string) (*Lead, error) {
	if !validField(name, MaxNameLength) ||
		!validField(phone, MaxPhoneLength) ||
		!validField(message, MaxMessageLength) {
		return nil, ErrInvalidLead
	}
	return &Lead{
		Name:    name,
		Phone:   phone,
		Message: message,
		Status:  StatusNew,
	}, nil
}

func validField(v string, max int) bool {
	if strings.TrimSpace(v) == "" {
		return false
	}
	return utf8.RuneCountInString(v) <= max
}

// LeadFilter narrows a lead listing. Search is a case-insensitive substring
// matched against name, phone and message.
type LeadFilter struct {
	Search string
}

// LeadStats holds the dashboard counters.
type LeadStats struct {
	Total     int `json:"total" db:"total"`
	New       int `json:"new" db:"new_count"`
	Contacted int `json:"contacted" db:"contacted_count"`
}
