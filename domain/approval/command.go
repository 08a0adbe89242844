// Package approval describes workflow changes that have already been
// committed by the persistence layer and now need to be announced.
package approval

import (
	"approval-notify/domain"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusEscalated Status = "escalated"
)

// Describe renders a status as the phrase that completes "has been ...".
// Statuses that already read naturally are returned as is.
func (s Status) Describe() string {
	switch s {
	case StatusPending:
		return "returned for review"
	case StatusEscalated:
		return "escalated for further review"
	default:
		return string(s)
	}
}

type RequestCreatedCommand struct {
	RequestID       int64           `validate:"required"`
	Title           string          `validate:"required"`
	Priority        string          `validate:"required"`
	RequesterName   string          `validate:"required"`
	Amount          *float64        `validate:"omitempty,gte=0"`
	ReferenceNumber string          `validate:"required"`
	ApproverID      domain.Identity `validate:"required"`
}

type StatusDecidedCommand struct {
	RequestID       int64           `validate:"required"`
	Title           string          `validate:"required"`
	Status          Status          `validate:"required,oneof=approved rejected escalated pending"`
	DecidedBy       string          `validate:"required"`
	ReferenceNumber string          `validate:"required"`
	RequesterID     domain.Identity `validate:"required"`
}

type CommentAddedCommand struct {
	RequestID    int64           `validate:"required"`
	RequestTitle string          `validate:"required"`
	CommentID    int64           `validate:"required"`
	AuthorID     domain.Identity `validate:"required"`
	AuthorName   string          `validate:"required"`
	Content      string          `validate:"required"`
	IsInternal   bool
	RequesterID  domain.Identity `validate:"required"`
	ApproverID   domain.Identity `validate:"required"`
}

// Recipient is the other party of the request: comments from the requester
// go to the approver, every other comment goes to the requester.
func (c CommentAddedCommand) Recipient() domain.Identity {
	if c.AuthorID == c.RequesterID {
		return c.ApproverID
	}
	return c.RequesterID
}
