package event

import (
	"approval-notify/domain"
)

type Type string

const (
	TypeNewRequest            Type = "new_request"
	TypeStatusUpdate          Type = "status_update"
	TypeNewComment            Type = "new_comment"
	TypeApprovalAssigned      Type = "approval_assigned"
	TypeApprovalDecision      Type = "approval_decision"
	TypeConnectionEstablished Type = "connection_established"
	TypePing                  Type = "ping"
)

// Message is any outbound notification. The envelope adds "type" and
// "timestamp" around the JSON fields of the concrete value.
type Message interface {
	Type() Type
}

type NewRequest struct {
	RequestID       int64    `json:"request_id"`
	Title           string   `json:"title"`
	Priority        string   `json:"priority"`
	RequesterName   string   `json:"requester_name"`
	Amount          *float64 `json:"amount"`
	Message         string   `json:"message"`
	ReferenceNumber string   `json:"reference_number"`
}

func (NewRequest) Type() Type { return TypeNewRequest }

type StatusUpdate struct {
	RequestID       int64  `json:"request_id"`
	Status          string `json:"status"`
	Title           string `json:"title"`
	DecidedBy       string `json:"decided_by"`
	Message         string `json:"message"`
	ReferenceNumber string `json:"reference_number"`
}

func (StatusUpdate) Type() Type { return TypeStatusUpdate }

type NewComment struct {
	RequestID      int64  `json:"request_id"`
	CommentID      int64  `json:"comment_id"`
	UserName       string `json:"user_name"`
	ContentPreview string `json:"content_preview"`
	Message        string `json:"message"`
}

func (NewComment) Type() Type { return TypeNewComment }

type ApprovalAssigned struct {
	RequestID int64  `json:"request_id"`
	Title     string `json:"title"`
	Priority  string `json:"priority"`
	Message   string `json:"message"`
}

func (ApprovalAssigned) Type() Type { return TypeApprovalAssigned }

type ApprovalDecision struct {
	RequestID int64  `json:"request_id"`
	Status    string `json:"status"`
	Title     string `json:"title"`
	DecidedBy string `json:"decided_by"`
	Message   string `json:"message"`
}

func (ApprovalDecision) Type() Type { return TypeApprovalDecision }

type ConnectionEstablished struct {
	Message  string          `json:"message"`
	Identity domain.Identity `json:"user_id"`
}

func (ConnectionEstablished) Type() Type { return TypeConnectionEstablished }

type Ping struct{}

func (Ping) Type() Type { return TypePing }

// Generic carries any event kind outside the fixed set, with an open payload.
type Generic struct {
	Kind   Type
	Fields map[string]any
}

func (g Generic) Type() Type { return g.Kind }

// Notification pairs a message with the connections it is addressed to.
type Notification struct {
	Message Message
	Target  domain.Target
}
