package services

import (
	"approval-notify/contract"
	"approval-notify/domain"
	"approval-notify/domain/approval"
	"approval-notify/domain/event"
	"approval-notify/errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const previewLength = 100

type INotificationService interface {
	RequestCreated(cmd approval.RequestCreatedCommand) error
	StatusDecided(cmd approval.StatusDecidedCommand) error
	CommentAdded(cmd approval.CommentAddedCommand) error
	Publish(notification event.Notification) error
}

// NotificationService turns committed workflow changes into notifications.
// It is called after the persistence layer has committed, so it only
// reports invalid input or a full queue, never delivery outcomes.
type NotificationService struct {
	log      *slog.Logger
	notifier contract.INotifier
	validate *validator.Validate
}

func NewNotificationService(log *slog.Logger, notifier contract.INotifier) *NotificationService {
	return &NotificationService{log: log, notifier: notifier, validate: validator.New()}
}

// RequestCreated tells the approver about the new request and every manager about the assignment.
func (s *NotificationService) RequestCreated(cmd approval.RequestCreatedCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return err
	}
	return s.dispatch(
		event.Notification{
			Message: event.NewRequest{
				RequestID:       cmd.RequestID,
				Title:           cmd.Title,
				Priority:        cmd.Priority,
				RequesterName:   cmd.RequesterName,
				Amount:          cmd.Amount,
				Message:         fmt.Sprintf("New approval request: %s", cmd.Title),
				ReferenceNumber: cmd.ReferenceNumber,
			},
			Target: domain.ToIdentity(cmd.ApproverID),
		},
		event.Notification{
			Message: event.ApprovalAssigned{
				RequestID: cmd.RequestID,
				Title:     cmd.Title,
				Priority:  cmd.Priority,
				Message:   fmt.Sprintf("New request assigned: %s", cmd.Title),
			},
			Target: domain.ToRole(domain.RoleManager),
		},
	)
}

// StatusDecided tells the requester about the decision and every manager that it was made.
func (s *NotificationService) StatusDecided(cmd approval.StatusDecidedCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return err
	}
	described := cmd.Status.Describe()
	return s.dispatch(
		event.Notification{
			Message: event.StatusUpdate{
				RequestID:       cmd.RequestID,
				Status:          string(cmd.Status),
				Title:           cmd.Title,
				DecidedBy:       cmd.DecidedBy,
				Message:         fmt.Sprintf("Your request '%s' has been %s", cmd.Title, described),
				ReferenceNumber: cmd.ReferenceNumber,
			},
			Target: domain.ToIdentity(cmd.RequesterID),
		},
		event.Notification{
			Message: event.ApprovalDecision{
				RequestID: cmd.RequestID,
				Status:    string(cmd.Status),
				Title:     cmd.Title,
				DecidedBy: cmd.DecidedBy,
				Message:   fmt.Sprintf("Decision made: %s - %s", cmd.Title, described),
			},
			Target: domain.ToRole(domain.RoleManager),
		},
	)
}

// CommentAdded notifies the other party of the request. Internal comments stay silent.
func (s *NotificationService) CommentAdded(cmd approval.CommentAddedCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return err
	}
	if cmd.IsInternal {
		s.log.Debug("Internal comment, no notification", "request_id", cmd.RequestID, "comment_id", cmd.CommentID)
		return nil
	}
	return s.dispatch(event.Notification{
		Message: event.NewComment{
			RequestID:      cmd.RequestID,
			CommentID:      cmd.CommentID,
			UserName:       cmd.AuthorName,
			ContentPreview: Preview(cmd.Content),
			Message:        fmt.Sprintf("New comment on '%s'", cmd.RequestTitle),
		},
		Target: domain.ToIdentity(cmd.Recipient()),
	})
}

// Publish queues an arbitrary notification after validating its target.
func (s *NotificationService) Publish(notification event.Notification) error {
	if notification.Message == nil || notification.Message.Type() == "" {
		return fmt.Errorf("%w: notification has no message", errors.ErrEncode)
	}
	if err := s.validate.Struct(notification.Target); err != nil {
		return err
	}
	return s.dispatch(notification)
}

func (s *NotificationService) dispatch(notifications ...event.Notification) error {
	errs := lo.FilterMap(notifications, func(n event.Notification, _ int) (error, bool) {
		err := s.notifier.Dispatch(n)
		return err, err != nil
	})
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Preview truncates comment content to previewLength runes.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}
