// Package audit records a trail of collection mutations and auth events.
package audit

import (
	"log"

	"github.com/AhasnaCharumee/BookMate/internal/database/audit"
	"github.com/AhasnaCharumee/BookMate/internal/entities"
)

// Service provides high-level audit logging.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogBookMutation records an add/update/delete on a book record.
func (s *Service) LogBookMutation(userID, action, bookID, description string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBook,
		Action:      action,
		Description: description,
		EntityID:    bookID,
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogUploadFailure records a cover upload that could not be attached.
func (s *Service) LogUploadFailure(userID, bookID, slot string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventUpload,
		Action:      "cover_upload",
		Description: "cover upload failed for slot " + slot,
		EntityID:    bookID,
		Status:      entities.AuditStatusFailed,
	}
	if err != nil {
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogAuth records a login, logout or registration.
func (s *Service) LogAuth(userID, action string, err error) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		Status:    entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// GetEvents returns paginated audit events for a user, newest first.
func (s *Service) GetEvents(userID string, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
