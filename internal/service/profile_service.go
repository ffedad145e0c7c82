package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/port"
)

// ProfileService reads and writes the per-user dashboard document.
type ProfileService struct {
	store port.ProfileStore
	now   func() time.Time
}

// NewProfileService creates a new profile service.
func NewProfileService(store port.ProfileStore) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

// Get returns the document, or nil when the user has not saved anything yet.
func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Document, error) {
	doc, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return doc, nil
}

// Save merges partial into the stored document.
func (s *ProfileService) Save(ctx context.Context, userID string, partial domain.Document) (domain.Document, error) {
	if partial == nil {
		partial = domain.Document{}
	}
	doc, err := s.store.Set(ctx, userID, partial)
	if err != nil {
		return nil, fmt.Errorf("save profile %s: %w", userID, err)
	}
	return doc, nil
}

// Reset deletes the document.
func (s *ProfileService) Reset(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("reset profile %s: %w", userID, err)
	}
	return nil
}

// AppendChatMessage adds one entry to chatHistory.
func (s *ProfileService) AppendChatMessage(ctx context.Context, userID string, msg domain.ChatMessage) (domain.Document, error) {
	msg.Content = strings.TrimSpace(msg.Content)
	fields := map[string]string{}
	if msg.Content == "" {
		fields["content"] = "is required"
	}
	if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
		fields["role"] = "must be user or assistant"
	}
	if len(fields) > 0 {
		return nil, &port.ValidationError{Fields: fields}
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	doc, err := s.store.Update(ctx, userID, func(existing domain.Document) domain.Document {
		return domain.AppendChat(existing, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("append chat %s: %w", userID, err)
	}
	return doc, nil
}
