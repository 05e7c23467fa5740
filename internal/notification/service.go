package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/identity"
)

// Service is the caller-facing inbox.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, caller identity.Caller) ([]Notification, error) {
	r, err := RecipientOf(caller)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListForRecipient(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead is a no-op for an already read notification.
func (s *Service) MarkRead(ctx context.Context, caller identity.Caller, id uuid.UUID) error {
	r, err := RecipientOf(caller)
	if err != nil {
		return err
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientType != r.Type || n.RecipientID != r.ID {
		return ErrNotRecipient
	}
	if n.Read {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, caller identity.Caller) (int64, error) {
	r, err := RecipientOf(caller)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, r)
}

func (s *Service) UnreadCount(ctx context.Context, caller identity.Caller) (int64, error) {
	r, err := RecipientOf(caller)
	if err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, r)
}
