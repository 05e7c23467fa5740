package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

type RecipientType string

const (
	RecipientDoctor  RecipientType = "DOCTOR"
	RecipientPatient RecipientType = "PATIENT"
)

var (
	ErrNotificationNotFound = apperr.New(apperr.ErrNotFound, "notification not found")
	ErrNotRecipient         = apperr.New(apperr.ErrForbidden, "notification belongs to another recipient")
)

// Notification is created once per triggering event. Only Read changes
// afterwards, plus PublishedAt once the relay has handed it to the broker.
type Notification struct {
	ID            uuid.UUID     `json:"id"`
	AppointmentID uuid.UUID     `json:"appointment_id"`
	RecipientType RecipientType `json:"recipient_type"`
	RecipientID   uuid.UUID     `json:"recipient_id"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	CreatedAt     time.Time     `json:"created_at"`
	Read          bool          `json:"read"`
	PublishedAt   *time.Time    `json:"-"`
}

// Recipient identifies a notification inbox.
type Recipient struct {
	Type RecipientType
	ID   uuid.UUID
}

// RecipientOf maps a caller to its inbox. Admins have none.
func RecipientOf(caller identity.Caller) (Recipient, error) {
	switch caller.Role {
	case identity.RoleDoctor:
		return Recipient{Type: RecipientDoctor, ID: caller.OwnerID}, nil
	case identity.RolePatient:
		return Recipient{Type: RecipientPatient, ID: caller.OwnerID}, nil
	case "":
		return Recipient{}, identity.ErrUnauthenticated
	}
	return Recipient{}, apperr.New(apperr.ErrForbidden, "caller has no notification inbox")
}

type Repository interface {
	Insert(ctx context.Context, n Notification) (*Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// ListForRecipient is newest first.
	ListForRecipient(ctx context.Context, r Recipient) ([]Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, r Recipient) (int64, error)
	CountUnread(ctx context.Context, r Recipient) (int64, error)

	// Outbox side used by the relay; ListUnpublished is oldest first.
	ListUnpublished(ctx context.Context, limit int) ([]Notification, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
