package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

func subject() notification.Subject {
	return notification.Subject{
		AppointmentID: uuid.New(),
		DoctorID:      uuid.New(),
		DoctorName:    "Strange",
		PatientID:     uuid.New(),
		PatientName:   "Wong",
		Range: timeslot.Range{
			Date:  timeslot.MustDate("2025-01-10"),
			Start: timeslot.MustTime("09:00"),
			End:   timeslot.MustTime("09:30"),
		},
	}
}

func TestNotifierMessages(t *testing.T) {
	ctx := context.Background()
	n := notification.NewNotifier(memstore.New().Notifications())
	s := subject()
	reason := "doctor on leave"

	tests := []struct {
		name    string
		emit    func() (*notification.Notification, error)
		to      notification.Recipient
		title   string
		message string
	}{
		{
			name:    "request",
			emit:    func() (*notification.Notification, error) { return n.NotifyDoctorOnRequest(ctx, s) },
			to:      notification.Recipient{Type: notification.RecipientDoctor, ID: s.DoctorID},
			title:   "New appointment request",
			message: "Patient Wong request an appointment on 2025-01-10 from 09:00 to 09:30",
		},
		{
			name:    "confirmed",
			emit:    func() (*notification.Notification, error) { return n.NotifyPatientOnDecision(ctx, s, true, nil) },
			to:      notification.Recipient{Type: notification.RecipientPatient, ID: s.PatientID},
			title:   "Appointment confirmed",
			message: "Your appointment with Dr. Strange on 2025-01-10 is confirmed.",
		},
		{
			name:    "rejected with reason",
			emit:    func() (*notification.Notification, error) { return n.NotifyPatientOnDecision(ctx, s, false, &reason) },
			to:      notification.Recipient{Type: notification.RecipientPatient, ID: s.PatientID},
			title:   "Appointment rejected",
			message: "Your appointment with Dr. Strange on 2025-01-10 was rejected. Reason: doctor on leave",
		},
		{
			name:    "canceled by patient",
			emit:    func() (*notification.Notification, error) { return n.NotifyOnCancel(ctx, s, notification.RecipientPatient) },
			to:      notification.Recipient{Type: notification.RecipientDoctor, ID: s.DoctorID},
			title:   "Appointment canceled",
			message: "Patient Wong canceled the appointment on 2025-01-10 from 09:00 to 09:30",
		},
		{
			name:    "canceled by doctor",
			emit:    func() (*notification.Notification, error) { return n.NotifyOnCancel(ctx, s, notification.RecipientDoctor) },
			to:      notification.Recipient{Type: notification.RecipientPatient, ID: s.PatientID},
			title:   "Appointment canceled",
			message: "Your appointment with Dr. Strange on 2025-01-10 was canceled.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.emit()
			require.NoError(t, err)
			assert.Equal(t, tt.to.Type, got.RecipientType)
			assert.Equal(t, tt.to.ID, got.RecipientID)
			assert.Equal(t, s.AppointmentID, got.AppointmentID)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.message, got.Message)
			assert.False(t, got.Read)
		})
	}
}

func TestServiceMarkRead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := notification.NewService(store.Notifications())
	s := subject()

	created, err := notification.NewNotifier(store.Notifications()).NotifyDoctorOnRequest(ctx, s)
	require.NoError(t, err)

	doctor := identity.Caller{Role: identity.RoleDoctor, OwnerID: s.DoctorID}
	stranger := identity.Caller{Role: identity.RoleDoctor, OwnerID: uuid.New()}

	assert.ErrorIs(t, svc.MarkRead(ctx, stranger, created.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, svc.MarkRead(ctx, doctor, uuid.New()), apperr.ErrNotFound)

	count, err := svc.UnreadCount(ctx, doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkRead(ctx, doctor, created.ID))
	require.NoError(t, svc.MarkRead(ctx, doctor, created.ID))

	count, err = svc.UnreadCount(ctx, doctor)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = svc.List(ctx, identity.Caller{Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.List(ctx, identity.Caller{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestServiceMarkAllRead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := notification.NewService(store.Notifications())
	n := notification.NewNotifier(store.Notifications())
	s := subject()

	_, err := n.NotifyPatientOnDecision(ctx, s, true, nil)
	require.NoError(t, err)
	_, err = n.NotifyOnCancel(ctx, s, notification.RecipientDoctor)
	require.NoError(t, err)
	_, err = n.NotifyDoctorOnRequest(ctx, s)
	require.NoError(t, err)

	patient := identity.Caller{Role: identity.RolePatient, OwnerID: s.PatientID}
	changed, err := svc.MarkAllRead(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	doctorUnread, err := svc.UnreadCount(ctx, identity.Caller{Role: identity.RoleDoctor, OwnerID: s.DoctorID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doctorUnread)
}

type fakePublisher struct {
	sent   []notification.Notification
	failOn int
}

func (p *fakePublisher) Publish(_ context.Context, n notification.Notification) error {
	if p.failOn > 0 && len(p.sent)+1 == p.failOn {
		return errors.New("broker down")
	}
	p.sent = append(p.sent, n)
	return nil
}

func TestRelayPublishesOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	n := notification.NewNotifier(store.Notifications())
	for i := 0; i < 3; i++ {
		_, err := n.NotifyDoctorOnRequest(ctx, subject())
		require.NoError(t, err)
	}

	pub := &fakePublisher{}
	relay := notification.NewRelay(store.Outbox(), pub, 2, zap.NewNop())

	count, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, pub.sent, 3)
}

func TestRelayStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	n := notification.NewNotifier(store.Notifications())
	for i := 0; i < 3; i++ {
		_, err := n.NotifyDoctorOnRequest(ctx, subject())
		require.NoError(t, err)
	}

	pub := &fakePublisher{failOn: 2}
	relay := notification.NewRelay(store.Outbox(), pub, 10, zap.NewNop())

	count, err := relay.RunOnce(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, count)

	pending, err := store.Notifications().ListUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
