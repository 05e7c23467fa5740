package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

// Notifier persists notification records for appointment events. It is
// built over whatever Repository the caller's unit of work provides so the
// record commits with the transition that triggered it.
type Notifier struct {
	repo Repository
}

func NewNotifier(repo Repository) *Notifier {
	return &Notifier{repo: repo}
}

// Emit stores one unread notification.
func (n *Notifier) Emit(ctx context.Context, appointmentID uuid.UUID, to Recipient, title, message string) (*Notification, error) {
	created, err := n.repo.Insert(ctx, Notification{
		AppointmentID: appointmentID,
		RecipientType: to.Type,
		RecipientID:   to.ID,
		Title:         title,
		Message:       message,
	})
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

// Subject carries what the message templates need about an appointment.
type Subject struct {
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	DoctorName    string
	PatientID     uuid.UUID
	PatientName   string
	Range         timeslot.Range
}

func (n *Notifier) NotifyDoctorOnRequest(ctx context.Context, s Subject) (*Notification, error) {
	msg := fmt.Sprintf("Patient %s request an appointment on %s from %s to %s",
		s.PatientName, s.Range.Date, s.Range.Start, s.Range.End)
	return n.Emit(ctx, s.AppointmentID, Recipient{Type: RecipientDoctor, ID: s.DoctorID}, "New appointment request", msg)
}

// NotifyPatientOnDecision covers both confirm and reject. A nil reason on
// rejection renders as N/A.
func (n *Notifier) NotifyPatientOnDecision(ctx context.Context, s Subject, confirmed bool, reason *string) (*Notification, error) {
	to := Recipient{Type: RecipientPatient, ID: s.PatientID}
	if confirmed {
		msg := fmt.Sprintf("Your appointment with Dr. %s on %s is confirmed.", s.DoctorName, s.Range.Date)
		return n.Emit(ctx, s.AppointmentID, to, "Appointment confirmed", msg)
	}

	why := "N/A"
	if reason != nil && *reason != "" {
		why = *reason
	}
	msg := fmt.Sprintf("Your appointment with Dr. %s on %s was rejected. Reason: %s", s.DoctorName, s.Range.Date, why)
	return n.Emit(ctx, s.AppointmentID, to, "Appointment rejected", msg)
}

func (n *Notifier) NotifyPatientOnReschedule(ctx context.Context, s Subject, from timeslot.Range) (*Notification, error) {
	msg := fmt.Sprintf("Your appointment with Dr. %s on %s from %s to %s was moved to %s from %s to %s.",
		s.DoctorName, from.Date, from.Start, from.End, s.Range.Date, s.Range.Start, s.Range.End)
	return n.Emit(ctx, s.AppointmentID, Recipient{Type: RecipientPatient, ID: s.PatientID}, "Appointment rescheduled", msg)
}

// NotifyOnCancel tells the party that did not cancel.
func (n *Notifier) NotifyOnCancel(ctx context.Context, s Subject, canceledBy RecipientType) (*Notification, error) {
	if canceledBy == RecipientPatient {
		msg := fmt.Sprintf("Patient %s canceled the appointment on %s from %s to %s",
			s.PatientName, s.Range.Date, s.Range.Start, s.Range.End)
		return n.Emit(ctx, s.AppointmentID, Recipient{Type: RecipientDoctor, ID: s.DoctorID}, "Appointment canceled", msg)
	}
	msg := fmt.Sprintf("Your appointment with Dr. %s on %s was canceled.", s.DoctorName, s.Range.Date)
	return n.Emit(ctx, s.AppointmentID, Recipient{Type: RecipientPatient, ID: s.PatientID}, "Appointment canceled", msg)
}
