package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrUnauthenticated = apperr.New(apperr.ErrUnauthorized, "caller is not authenticated")
	ErrNotPatient      = apperr.New(apperr.ErrForbidden, "caller is not a patient")
	ErrNotDoctor       = apperr.New(apperr.ErrForbidden, "caller is not a doctor")
	ErrNotAdmin        = apperr.New(apperr.ErrForbidden, "caller is not an admin")
)

// Caller is the resolved identity of a request. OwnerID is the doctor id for
// doctors and the patient id for patients.
type Caller struct {
	Role    Role
	OwnerID uuid.UUID
}

func (c Caller) IsZero() bool { return c.Role == "" }

func (c Caller) PatientID() (uuid.UUID, error) {
	if c.IsZero() {
		return uuid.Nil, ErrUnauthenticated
	}
	if c.Role != RolePatient {
		return uuid.Nil, ErrNotPatient
	}
	return c.OwnerID, nil
}

func (c Caller) DoctorID() (uuid.UUID, error) {
	if c.IsZero() {
		return uuid.Nil, ErrUnauthenticated
	}
	if c.Role != RoleDoctor {
		return uuid.Nil, ErrNotDoctor
	}
	return c.OwnerID, nil
}

func (c Caller) RequireAdmin() error {
	if c.IsZero() {
		return ErrUnauthenticated
	}
	if c.Role != RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// Resolver turns a bearer credential into a Caller.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Caller, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
