package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

func TestJWTResolver(t *testing.T) {
	r := NewJWTResolver("test-secret", "clinic")
	doctorID := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		token, err := r.Issue(Caller{Role: RoleDoctor, OwnerID: doctorID}, time.Minute)
		require.NoError(t, err)

		caller, err := r.Resolve(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, RoleDoctor, caller.Role)
		assert.Equal(t, doctorID, caller.OwnerID)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := r.Issue(Caller{Role: RolePatient, OwnerID: uuid.New()}, -time.Minute)
		require.NoError(t, err)

		_, err = r.Resolve(context.Background(), token)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTResolver("other-secret", "clinic")
		token, err := other.Issue(Caller{Role: RolePatient, OwnerID: uuid.New()}, time.Minute)
		require.NoError(t, err)

		_, err = r.Resolve(context.Background(), token)
		assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestCallerRoles(t *testing.T) {
	patient := Caller{Role: RolePatient, OwnerID: uuid.New()}
	doctor := Caller{Role: RoleDoctor, OwnerID: uuid.New()}

	id, err := patient.PatientID()
	require.NoError(t, err)
	assert.Equal(t, patient.OwnerID, id)

	_, err = patient.DoctorID()
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = doctor.PatientID()
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = Caller{}.DoctorID()
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	assert.Error(t, doctor.RequireAdmin())
	assert.NoError(t, Caller{Role: RoleAdmin}.RequireAdmin())
}
