package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

func TestTranslateTxErr(t *testing.T) {
	serialization := fmt.Errorf("commit tx: %w", &pgconn.PgError{Code: "40001"})
	err := translateTxErr(serialization)
	assert.ErrorIs(t, err, appointment.ErrConcurrentUpdate)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "serialization failure")

	other := errors.New("boom")
	assert.Same(t, other, translateTxErr(other))
	assert.NoError(t, translateTxErr(nil))
}
