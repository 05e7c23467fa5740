package booking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
)

// Repos is the set of stores visible inside one unit of work.
type Repos struct {
	Appointments  appointment.Repository
	Slots         availability.Repository
	Records       record.Repository
	Notifications notification.Repository
	Directory     directory.Repository
}

// UnitOfWork runs fn so that every write made through the given Repos
// commits together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// PgUnitOfWork binds the Postgres repositories to one transaction.
type PgUnitOfWork struct {
	pool *pgxpool.Pool
}

func NewPgUnitOfWork(pool *pgxpool.Pool) *PgUnitOfWork {
	return &PgUnitOfWork{pool: pool}
}

func PgRepos(q db.Querier) Repos {
	return Repos{
		Appointments:  appointment.NewPgRepository(q),
		Slots:         availability.NewPgRepository(q),
		Records:       record.NewPgRepository(q),
		Notifications: notification.NewPgRepository(q),
		Directory:     directory.NewPgRepository(q),
	}
}

// Do maps a serialization failure to appointment.ErrConcurrentUpdate.
func (u *PgUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	err := db.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, PgRepos(tx))
	})
	return translateTxErr(err)
}

func translateTxErr(err error) error {
	if db.IsSerializationFailure(err) {
		return apperr.Wrapf(appointment.ErrConcurrentUpdate, "serialization failure: %v", err)
	}
	return err
}
