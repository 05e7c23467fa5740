package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/seed"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

// seedMemory fills an empty in-memory store with demo data and logs a token
// per demo identity so the API can be tried by hand.
func seedMemory(store *memstore.Store, resolver *identity.JWTResolver, zlog *zap.Logger) {
	today := timeslot.DateOf(time.Now())
	tomorrow := timeslot.DateOf(time.Now().AddDate(0, 0, 1))
	plan := seed.Generate(seed.Options{Doctors: 3, Patients: 3, Days: []timeslot.Date{today, tomorrow}})

	dir := store.Directory()
	for _, d := range plan.Doctors {
		dir.AddDoctor(d)
	}
	for _, p := range plan.Patients {
		dir.AddPatient(p)
	}
	for _, s := range plan.Slots {
		if _, err := store.Slots().Create(context.Background(), s); err != nil {
			zlog.Warn("seed slot rejected", zap.Stringer("range", s.Range()), zap.Error(err))
		}
	}

	issue := func(c identity.Caller, name string) {
		tok, err := resolver.Issue(c, 24*time.Hour)
		if err != nil {
			zlog.Warn("issue demo token", zap.Error(err))
			return
		}
		zlog.Info("demo identity",
			zap.String("role", string(c.Role)),
			zap.String("name", name),
			zap.String("id", c.OwnerID.String()),
			zap.String("token", tok),
		)
	}
	for _, d := range plan.Doctors {
		issue(identity.Caller{Role: identity.RoleDoctor, OwnerID: d.ID}, d.Name)
	}
	for _, p := range plan.Patients {
		issue(identity.Caller{Role: identity.RolePatient, OwnerID: p.ID}, p.Name)
	}
	issue(identity.Caller{Role: identity.RoleAdmin}, "admin")
}
