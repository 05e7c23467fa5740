// Package memstore keeps every scheduling store in process memory. It backs
// STORE_BACKEND=memory and the tests. Writes made through a unit of work
// are applied to a copy and swapped in on success, and the store mutex is
// held for the whole unit, so check-then-insert sequences are atomic.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
)

type data struct {
	doctors       map[uuid.UUID]directory.Doctor
	patients      map[uuid.UUID]directory.Patient
	slots         map[uuid.UUID]availability.Slot
	appointments  map[uuid.UUID]appointment.Appointment
	records       []record.MedicalRecord
	notifications []notification.Notification
}

func newData() *data {
	return &data{
		doctors:      make(map[uuid.UUID]directory.Doctor),
		patients:     make(map[uuid.UUID]directory.Patient),
		slots:        make(map[uuid.UUID]availability.Slot),
		appointments: make(map[uuid.UUID]appointment.Appointment),
	}
}

func (d *data) clone() *data {
	c := &data{
		doctors:       make(map[uuid.UUID]directory.Doctor, len(d.doctors)),
		patients:      make(map[uuid.UUID]directory.Patient, len(d.patients)),
		slots:         make(map[uuid.UUID]availability.Slot, len(d.slots)),
		appointments:  make(map[uuid.UUID]appointment.Appointment, len(d.appointments)),
		records:       append([]record.MedicalRecord(nil), d.records...),
		notifications: append([]notification.Notification(nil), d.notifications...),
	}
	for k, v := range d.doctors {
		c.doctors[k] = v
	}
	for k, v := range d.patients {
		c.patients[k] = v
	}
	for k, v := range d.slots {
		c.slots[k] = v
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newData(), now: time.Now}
}

// SetNow replaces the timestamp source used for created/updated times.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// handle runs operations either against the live data under the store
// mutex, or against a unit-of-work copy whose caller already holds it.
type handle struct {
	s  *Store
	tx *data
}

func (h handle) run(fn func(d *data) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return fn(h.s.data)
}

func (h handle) now() time.Time {
	return h.s.now().UTC()
}

func (s *Store) Slots() *Slots                 { return &Slots{handle{s: s}} }
func (s *Store) Appointments() *Appointments   { return &Appointments{handle{s: s}} }
func (s *Store) Records() *Records             { return &Records{handle{s: s}} }
func (s *Store) Notifications() *Notifications { return &Notifications{handle{s: s}} }
func (s *Store) Directory() *Directory         { return &Directory{handle{s: s}} }

func reposFor(h handle) booking.Repos {
	return booking.Repos{
		Appointments:  &Appointments{h},
		Slots:         &Slots{h},
		Records:       &Records{h},
		Notifications: &Notifications{h},
		Directory:     &Directory{h},
	}
}

// Do implements booking.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r booking.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(ctx, reposFor(handle{s: s, tx: tx})); err != nil {
		return err
	}
	s.data = tx
	return nil
}

// Outbox adapts the store to notification.Outbox.
func (s *Store) Outbox() notification.Outbox {
	return outbox{s}
}

type outbox struct{ s *Store }

func (o outbox) Do(ctx context.Context, fn func(ctx context.Context, repo notification.Repository) error) error {
	return o.s.Do(ctx, func(ctx context.Context, r booking.Repos) error {
		return fn(ctx, r.Notifications)
	})
}

// Repos returns store handles that each lock for a single call.
func (s *Store) Repos() booking.Repos {
	return reposFor(handle{s: s})
}
