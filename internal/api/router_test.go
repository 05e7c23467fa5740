package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/memstore"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
)

var now = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

type testServer struct {
	handler  http.Handler
	resolver *identity.JWTResolver

	doctor  directory.Doctor
	patient directory.Patient
	other   directory.Patient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memstore.New()
	store.SetNow(func() time.Time { return now })
	log := zap.NewNop()
	m := metrics.NewCollector("apitest")
	resolver := identity.NewJWTResolver("test-secret", "clinic")

	engine := booking.NewEngine(booking.Deps{
		UnitOfWork: store,
		Reads:      store.Repos(),
		Clock:      identity.FixedClock{T: now},
		Metrics:    m,
		Logger:     log,
	})

	health := api.NewHealthHandler(
		map[string]api.Check{"store": func(context.Context) error { return nil }},
		map[string]api.Check{"redis": func(context.Context) error { return errors.New("down") }},
		"test", "v0",
	)

	dir := store.Directory()
	ts := &testServer{
		resolver: resolver,
		doctor:   dir.AddDoctor(directory.Doctor{Name: "Meredith Grey"}),
		patient:  dir.AddPatient(directory.Patient{Name: "Alice"}),
		other:    dir.AddPatient(directory.Patient{Name: "Bob"}),
	}
	ts.handler = api.NewRouter(api.RouterConfig{
		Engine:        engine,
		Availability:  availability.NewManager(store.Slots(), store.Directory(), log),
		Notifications: notification.NewService(store.Notifications()),
		Records:       record.NewService(store.Records()),
		Resolver:      resolver,
		Metrics:       m,
		Logger:        log,
		Health:        health,
	})
	return ts
}

func (ts *testServer) token(t *testing.T, role identity.Role, id uuid.UUID) string {
	t.Helper()
	tok, err := ts.resolver.Issue(identity.Caller{Role: role, OwnerID: id}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var slotBody = map[string]any{"date": "2025-01-10", "start_time": "09:00", "end_time": "09:30"}

func TestBookingFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	doctorTok := ts.token(t, identity.RoleDoctor, ts.doctor.ID)
	patientTok := ts.token(t, identity.RolePatient, ts.patient.ID)

	rec := ts.do(t, http.MethodPost, "/availability", doctorTok, slotBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	slot := decode[api.SlotResponse](t, rec)
	assert.True(t, slot.IsOpen)

	rec = ts.do(t, http.MethodPost, "/appointments", patientTok, map[string]any{
		"doctor_id":  ts.doctor.ID.String(),
		"date":       "2025-01-10",
		"start_time": "09:00",
		"end_time":   "09:30",
		"reason":     "checkup",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode[api.AppointmentResponse](t, rec)
	assert.Equal(t, "PENDING", string(appt.Status))
	assert.Equal(t, "Meredith Grey", appt.Doctor.Name)
	assert.Equal(t, "Alice", appt.Patient.Name)

	rec = ts.do(t, http.MethodGet, "/notifications/unread-count", doctorTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[api.CountResponse](t, rec).Count)

	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", doctorTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CONFIRMED", string(decode[api.AppointmentResponse](t, rec).Status))

	rec = ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/complete", doctorTok, map[string]any{
		"diagnosis": "healthy",
		"prescriptions": []map[string]any{
			{"medication_name": "Vitamin D", "dosage": "1000 IU", "instructions": "daily"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[api.CompleteResponse](t, rec)
	assert.Equal(t, "COMPLETED", string(done.Appointment.Status))
	require.Len(t, done.Record.Prescriptions, 1)

	rec = ts.do(t, http.MethodGet, "/records", patientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.RecordResponse](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/appointments/today", doctorTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.AppointmentResponse](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/doctors/me/stats", doctorTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[booking.Stats](t, rec)
	assert.Equal(t, int64(1), stats.TodayAppointments)
	assert.Equal(t, int64(0), stats.PendingReviews)

	rec = ts.do(t, http.MethodPost, "/notifications/read-all", patientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[api.CountResponse](t, rec).Count)
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	doctorTok := ts.token(t, identity.RoleDoctor, ts.doctor.ID)
	patientTok := ts.token(t, identity.RolePatient, ts.patient.ID)
	otherTok := ts.token(t, identity.RolePatient, ts.other.ID)

	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/availability", doctorTok, slotBody).Code)

	book := map[string]any{
		"doctor_id":  ts.doctor.ID.String(),
		"date":       "2025-01-10",
		"start_time": "09:00",
		"end_time":   "09:30",
	}

	t.Run("anonymous", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/appointments", "", book).Code)
	})

	t.Run("bad token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/appointments", "garbage", nil).Code)
	})

	t.Run("doctor cannot book", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/appointments", doctorTok, book).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/appointments", patientTok, map[string]any{"doctor_id": "nope", "date": "10/01/2025"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[api.ErrorResponse](t, rec)
		assert.Equal(t, "validation_failed", body.Error)
		assert.Contains(t, body.Fields, "doctor_id failed uuid")
	})

	t.Run("end before start", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/appointments", patientTok, map[string]any{
			"doctor_id":  ts.doctor.ID.String(),
			"date":       "2025-01-10",
			"start_time": "10:00",
			"end_time":   "09:00",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no matching slot", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/appointments", patientTok, map[string]any{
			"doctor_id":  ts.doctor.ID.String(),
			"date":       "2025-01-10",
			"start_time": "11:00",
			"end_time":   "11:30",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	rec := ts.do(t, http.MethodPost, "/appointments", patientTok, book)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode[api.AppointmentResponse](t, rec)

	t.Run("slot taken", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/appointments", otherTok, book)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "slot_already_booked", decode[api.ErrorResponse](t, rec).Error)
	})

	t.Run("foreign patient cannot view", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), otherTok, nil).Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/appointments/not-a-uuid", patientTok, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_id", decode[api.ErrorResponse](t, rec).Error)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/appointments/00000000-0000-0000-0000-000000000001", patientTok, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deleted doctor adds slot", func(t *testing.T) {
		ghostTok := ts.token(t, identity.RoleDoctor, uuid.New())
		rec := ts.do(t, http.MethodPost, "/availability", ghostTok, slotBody)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("invalid transition", func(t *testing.T) {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reject", doctorTok, nil).Code)
		rec := ts.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", doctorTok, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "invalid_status_transition", decode[api.ErrorResponse](t, rec).Error)
	})
}

func TestAvailabilityEndpoints(t *testing.T) {
	ts := newTestServer(t)
	doctorTok := ts.token(t, identity.RoleDoctor, ts.doctor.ID)
	patientTok := ts.token(t, identity.RolePatient, ts.patient.ID)

	rec := ts.do(t, http.MethodPost, "/availability", doctorTok, slotBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	slot := decode[api.SlotResponse](t, rec)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/availability", doctorTok, slotBody).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/availability", patientTok, slotBody).Code)

	rec = ts.do(t, http.MethodGet, "/doctors/available?name=grey", patientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]api.DoctorSlotResponse](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, ts.doctor.ID, found[0].Doctor.ID)

	rec = ts.do(t, http.MethodGet, "/doctors/"+ts.doctor.ID.String()+"/availability?date=2025-01-10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.SlotResponse](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest,
		ts.do(t, http.MethodGet, "/availability?date=tomorrow", doctorTok, nil).Code)

	closed := false
	rec = ts.do(t, http.MethodPut, "/availability/"+slot.ID.String(), doctorTok, map[string]any{
		"date": "2025-01-10", "start_time": "10:00", "end_time": "10:30", "is_open": closed,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[api.SlotResponse](t, rec)
	assert.False(t, updated.IsOpen)
	assert.Equal(t, "10:00", updated.StartTime.String())

	rec = ts.do(t, http.MethodDelete, "/availability/"+slot.ID.String(), doctorTok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/availability", doctorTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.SlotResponse](t, rec))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[api.ReadinessResponse](t, rec)
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "down", ready.Dependencies["redis"])

	ts.do(t, http.MethodGet, "/appointments", "", nil)
	rec = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "apitest_http_requests_total")
}
