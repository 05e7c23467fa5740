package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
)

func listNotificationsHandler(svc *notification.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		if items == nil {
			items = []notification.Notification{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func unreadCountHandler(svc *notification.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.UnreadCount(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{Count: n})
	}
}

func markReadHandler(svc *notification.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.MarkRead(r.Context(), CallerFrom(r.Context()), id); err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func markAllReadHandler(svc *notification.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.MarkAllRead(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{Count: n})
	}
}

func listRecordsHandler(svc *record.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListForCaller(r.Context(), CallerFrom(r.Context()))
		if err != nil {
			writeDomainError(w, r, log, err)
			return
		}

		out := make([]RecordResponse, 0, len(records))
		for _, rec := range records {
			out = append(out, toRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
