package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register mounts every endpoint on r.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/collectors/{id:[0-9]+}/route", h.DailyRoute).Methods(http.MethodGet)
	r.HandleFunc("/collectors/{id:[0-9]+}/route.xlsx", h.RouteSheet).Methods(http.MethodGet)
	r.HandleFunc("/collectors/{id:[0-9]+}/payments", h.Payments).Methods(http.MethodGet)

	r.HandleFunc("/payments", h.RecordPayment).Methods(http.MethodPost)
	r.HandleFunc("/payments/sync", h.SyncPayments).Methods(http.MethodPost)
	r.HandleFunc("/payments/{id}/corrections", h.CorrectPayment).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	admin.HandleFunc("/debts", h.CreateDebt).Methods(http.MethodPost)
	admin.HandleFunc("/debts/{id}/close", h.CloseDebt).Methods(http.MethodPost)
	admin.HandleFunc("/routes", h.CreateRoute).Methods(http.MethodPost)
	admin.HandleFunc("/routes/{id}/stops", h.ReplaceRouteStops).Methods(http.MethodPut)
	admin.HandleFunc("/assignments", h.CreateAssignment).Methods(http.MethodPost)
	admin.HandleFunc("/assignments/{id}", h.CancelAssignment).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id:[0-9]+}/denials", h.Denials).Methods(http.MethodGet)

	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/import", h.Import).Methods(http.MethodPost)
}
