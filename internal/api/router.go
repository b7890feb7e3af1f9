package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public surface. Paths and methods follow the observed
// API contract; /health and /metrics are operational endpoints.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Instrument)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/accounts/{id:[0-9]+}/balance", h.GetBalance).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id:[0-9]+}/entries", h.GetEntries).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/transfer", h.Transfer).Methods(http.MethodPost)
	v1.HandleFunc("/users/register", h.Register).Methods(http.MethodPost)
	v1.HandleFunc("/users/login", h.Login).Methods(http.MethodPost)
	v1.HandleFunc("/users/logout", h.Logout).Methods(http.MethodPost)

	return r
}
