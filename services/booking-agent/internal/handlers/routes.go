package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/slotbooker/libs/httpx"
)

// Register mounts the API on mux. Booking runs and attempt history sit behind operator.
func Register(mux *http.ServeMux, h *BookingHandler, operator httpx.Middleware) {
	mux.HandleFunc("/api/v1/overlap", h.Overlap)
	mux.HandleFunc("/api/v1/mock-calendar", h.MockCalendar)
	mux.Handle("/api/v1/bookings", operator(http.HandlerFunc(h.Book)))
	mux.Handle("/api/v1/bookings/summary", operator(http.HandlerFunc(h.Summary)))
}
