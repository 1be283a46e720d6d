package handlers

import "net/http"

// Register mounts the public and admin API on mux.
func Register(mux *http.ServeMux, avail *AvailabilityHandler, meetings *MeetingHandler, admin *AdminHandler) {
	mux.HandleFunc("/api/v1/availability", avail.Availability)
	mux.HandleFunc("/api/v1/availability/slots", avail.Slots)
	mux.HandleFunc("/api/v1/constraints", avail.Constraints)
	mux.HandleFunc("/api/v1/meetings", meetings.Create)

	mux.HandleFunc("/api/v1/admin/login", admin.Login)
	mux.Handle("/api/v1/admin/meetings", admin.RequireAdmin(http.HandlerFunc(admin.List)))
	mux.Handle("/api/v1/admin/meetings/decision", admin.RequireAdmin(http.HandlerFunc(admin.Decide)))
}
