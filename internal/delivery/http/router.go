package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"consultations/internal/delivery/http/controllers"
	"consultations/internal/delivery/http/middleware"
	"consultations/internal/domain"
)

// RouterDeps groups what NewRouter wires into the mux.
type RouterDeps struct {
	Slots         *controllers.SlotController
	Reservations  *controllers.ReservationController
	Notifications *controllers.NotificationController
	Verifier      domain.TokenVerifier
	// Limiter guards reservation creation. Nil disables rate limiting.
	Limiter middleware.Limiter
	Logger  *slog.Logger
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(deps RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(deps.Verifier, deps.Logger)
	limit := middleware.RateLimit(deps.Limiter, deps.Logger)

	// Public slot browsing
	mux.HandleFunc("GET /slots", deps.Slots.ListPublicSlots)
	mux.HandleFunc("GET /slots/{slotID}", deps.Slots.GetSlot)
	mux.HandleFunc("GET /slots/{slotID}/remaining-capacity", deps.Slots.RemainingCapacity)

	// Lecturer slots
	mux.HandleFunc("POST /lecturer/slots", auth(deps.Slots.CreateSlot))
	mux.HandleFunc("GET /lecturer/slots", auth(deps.Slots.ListLecturerSlots))
	mux.HandleFunc("POST /lecturer/slots/{slotID}/deactivate", auth(deps.Slots.DeactivateSlot))
	mux.HandleFunc("DELETE /lecturer/slots/{slotID}", auth(deps.Slots.DeleteSlot))

	// Reservations
	mux.HandleFunc("POST /reservations", auth(limit(deps.Reservations.CreateReservation)))
	mux.HandleFunc("GET /reservations/{reservationID}", auth(deps.Reservations.GetReservation))
	mux.HandleFunc("POST /reservations/{reservationID}/accept", auth(deps.Reservations.AcceptReservation))
	mux.HandleFunc("POST /reservations/{reservationID}/reject", auth(deps.Reservations.RejectReservation))
	mux.HandleFunc("POST /reservations/{reservationID}/cancel", auth(deps.Reservations.CancelReservation))
	mux.HandleFunc("POST /reservations/{reservationID}/outcome", auth(deps.Reservations.MarkOutcome))
	mux.HandleFunc("GET /student/reservations", auth(deps.Reservations.ListStudentReservations))
	mux.HandleFunc("GET /lecturer/reservations", auth(deps.Reservations.ListLecturerReservations))

	// Notifications
	mux.HandleFunc("GET /notifications", auth(deps.Notifications.ListNotifications))
	mux.HandleFunc("GET /notifications/unseen-count", auth(deps.Notifications.UnseenCount))
	mux.HandleFunc("PATCH /notifications/{notificationID}/seen", auth(deps.Notifications.MarkSeen))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with the CORS and access log middleware.
func NewHandler(mux *http.ServeMux, allowedOrigins []string, logger *slog.Logger) http.Handler {
	return middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, mux))
}
