package http

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"campusfest/internal/delivery/http/controllers"
	"campusfest/internal/delivery/http/helpers"
	"campusfest/internal/delivery/http/middleware"
	"campusfest/internal/domain"
)

// Controllers groups the handlers the router mounts.
type Controllers struct {
	Auth         *controllers.AuthController
	Events       *controllers.EventController
	Registration *controllers.RegistrationController
	Attendance   *controllers.AttendanceController
	Teams        *controllers.TeamController
}

// NewRouter initializes the HTTP router with all application routes and the global middleware stack.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)

	// Catalog
	mux.HandleFunc("GET /events", c.Events.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", c.Events.GetEvent)
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.UpdateEvent))
	mux.HandleFunc("PUT /events/{eventID}/structure", auth(c.Events.UpdateEventStructure))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(c.Registration.Register))
	mux.HandleFunc("GET /events/{eventID}/registrations", auth(c.Registration.ListByEvent))
	mux.HandleFunc("GET /me/registrations", auth(c.Registration.ListMine))
	mux.HandleFunc("GET /registrations/{registrationID}", auth(c.Registration.Get))
	mux.HandleFunc("PUT /registrations/{registrationID}/status", auth(c.Registration.SetStatus))
	mux.HandleFunc("PUT /registrations/{registrationID}/payment-proof", auth(c.Registration.UpdatePaymentProof))
	mux.HandleFunc("POST /registrations/{registrationID}/cancel", auth(c.Registration.Cancel))

	// Attendance
	mux.HandleFunc("POST /attendance", auth(c.Attendance.MarkAttendance))

	// Teams
	mux.HandleFunc("POST /events/{eventID}/teams", auth(c.Teams.CreateTeam))
	mux.HandleFunc("GET /events/{eventID}/teams", auth(c.Teams.ListTeams))
	mux.HandleFunc("POST /teams/join", auth(c.Teams.JoinTeam))
	mux.HandleFunc("DELETE /teams/{teamID}/members/me", auth(c.Teams.LeaveTeam))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.CORS(allowedOrigins, handler)
	handler = chimw.Recoverer(handler)
	handler = middleware.LoggingMiddleware(logger, handler)
	handler = chimw.RealIP(handler)
	handler = chimw.RequestID(handler)
	return handler
}
