package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"finmail/internal/db"
	"finmail/internal/export"
	"finmail/internal/http/handlers"
	"finmail/internal/http/middleware"
	"finmail/internal/http/respond"
	"finmail/internal/security"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	DB             *db.DB
	Auth           *security.Authenticator
	Sessions       *security.SessionManager
	Exporter       export.DocumentExporter
	Sync           handlers.SyncScheduler
	LoginLimiter   *middleware.RateLimiter
	Logger         *slog.Logger
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// Setup builds the router and wraps it in the middleware chain.
//
// Authorization: labels and the auth endpoints are public; everything else
// under /api needs a session.
func Setup(d Deps) http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found")
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(d.DB)
	authHandler := handlers.NewAuthHandler(d.Auth, d.Sessions, d.Logger)
	emailHandler := handlers.NewEmailHandler(d.DB, d.Exporter, d.Logger)
	labelHandler := handlers.NewLabelHandler(d.DB, d.Logger)
	dashboardHandler := handlers.NewDashboardHandler(d.DB, d.Logger)
	exportHandler := handlers.NewExportHandler(d.DB, d.Logger)
	syncHandler := handlers.NewSyncHandler(d.Sync, d.Logger)

	protect := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireSession(h)
	}

	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// Subrouters do not inherit the parent's fallback handlers.
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	login := http.Handler(http.HandlerFunc(authHandler.Login))
	if d.LoginLimiter != nil {
		login = middleware.RateLimit(d.LoginLimiter)(login)
	}
	api.Handle("/auth/login", login).Methods("POST")
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	api.Handle("/auth/me", protect(authHandler.Me)).Methods("GET")

	api.Handle("/dashboard/metrics", protect(dashboardHandler.Metrics)).Methods("GET")
	api.Handle("/dashboard/expenses-by-category", protect(dashboardHandler.ExpensesByCategory)).Methods("GET")
	api.Handle("/dashboard/volume", protect(dashboardHandler.Volume)).Methods("GET")
	api.Handle("/contacts", protect(dashboardHandler.Contacts)).Methods("GET")

	// /emails/export must be registered ahead of /emails/{id}.
	api.Handle("/export/csv", protect(exportHandler.CSV)).Methods("GET")
	api.Handle("/emails/export", protect(exportHandler.CSV)).Methods("GET")

	api.Handle("/emails", protect(emailHandler.List)).Methods("GET")
	api.Handle("/emails", protect(emailHandler.Create)).Methods("POST")
	api.Handle("/emails/{id}", protect(emailHandler.Get)).Methods("GET")
	api.Handle("/emails/{id}", protect(emailHandler.Update)).Methods("PUT")
	api.Handle("/emails/{id}", protect(emailHandler.Delete)).Methods("DELETE")
	api.Handle("/emails/{id}/export", protect(emailHandler.ExportPDF)).Methods("POST")
	api.Handle("/emails/{id}/labels", protect(emailHandler.AddLabel)).Methods("POST")
	api.Handle("/emails/{id}/labels/{labelId:[0-9]+}", protect(emailHandler.RemoveLabel)).Methods("DELETE")
	api.Handle("/emails/{id}/attachments", protect(emailHandler.ListAttachments)).Methods("GET")
	api.Handle("/emails/{id}/attachments", protect(emailHandler.CreateAttachment)).Methods("POST")

	api.HandleFunc("/labels", labelHandler.List).Methods("GET")
	api.HandleFunc("/labels", labelHandler.Create).Methods("POST")
	api.HandleFunc("/labels/{id:[0-9]+}", labelHandler.Update).Methods("PUT")
	api.HandleFunc("/labels/{id:[0-9]+}", labelHandler.Delete).Methods("DELETE")

	api.Handle("/sync", protect(syncHandler.Trigger)).Methods("POST")
	api.Handle("/sync/status", protect(syncHandler.Status)).Methods("GET")

	var h http.Handler = r
	h = middleware.LoadSession(d.Sessions, d.Logger)(h)
	h = middleware.Timeout(d.RequestTimeout)(h)
	if len(d.CORSOrigins) > 0 {
		h = middleware.CORS(middleware.DefaultCORSConfig(d.CORSOrigins))(h)
	}
	h = middleware.Recover(d.Logger)(h)
	h = middleware.Logger(d.Logger)(h)
	h = middleware.RequestID(h)
	return h
}
