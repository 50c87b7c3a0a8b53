package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll/internal/config"
	"github.com/cmlabs-hris/hris-payroll/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	JWTService jwt.Service,
	payrollHandler PayrollHandler,
	notificationHandler NotificationHandler,
	hub *sse.Hub,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
		// Streams stay open for minutes; log them on close only.
		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == "/api/v1/notifications/stream" && respStatus == http.StatusOK
		},
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]interface{}{
			"status":      "ok",
			"sse_streams": hub.TotalSubscribers(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Token travels in the query string; see NotificationHandler.Stream.
		r.Get("/notifications/stream", notificationHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireCompany)

			r.Route("/payroll", func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.Post("/generate", payrollHandler.GeneratePayroll)
				r.Get("/summary", payrollHandler.GetPayrollSummary)

				r.Route("/records", func(r chi.Router) {
					r.Get("/", payrollHandler.ListPayrollRecords)
					r.Get("/{id}", payrollHandler.GetPayrollRecord)
					r.Patch("/{id}/status", payrollHandler.UpdatePayrollStatus)
				})

				r.Route("/payslips", func(r chi.Router) {
					r.Post("/", payrollHandler.GeneratePayslips)
					r.Get("/", payrollHandler.ListPayslips)
					r.Get("/{id}", payrollHandler.GetPayslip)
				})

				r.Route("/salary-structures/{employeeId}", func(r chi.Router) {
					r.Put("/", payrollHandler.UpsertSalaryStructure)
					r.Get("/", payrollHandler.GetActiveSalaryStructure)
					r.Get("/history", payrollHandler.ListSalaryStructures)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/read", notificationHandler.MarkAsRead)
				r.Post("/read-all", notificationHandler.MarkAllAsRead)
				r.Post("/sse-token", notificationHandler.GetSSEToken)
			})
		})
	})
	return r
}
