package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check and metrics
	r.Get("/health", s.HandleHealth)
	r.Method("GET", "/metrics", promhttp.Handler())

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.HandleRegister)
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/logout", s.HandleLogout)
			r.Get("/me", s.HandleGetCurrentUser)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Rooms
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.HandleListRooms)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetRoom)
				r.Put("/", s.HandleSaveRoom)
				r.Delete("/", s.HandleDeleteRoom)
			})
		})

		// Contracts
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", s.HandleListContracts)
			r.Post("/", s.HandleCreateContract)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetContract)
				r.Put("/", s.HandleUpdateContract)
				r.Post("/terminate", s.HandleTerminateContract)
				r.Post("/renew", s.HandleRenewContract)
			})
		})

		// Meter readings
		r.Route("/meter-readings", func(r chi.Router) {
			r.Get("/", s.HandleListMeterReadings)
			r.Post("/", s.HandleCreateMeterReading)
			r.Get("/latest", s.HandleLatestMeterReading)
		})

		// Billing
		r.Route("/billing", func(r chi.Router) {
			r.Get("/", s.HandleListBilling)
			r.Post("/", s.HandleCreateBilling)
			r.Post("/generate", s.HandleGenerateBilling)
			r.Post("/{id}/pay", s.HandleMarkBillingPaid)
		})

		// Outbound integrations
		r.Route("/integrations", func(r chi.Router) {
			r.Get("/", s.HandleGetIntegrations)
			r.Put("/webhook", s.HandleUpdateWebhookIntegration)
			r.Put("/mqtt", s.HandleUpdateMQTTIntegration)
		})

		// Dashboard
		r.Get("/dashboard/summary", s.HandleDashboardSummary)

		// Starter data for a fresh account
		r.Post("/bootstrap/defaults", s.HandleInitializeDefaults)
	})
}
