package api

import (
	"net/http"

	"github.com/rentledger/rentledger/internal/auth"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Integration Handlers ==========

// HandleGetIntegrations returns the user's outbound integration settings
func (s *RESTServer) HandleGetIntegrations(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	webhook := &models.WebhookIntegration{}
	mqttCfg := &models.MQTTIntegration{}
	if user.Integrations != nil {
		if user.Integrations.Webhook != nil {
			webhook = user.Integrations.Webhook
		}
		if user.Integrations.MQTT != nil {
			// The broker password stays server-side.
			cp := *user.Integrations.MQTT
			cp.Password = ""
			mqttCfg = &cp
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"webhook": webhook,
		"mqtt":    mqttCfg,
	})
}

// HandleUpdateWebhookIntegration updates the HTTP webhook settings
func (s *RESTServer) HandleUpdateWebhookIntegration(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Enabled  bool              `json:"enabled"`
		Endpoint string            `json:"endpoint" validate:"omitempty,url"`
		Headers  map[string]string `json:"headers"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Enabled && req.Endpoint == "" {
		s.respondError(w, http.StatusBadRequest, "endpoint is required when integration is enabled")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	if user.Integrations == nil {
		user.Integrations = &models.IntegrationSettings{}
	}
	user.Integrations.Webhook = &models.WebhookIntegration{
		Enabled:  req.Enabled,
		Endpoint: req.Endpoint,
		Headers:  req.Headers,
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "webhook integration updated",
	})
}

// HandleUpdateMQTTIntegration updates the MQTT publishing settings. An
// omitted password keeps the stored one so the settings form can round-trip
// what GET returns.
func (s *RESTServer) HandleUpdateMQTTIntegration(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Enabled      bool   `json:"enabled"`
		BrokerURL    string `json:"brokerUrl" validate:"omitempty,url"`
		Username     string `json:"username"`
		Password     string `json:"password"`
		TopicPattern string `json:"topicPattern"`
		QoS          byte   `json:"qos" validate:"max=2"`
		TLS          bool   `json:"tls"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Enabled && req.BrokerURL == "" {
		s.respondError(w, http.StatusBadRequest, "broker URL is required when integration is enabled")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	if user.Integrations == nil {
		user.Integrations = &models.IntegrationSettings{}
	}
	if req.Password == "" && user.Integrations.MQTT != nil {
		req.Password = user.Integrations.MQTT.Password
	}
	user.Integrations.MQTT = &models.MQTTIntegration{
		Enabled:      req.Enabled,
		BrokerURL:    req.BrokerURL,
		Username:     req.Username,
		Password:     req.Password,
		TopicPattern: req.TopicPattern,
		QoS:          req.QoS,
		TLS:          req.TLS,
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "MQTT integration updated",
	})
}
