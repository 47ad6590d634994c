// Package integration forwards document change events to the external
// systems a landlord has configured: an HTTP webhook, an MQTT broker, or
// both. It rides the same NATS subjects the store publishes on.
package integration

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// forwardedCollections are the collections whose changes leave the system
var forwardedCollections = []string{
	docstore.CollectionBillingHistory,
	docstore.CollectionContracts,
}

// ForwarderService forwards document changes to per-user integrations
type ForwarderService struct {
	nc    *nats.Conn
	store docstore.Store

	// MQTT client pool, one client per user
	mqttClients map[uuid.UUID]mqtt.Client
	clientsMu   sync.RWMutex

	httpClient *http.Client
}

// NewForwarderService creates a forwarder service
func NewForwarderService(nc *nats.Conn, store docstore.Store) *ForwarderService {
	return &ForwarderService{
		nc:          nc,
		store:       store,
		mqttClients: make(map[uuid.UUID]mqtt.Client),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Start subscribes to the forwarded collections and blocks until ctx is
// cancelled.
func (s *ForwarderService) Start(ctx context.Context) error {
	subs := make([]*nats.Subscription, 0, len(forwardedCollections))
	for _, collection := range forwardedCollections {
		subject := fmt.Sprintf("docs.*.%s", collection)
		sub, err := s.nc.Subscribe(subject, s.handleChangeEvent)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	log.Info().Msg("Integration forwarder service started")

	<-ctx.Done()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.closeAllMQTTConnections()

	return nil
}

// handleChangeEvent fans one document change out to the owner's
// configured integrations.
func (s *ForwarderService) handleChangeEvent(msg *nats.Msg) {
	var ev docstore.ChangeEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("Failed to parse change event")
		return
	}

	userID, err := uuid.Parse(ev.UserID)
	if err != nil {
		return
	}

	ctx := context.Background()
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", ev.UserID).Msg("Failed to load user for forwarding")
		return
	}
	if user.Integrations == nil {
		return
	}

	// Deletes forward the event alone; everything else carries the
	// current document.
	var doc map[string]interface{}
	if ev.Action != "delete" {
		stored, err := s.store.Get(ctx, ev.UserID, ev.Collection, ev.DocID)
		if err != nil {
			log.Error().Err(err).Str("doc_id", ev.DocID).Msg("Failed to load changed document")
			return
		}
		doc = stored.Data
		doc["id"] = stored.ID
	}

	payload := map[string]interface{}{
		"userId":     ev.UserID,
		"collection": ev.Collection,
		"docId":      ev.DocID,
		"action":     ev.Action,
		"document":   doc,
		"timestamp":  time.Now().UTC(),
	}

	if w := user.Integrations.Webhook; w != nil && w.Enabled {
		go s.forwardToWebhook(w, payload)
	}
	if m := user.Integrations.MQTT; m != nil && m.Enabled {
		go s.forwardToMQTT(userID, m, ev, payload)
	}
}

// forwardToWebhook posts the event to the user's HTTP endpoint
func (s *ForwarderService) forwardToWebhook(cfg *models.WebhookIntegration, payload map[string]interface{}) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequest("POST", cfg.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create webhook request")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().
			Err(err).
			Str("endpoint", cfg.Endpoint).
			Msg("Failed to forward event to webhook")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", cfg.Endpoint).
			Msg("Webhook forward failed")
	} else {
		log.Debug().
			Str("endpoint", cfg.Endpoint).
			Msg("Event forwarded to webhook")
	}
}

// forwardToMQTT publishes the event to the user's broker
func (s *ForwarderService) forwardToMQTT(userID uuid.UUID, cfg *models.MQTTIntegration, ev docstore.ChangeEvent, payload map[string]interface{}) {
	client := s.getMQTTClient(userID)
	if client == nil {
		client = s.createMQTTClient(userID, cfg)
		if client == nil {
			return
		}
	}

	topic := expandTopic(cfg.TopicPattern, ev)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal MQTT payload")
		return
	}

	token := client.Publish(topic, cfg.QoS, false, jsonData)
	if token.WaitTimeout(5 * time.Second) {
		if err := token.Error(); err != nil {
			log.Error().
				Err(err).
				Str("topic", topic).
				Msg("Failed to publish to MQTT")
		} else {
			log.Debug().
				Str("topic", topic).
				Msg("Event forwarded to MQTT")
		}
	} else {
		log.Error().
			Str("topic", topic).
			Msg("MQTT publish timeout")
	}
}

// expandTopic fills the pattern's placeholders; an empty pattern gets a
// sensible default.
func expandTopic(pattern string, ev docstore.ChangeEvent) string {
	if pattern == "" {
		pattern = "rentledger/{uid}/{collection}"
	}
	topic := pattern
	topic = strings.ReplaceAll(topic, "{uid}", ev.UserID)
	topic = strings.ReplaceAll(topic, "{collection}", ev.Collection)
	topic = strings.ReplaceAll(topic, "{doc_id}", ev.DocID)
	return topic
}

// getMQTTClient returns the pooled client when it is connected
func (s *ForwarderService) getMQTTClient(userID uuid.UUID) mqtt.Client {
	s.clientsMu.RLock()
	client, exists := s.mqttClients[userID]
	s.clientsMu.RUnlock()

	if exists && client.IsConnected() {
		return client
	}

	return nil
}

// createMQTTClient connects a client for the user and pools it
func (s *ForwarderService) createMQTTClient(userID uuid.UUID, cfg *models.MQTTIntegration) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(fmt.Sprintf("rentledger-%s", userID))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().
			Str("user_id", userID.String()).
			Msg("MQTT client connected")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Error().
			Err(err).
			Str("user_id", userID.String()).
			Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	if token.WaitTimeout(10*time.Second) && token.Error() == nil {
		s.clientsMu.Lock()
		s.mqttClients[userID] = client
		s.clientsMu.Unlock()
		return client
	}

	log.Error().
		Err(token.Error()).
		Str("user_id", userID.String()).
		Msg("Failed to connect MQTT client")

	return nil
}

// closeAllMQTTConnections disconnects the pool
func (s *ForwarderService) closeAllMQTTConnections() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for userID, client := range s.mqttClients {
		if client.IsConnected() {
			client.Disconnect(250)
		}
		delete(s.mqttClients, userID)

		log.Info().
			Str("user_id", userID.String()).
			Msg("MQTT client disconnected")
	}
}
