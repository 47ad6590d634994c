package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a landlord account. Every domain document is scoped
// under the owning user's id.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email       string `json:"email" db:"email"`
	DisplayName string `json:"displayName" db:"display_name"`

	PasswordHash string `json:"-" db:"password_hash"`

	EmailVerified bool `json:"emailVerified" db:"email_verified"`
	IsActive      bool `json:"isActive" db:"is_active"`

	// TokenGeneration is bumped on logout; refresh tokens minted for an
	// older generation are rejected.
	TokenGeneration int `json:"-" db:"token_generation"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Integrations *IntegrationSettings `json:"integrations,omitempty" db:"integrations"`
}

// IntegrationSettings configures outbound event forwarding for a user
type IntegrationSettings struct {
	Webhook *WebhookIntegration `json:"webhook,omitempty"`
	MQTT    *MQTTIntegration    `json:"mqtt,omitempty"`
}

// WebhookIntegration forwards billing and contract events to an HTTP endpoint
type WebhookIntegration struct {
	Enabled  bool              `json:"enabled"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// MQTTIntegration publishes billing and contract events to an MQTT broker
type MQTTIntegration struct {
	Enabled      bool   `json:"enabled"`
	BrokerURL    string `json:"brokerUrl"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	TopicPattern string `json:"topicPattern"` // {uid} and {collection} are expanded
	QoS          byte   `json:"qos"`
	TLS          bool   `json:"tls"`
}
