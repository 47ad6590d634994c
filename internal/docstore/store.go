// Package docstore provides the per-user document collections the rest of
// the server is built on: point reads, merge writes, ordered queries and a
// watch primitive that pushes the full current result set on every change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Collection names. Every collection is scoped under the owning user's id,
// the moral equivalent of users/{uid}/<collection>/{id}.
const (
	CollectionRooms          = "rooms"
	CollectionContracts      = "contracts"
	CollectionMeterReadings  = "meterReadings"
	CollectionBillingHistory = "billingHistory"
)

// Document is one stored document. Data never contains the id; shaping
// helpers splice it back in when decoding into domain types.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Query describes an ordered query over one collection: a single sort key,
// an optional equality filter and an optional result limit. OrderBy "id"
// sorts by document id; any other value names a document field, compared
// as text (ISO dates and RFC3339 timestamps sort correctly that way).
type Query struct {
	FilterField string
	FilterValue string
	OrderBy     string
	Desc        bool
	Limit       int
}

// Store defines the document store interface
type Store interface {
	// Document methods
	Get(ctx context.Context, uid, collection, id string) (*Document, error)
	// Set writes with merge semantics: fields absent from data persist.
	Set(ctx context.Context, uid, collection, id string, data map[string]interface{}) error
	// Add stores a new document under a generated id and returns it.
	Add(ctx context.Context, uid, collection string, data map[string]interface{}) (string, error)
	// Update merges data into an existing document; ErrNotFound if absent.
	Update(ctx context.Context, uid, collection, id string, data map[string]interface{}) error
	Delete(ctx context.Context, uid, collection, id string) error
	Query(ctx context.Context, uid, collection string, q Query) ([]Document, error)

	// Watch pushes the full current result set of q immediately and again
	// after every change to the collection. The returned func releases the
	// watch; calling it more than once is safe.
	Watch(ctx context.Context, uid, collection string, q Query, push func([]Document)) (func(), error)

	// User account methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUserIDs(ctx context.Context) ([]string, error)

	// Close the store
	Close() error
}

// Encode turns a domain value into document data via a JSON round trip.
// The id field is stripped; it lives on the Document, not in its data.
func Encode(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	delete(data, "id")
	return data, nil
}

// DecodeInto decodes a document into a domain value, splicing the document
// id back into the data under "id".
func (d Document) DecodeInto(v interface{}) error {
	data := make(map[string]interface{}, len(d.Data)+1)
	for k, val := range d.Data {
		data[k] = val
	}
	data["id"] = d.ID

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// mergeData overlays src onto dst, returning dst. Shared by the store
// implementations for merge-write semantics.
func mergeData(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
