package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/models"
)

// MemoryStore is an in-memory Store implementation, useful for tests and
// simple single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]map[string]map[string]interface{} // uid -> collection -> id -> data
	users map[uuid.UUID]*models.User
	notes *notifier
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]map[string]map[string]interface{}),
		users: make(map[uuid.UUID]*models.User),
		notes: newNotifier(),
	}
}

func (m *MemoryStore) Close() error { return nil }

// collection returns the live map for uid/collection, creating it when
// create is set.
func (m *MemoryStore) collection(uid, collection string, create bool) map[string]map[string]interface{} {
	user, ok := m.docs[uid]
	if !ok {
		if !create {
			return nil
		}
		user = make(map[string]map[string]map[string]interface{})
		m.docs[uid] = user
	}
	col, ok := user[collection]
	if !ok {
		if !create {
			return nil
		}
		col = make(map[string]map[string]interface{})
		user[collection] = col
	}
	return col
}

// Get returns a point snapshot of one document.
func (m *MemoryStore) Get(ctx context.Context, uid, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col := m.collection(uid, collection, false)
	if col == nil {
		return nil, ErrNotFound
	}
	data, ok := col[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Data: copyData(data)}, nil
}

// Set writes a document with merge semantics.
func (m *MemoryStore) Set(ctx context.Context, uid, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	col := m.collection(uid, collection, true)
	col[id] = mergeData(col[id], copyData(data))
	m.mu.Unlock()

	m.notes.notify(notifyKey(uid, collection))
	return nil
}

// Add stores a new document under a generated id.
func (m *MemoryStore) Add(ctx context.Context, uid, collection string, data map[string]interface{}) (string, error) {
	id := uuid.New().String()

	m.mu.Lock()
	col := m.collection(uid, collection, true)
	col[id] = copyData(data)
	m.mu.Unlock()

	m.notes.notify(notifyKey(uid, collection))
	return id, nil
}

// Update merges data into an existing document.
func (m *MemoryStore) Update(ctx context.Context, uid, collection, id string, data map[string]interface{}) error {
	m.mu.Lock()
	col := m.collection(uid, collection, false)
	if col == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	existing, ok := col[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	col[id] = mergeData(existing, copyData(data))
	m.mu.Unlock()

	m.notes.notify(notifyKey(uid, collection))
	return nil
}

// Delete removes a document.
func (m *MemoryStore) Delete(ctx context.Context, uid, collection, id string) error {
	m.mu.Lock()
	col := m.collection(uid, collection, false)
	if col == nil {
		m.mu.Unlock()
		return ErrNotFound
	}
	if _, ok := col[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(col, id)
	m.mu.Unlock()

	m.notes.notify(notifyKey(uid, collection))
	return nil
}

// Query runs an ordered query over one collection.
func (m *MemoryStore) Query(ctx context.Context, uid, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col := m.collection(uid, collection, false)

	docs := make([]Document, 0, len(col))
	for id, data := range col {
		if q.FilterField != "" && fieldText(id, data, q.FilterField) != q.FilterValue {
			continue
		}
		docs = append(docs, Document{ID: id, Data: copyData(data)})
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	sort.Slice(docs, func(i, j int) bool {
		a := fieldText(docs[i].ID, docs[i].Data, orderBy)
		b := fieldText(docs[j].ID, docs[j].Data, orderBy)
		if a == b {
			// Stable tie-break so pushes are deterministic
			return docs[i].ID < docs[j].ID
		}
		if q.Desc {
			return a > b
		}
		return a < b
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Watch pushes the current result set now and after every change.
func (m *MemoryStore) Watch(ctx context.Context, uid, collection string, q Query, push func([]Document)) (func(), error) {
	run := func() ([]Document, error) {
		return m.Query(context.Background(), uid, collection, q)
	}
	return startWatch(m.notes, notifyKey(uid, collection), run, push)
}

// ========== User methods ==========

// CreateUser creates a new user account.
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateKey
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// GetUser gets a user by id.
func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail gets a user by email, case-insensitively.
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUser updates a user account.
func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// ListUserIDs lists the ids of all user accounts.
func (m *MemoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return ids, nil
}

// copyData copies the top level of a data map. Document data is treated as
// read-only by all callers; nested values are not cloned.
func copyData(data map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}

// fieldText renders a document field as text for filtering and ordering.
func fieldText(id string, data map[string]interface{}, field string) string {
	if field == "id" {
		return id
	}
	v, ok := data[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
