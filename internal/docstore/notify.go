package docstore

import (
	"fmt"
	"sync"
)

// ChangeEvent is the payload published for every document write. In the
// Postgres store it rides NATS subject docs.<uid>.<collection>; watchers
// and the integration forwarder both consume it.
type ChangeEvent struct {
	UserID     string `json:"userId"`
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
	Action     string `json:"action"` // "set", "add", "update", "delete"
}

// Subject returns the NATS subject for the event's collection.
func (e ChangeEvent) Subject() string {
	return fmt.Sprintf("docs.%s.%s", e.UserID, e.Collection)
}

// notifier fans change signals out to watchers. Each watcher gets a
// buffered signal channel; signals conflate, so a slow watcher re-queries
// once and still observes the latest state.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[int]chan struct{}
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]chan struct{})}
}

func notifyKey(uid, collection string) string {
	return uid + "/" + collection
}

// subscribe registers a watcher for a uid/collection pair
func (n *notifier) subscribe(key string) (int, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	id := n.next
	ch := make(chan struct{}, 1)

	if n.subs[key] == nil {
		n.subs[key] = make(map[int]chan struct{})
	}
	n.subs[key][id] = ch

	return id, ch
}

// unsubscribe removes a watcher
func (n *notifier) unsubscribe(key string, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if subs, ok := n.subs[key]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(n.subs, key)
		}
	}
}

// notify signals every watcher of the key without blocking
func (n *notifier) notify(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
