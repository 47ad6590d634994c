package docstore

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// startWatch implements the Watch contract on top of a notifier: push the
// current result set immediately, then re-run the query and push the full
// new set on every change signal. A failed re-query is logged and the last
// good snapshot stands; availability over freshness.
func startWatch(notes *notifier, key string, run func() ([]Document, error), push func([]Document)) (func(), error) {
	// Subscribe before the initial query so a write landing in between
	// still triggers a refresh.
	id, signal := notes.subscribe(key)

	docs, err := run()
	if err != nil {
		notes.unsubscribe(key, id)
		return nil, err
	}
	push(docs)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-signal:
				docs, err := run()
				if err != nil {
					log.Error().Err(err).Str("watch", key).Msg("Watch re-query failed, keeping last snapshot")
					continue
				}
				select {
				case <-done:
					return
				default:
				}
				push(docs)
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			notes.unsubscribe(key, id)
		})
	}
	return release, nil
}
