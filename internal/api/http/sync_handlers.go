package http

import (
	"net/http"

	"github.com/lessonforge/playback/internal/retryq"
)

// QueueStatus is the slice of the retry queue the status endpoint reads.
type QueueStatus interface {
	Status() retryq.Status
}

// SyncStatusHandler exposes retry queue counters for observability.
func SyncStatusHandler(q QueueStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, q.Status())
	}
}
