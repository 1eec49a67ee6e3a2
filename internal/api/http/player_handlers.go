package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lessonforge/playback/internal/media"
	"github.com/lessonforge/playback/internal/player"
	"github.com/lessonforge/playback/internal/video"
)

type sessionResponse struct {
	Session player.Session `json:"session"`
}

// opResponse reports the outcome of an engine operation. Policy violations
// (seek while locked, answer with no pending question) come back as
// applied=false, never as an error status: the surface treats them as no-ops.
type opResponse struct {
	Applied bool                 `json:"applied"`
	Reason  string               `json:"reason,omitempty"`
	Result  *player.AnswerResult `json:"result,omitempty"`
	Session player.Session       `json:"session"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func engineFor(mgr *player.Manager, w http.ResponseWriter, r *http.Request) (*player.Engine, bool) {
	id := chi.URLParam(r, "videoID")
	e, ok := mgr.Get(id)
	if !ok {
		http.Error(w, "video not loaded", http.StatusNotFound)
		return nil, false
	}
	return e, true
}

// LoadVideoHandler registers a video descriptor and returns the buffering
// profile the surface should use, along with the (possibly resumed) session.
func LoadVideoHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var desc video.VideoDescriptor
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		desc.ID = chi.URLParam(r, "videoID")
		if desc.ID == "" || desc.DurationSec <= 0 {
			http.Error(w, "video id and duration required", http.StatusBadRequest)
			return
		}
		if !desc.Policy.Valid() {
			http.Error(w, "unknown policy kind", http.StatusBadRequest)
			return
		}
		e := mgr.Load(desc)
		writeJSON(w, struct {
			Session player.Session      `json:"session"`
			Buffer  media.BufferProfile `json:"buffer"`
		}{e.Session(), media.Resolve(desc.SourceURL)})
	}
}

// PositionHandler feeds one position update into the engine.
func PositionHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := engineFor(mgr, w, r)
		if !ok {
			return
		}
		var req struct {
			Time     float64 `json:"time"`
			Duration float64 `json:"duration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		e.OnPositionUpdate(req.Time, req.Duration)
		writeJSON(w, sessionResponse{e.Session()})
	}
}

// AnswerHandler resolves the pending question with the given answer value.
func AnswerHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := engineFor(mgr, w, r)
		if !ok {
			return
		}
		var req struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := e.OnAnswer(req.Value)
		if err != nil {
			writeJSON(w, opResponse{Applied: false, Reason: err.Error(), Session: e.Session()})
			return
		}
		writeJSON(w, opResponse{Applied: true, Result: &res, Session: e.Session()})
	}
}

// DismissHandler exits the question gate without an answer, when allowed.
func DismissHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := engineFor(mgr, w, r)
		if !ok {
			return
		}
		if err := e.DismissQuestion(); err != nil {
			writeJSON(w, opResponse{Applied: false, Reason: err.Error(), Session: e.Session()})
			return
		}
		writeJSON(w, opResponse{Applied: true, Session: e.Session()})
	}
}

// ToggleHandler flips play/pause.
func ToggleHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := engineFor(mgr, w, r)
		if !ok {
			return
		}
		e.TogglePlayPause()
		writeJSON(w, sessionResponse{e.Session()})
	}
}

// SeekHandler applies a user seek subject to the video's policy.
func SeekHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := engineFor(mgr, w, r)
		if !ok {
			return
		}
		var req struct {
			Time float64 `json:"time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := e.RequestSeek(req.Time); err != nil {
			if errors.Is(err, player.ErrSeekNotAllowed) {
				writeJSON(w, opResponse{Applied: false, Reason: err.Error(), Session: e.Session()})
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, opResponse{Applied: true, Session: e.Session()})
	}
}

// SessionHandler returns the current session snapshot.
func SessionHandler(mgr *player.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := engineFor(mgr, w, r)
		if !ok {
			return
		}
		writeJSON(w, sessionResponse{e.Session()})
	}
}
