package inspector

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// actorView is the JSON shape returned by GET /actors; it omits the
// Endpoint field since an *harness.Endpoint carries no JSON-meaningful
// state of its own.
type actorView struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Started time.Time `json:"started"`
}

// NewRouter builds the chi router serving the inspector's HTTP surface:
//
//	GET /actors       - a snapshot of every registered actor
//	GET /recent       - the hub's recent-completions ring, newest first
//	GET /ws           - upgrades to a websocket streaming new completions live
func NewRouter(hub *Hub) chi.Router {
	r := chi.NewRouter()
	r.Get("/actors", func(w http.ResponseWriter, req *http.Request) {
		entries := hub.Registry().List()
		views := make([]actorView, 0, len(entries))
		for _, e := range entries {
			views = append(views, actorView{ID: e.ID, Name: e.Name, Started: e.Started})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			log.Debug().Err(err).Msg("[inspector] encoding /actors response")
		}
	})
	r.Get("/recent", hub.handleRecent)
	r.Get("/ws", hub.handleWS)
	return r
}

func (h *Hub) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Recent(limit)); err != nil {
		log.Debug().Err(err).Msg("[inspector] encoding /recent response")
	}
}

// handleWS upgrades the request to a websocket connection and streams every
// Completion recorded from this point on, following the teacher's
// example_chat handleWS shape: accept, backlog replay (up to 20 recent
// completions, newest first), then a write loop that ends when the request
// context is done, the subscription closes, or a write fails. Nothing is
// read from the client.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	ch, unsubscribe := h.subscribe(32)
	defer unsubscribe()

	for _, c := range h.Recent(20) {
		if err := wsjson.Write(ctx, conn, c); err != nil {
			return
		}
	}

	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, c); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
