package inspector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gosuda/rpcharness/harness"
	"github.com/gosuda/rpcharness/registry"
)

type stubDispatcher struct {
	fail   bool
	pretty string
}

func (s *stubDispatcher) Dispatch(context.Context, any, harness.MethodTag, []byte) ([]byte, error) {
	if s.fail {
		return nil, context.DeadlineExceeded
	}
	return []byte("ok"), nil
}
func (s *stubDispatcher) Pretty(harness.MethodTag) string { return s.pretty }
func (s *stubDispatcher) Has(harness.MethodTag) bool      { return true }

func TestInstrumentedDispatcherRecordsCompletion(t *testing.T) {
	reg := registry.New(0)
	hub := NewHub(reg, 10)

	d := Instrument(&stubDispatcher{pretty: "ping()"}, hub, "actor-1")
	if _, err := d.Dispatch(context.Background(), nil, "ping", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	recent := hub.Recent(10)
	if len(recent) != 1 {
		t.Fatalf("expected 1 recorded completion, got %d", len(recent))
	}
	if recent[0].Status != "Success" || recent[0].Method != "ping()" || recent[0].ActorID != "actor-1" {
		t.Fatalf("unexpected completion: %+v", recent[0])
	}
}

func TestInstrumentedDispatcherRecordsFailure(t *testing.T) {
	reg := registry.New(0)
	hub := NewHub(reg, 10)
	d := Instrument(&stubDispatcher{fail: true, pretty: "boom()"}, hub, "actor-2")

	if _, err := d.Dispatch(context.Background(), nil, "boom", nil); err == nil {
		t.Fatalf("expected the wrapped error to propagate")
	}

	recent := hub.Recent(10)
	if len(recent) != 1 || recent[0].Status != "Failed" {
		t.Fatalf("expected a recorded failure, got %+v", recent)
	}
}

func TestHubRecentIsBoundedAndNewestFirst(t *testing.T) {
	reg := registry.New(0)
	hub := NewHub(reg, 3)

	for i := 0; i < 5; i++ {
		hub.Record(Completion{Method: "m", Status: "Success"})
	}

	recent := hub.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("expected the ring to cap at 3 entries, got %d", len(recent))
	}
	if recent[0].Sequence < recent[1].Sequence {
		t.Fatalf("expected newest-first ordering, got sequences %v", []uint64{recent[0].Sequence, recent[1].Sequence})
	}
}

func TestRouterServesActorsAndRecent(t *testing.T) {
	reg := registry.New(0)
	reg.Register("demo", harness.NewServerEndpoint())
	hub := NewHub(reg, 10)
	hub.Record(Completion{Method: "ping()", Status: "Success"})

	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/actors")
	if err != nil {
		t.Fatalf("GET /actors: %v", err)
	}
	defer resp.Body.Close()
	var actors []actorView
	if err := json.NewDecoder(resp.Body).Decode(&actors); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(actors) != 1 || actors[0].Name != "demo" {
		t.Fatalf("unexpected actors response: %+v", actors)
	}

	resp2, err := http.Get(srv.URL + "/recent")
	if err != nil {
		t.Fatalf("GET /recent: %v", err)
	}
	defer resp2.Body.Close()
	var recent []Completion
	if err := json.NewDecoder(resp2.Body).Decode(&recent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recent) != 1 || recent[0].Method != "ping()" {
		t.Fatalf("unexpected recent response: %+v", recent)
	}
}

func TestWebSocketStreamsNewCompletions(t *testing.T) {
	reg := registry.New(0)
	hub := NewHub(reg, 10)
	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	hub.Record(Completion{Method: "ping()", Status: "Success", ActorID: "a"})

	var got Completion
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Method != "ping()" {
		t.Fatalf("unexpected completion over websocket: %+v", got)
	}
}
