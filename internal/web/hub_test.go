package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deckpilot-mcp-server/internal/deck"
	"deckpilot-mcp-server/internal/nav"
	"deckpilot-mcp-server/internal/transcript"

	"github.com/gorilla/websocket"
)

type stubSurface struct{}

func (stubSurface) LoadDocument(ctx context.Context, path string) (int, error) { return 0, nil }
func (stubSurface) RenderPage(ctx context.Context, n int) error                { return nil }
func (stubSurface) ExtractText(ctx context.Context, n int) (string, error)     { return "", nil }

type testRig struct {
	hub         *Hub
	bus         *deck.Bus
	coordinator *nav.Coordinator
	transcripts *transcript.Router
	server      *httptest.Server
}

func newTestRig(t *testing.T, totalPages int, slides []deck.Slide) *testRig {
	t.Helper()

	bus := deck.NewBus()
	state, err := deck.NewPageState(totalPages, bus)
	if err != nil {
		t.Fatalf("NewPageState: %v", err)
	}

	hub := NewHub(bus, slides)
	t.Cleanup(hub.Close)

	coordinator, err := nav.NewCoordinator(state, stubSurface{}, bus, 0)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	t.Cleanup(coordinator.Close)

	router, err := transcript.NewRouter(hub, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	hub.BindCoordinator(coordinator)
	hub.BindTranscripts(router)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)

	return &testRig{hub: hub, bus: bus, coordinator: coordinator, transcripts: router, server: server}
}

func (r *testRig) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg outbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q frame: %v", wantType, err)
		}
		if msg.Type == wantType {
			return msg
		}
	}
}

func TestHubInitSnapshot(t *testing.T) {
	slides := []deck.Slide{{Page: 1, Title: "Intro"}}
	rig := newTestRig(t, 5, slides)
	rig.coordinator.GoToPage(3)

	conn := rig.dial(t)
	init := readUntil(t, conn, "init")

	if init.CurrentPage != 3 || init.TotalPages != 5 {
		t.Errorf("unexpected snapshot %+v", init)
	}
	if len(init.Slides) != 1 || init.Slides[0].Title != "Intro" {
		t.Errorf("expected slide metadata in snapshot, got %v", init.Slides)
	}
}

func TestHubBroadcastsPageChanges(t *testing.T) {
	rig := newTestRig(t, 5, nil)
	conn := rig.dial(t)
	readUntil(t, conn, "init")

	rig.coordinator.NextPage()

	msg := readUntil(t, conn, "pageChanged")
	if msg.CurrentPage != 2 || msg.TotalPages != 5 {
		t.Errorf("unexpected frame %+v", msg)
	}
}

func TestHubBroadcastRender(t *testing.T) {
	rig := newTestRig(t, 5, nil)
	conn := rig.dial(t)
	readUntil(t, conn, "init")

	rig.hub.BroadcastRender(4)

	msg := readUntil(t, conn, "renderPage")
	if msg.Page != 4 {
		t.Errorf("expected render frame for page 4, got %+v", msg)
	}
}

func TestHubRoutesNavigationCommands(t *testing.T) {
	rig := newTestRig(t, 5, nil)
	conn := rig.dial(t)
	readUntil(t, conn, "init")

	if err := conn.WriteJSON(inbound{Action: "goto", Page: float64(4)}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	msg := readUntil(t, conn, "pageChanged")
	if msg.CurrentPage != 4 {
		t.Errorf("expected jump to page 4, got %+v", msg)
	}
	if rig.coordinator.CurrentPage() != 4 {
		t.Errorf("coordinator at page %d, want 4", rig.coordinator.CurrentPage())
	}
}

func TestHubRoutesChatMessages(t *testing.T) {
	rig := newTestRig(t, 5, nil)
	conn := rig.dial(t)
	readUntil(t, conn, "init")

	if err := conn.WriteJSON(inbound{Action: "chat", Text: "hello agent"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	// Unbound session: user entry plus degraded-mode system notice, both
	// mirrored back through the hub.
	first := readUntil(t, conn, "transcript")
	if first.Entry == nil || first.Entry.Role != transcript.RoleUser || first.Entry.Content != "hello agent" {
		t.Errorf("unexpected first transcript frame %+v", first.Entry)
	}
	second := readUntil(t, conn, "transcript")
	if second.Entry == nil || second.Entry.Role != transcript.RoleSystem {
		t.Errorf("expected system notice, got %+v", second.Entry)
	}
}

func TestHubChatToggle(t *testing.T) {
	rig := newTestRig(t, 5, nil)
	conn := rig.dial(t)
	readUntil(t, conn, "init")

	if err := conn.WriteJSON(inbound{Action: "toggleChat", Active: true}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	msg := readUntil(t, conn, "chatToggled")
	if msg.Open == nil || !*msg.Open {
		t.Errorf("expected open toggle, got %+v", msg)
	}
}

func TestHubIgnoresCommandsBeforeBinding(t *testing.T) {
	bus := deck.NewBus()
	hub := NewHub(bus, nil)
	defer hub.Close()

	// Must not panic with nil coordinator and router.
	hub.dispatch(inbound{Action: "next"})
	hub.dispatch(inbound{Action: "goto", Page: float64(2)})
	hub.dispatch(inbound{Action: "chat", Text: "nobody home"})
	hub.dispatch(inbound{Action: "typing", Active: true})
	hub.dispatch(inbound{Action: "bogus"})
}

func TestHubClientLifecycle(t *testing.T) {
	rig := newTestRig(t, 5, nil)

	conn := rig.dial(t)
	readUntil(t, conn, "init")
	if rig.hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", rig.hub.ClientCount())
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for rig.hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never removed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCoercePage(t *testing.T) {
	if n, ok := coercePage(float64(3)); !ok || n != 3 {
		t.Errorf("unexpected (%d, %v)", n, ok)
	}
	if _, ok := coercePage(float64(2.5)); ok {
		t.Error("expected fractional rejection")
	}
	if _, ok := coercePage("3"); ok {
		t.Error("websocket payloads are JSON; strings are not accepted")
	}
}
