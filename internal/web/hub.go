package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"deckpilot-mcp-server/internal/deck"
	"deckpilot-mcp-server/internal/nav"
	"deckpilot-mcp-server/internal/transcript"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// outbound is the envelope pushed to every connected presenter view.
type outbound struct {
	Type        string             `json:"type"`
	Page        int                `json:"page,omitempty"`
	CurrentPage int                `json:"currentPage,omitempty"`
	TotalPages  int                `json:"totalPages,omitempty"`
	Open        *bool              `json:"open,omitempty"`
	Entry       *transcript.Entry  `json:"entry,omitempty"`
	History     []transcript.Entry `json:"history,omitempty"`
	Slides      []deck.Slide       `json:"slides,omitempty"`
}

// inbound is a command from the presenter view.
type inbound struct {
	Action string `json:"action"`
	Page   any    `json:"page,omitempty"`
	Text   string `json:"text,omitempty"`
	Active bool   `json:"active,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan outbound
}

// Hub fans deck and transcript updates out to every connected presenter view
// and routes view commands back into the coordinator. It satisfies both
// render.Broadcaster and transcript.Display so the rest of the system never
// knows websockets exist.
type Hub struct {
	coordinator *nav.Coordinator
	transcripts *transcript.Router
	bus         *deck.Bus
	slides      []deck.Slide

	mu       sync.RWMutex
	clients  map[*client]bool
	upgrader websocket.Upgrader

	unsubscribe []func()
}

// NewHub wires the hub to the event bus. The coordinator and transcript
// router may be nil until BindCoordinator/BindTranscripts are called; the hub
// ignores commands it cannot route yet.
func NewHub(bus *deck.Bus, slides []deck.Slide) *Hub {
	h := &Hub{
		bus:     bus,
		slides:  slides,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The server binds to loopback by default; the viewer is local.
				return true
			},
		},
	}
	if bus != nil {
		h.unsubscribe = append(h.unsubscribe,
			bus.Subscribe(deck.EventPageChanged, h.onBusEvent),
			bus.Subscribe(deck.EventChatToggled, h.onBusEvent),
		)
	}
	return h
}

// BindCoordinator installs the live navigation coordinator.
func (h *Hub) BindCoordinator(c *nav.Coordinator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coordinator = c
}

// BindTranscripts installs the live transcript router.
func (h *Hub) BindTranscripts(r *transcript.Router) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transcripts = r
}

// Close detaches the hub from the bus and drops every client.
func (h *Hub) Close() {
	for _, unsub := range h.unsubscribe {
		unsub()
	}
	h.unsubscribe = nil

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// BroadcastRender tells every presenter view to paint the given page.
// Implements render.Broadcaster.
func (h *Hub) BroadcastRender(page int) {
	h.broadcast(outbound{Type: "renderPage", Page: page})
}

// AppendEntry pushes a transcript entry to every presenter view.
// Implements transcript.Display.
func (h *Hub) AppendEntry(e transcript.Entry) {
	h.broadcast(outbound{Type: "transcript", Entry: &e})
}

func (h *Hub) onBusEvent(e deck.Event) {
	switch event := e.(type) {
	case deck.PageChanged:
		h.broadcast(outbound{
			Type:        "pageChanged",
			CurrentPage: event.CurrentPage,
			TotalPages:  event.TotalPages,
		})
	case deck.ChatToggled:
		open := event.Open
		h.broadcast(outbound{Type: "chatToggled", Open: &open})
	}
}

func (h *Hub) broadcast(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; drop the frame rather than stall the deck.
			log.Printf("web: client %s lagging, dropping %s frame", c.id, msg.Type)
		}
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan outbound, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = true
	coordinator := h.coordinator
	transcripts := h.transcripts
	h.mu.Unlock()

	// Snapshot so a reconnecting view catches up without replaying events.
	init := outbound{Type: "init", Slides: h.slides}
	if coordinator != nil {
		init.CurrentPage = coordinator.CurrentPage()
		init.TotalPages = coordinator.TotalPages()
	}
	if transcripts != nil {
		init.History = transcripts.History()
	}
	c.send <- init

	go c.writePump()
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: client %s read error: %v", c.id, err)
			}
			return
		}
		h.dispatch(msg)
	}
}

func (h *Hub) dispatch(msg inbound) {
	h.mu.RLock()
	coordinator := h.coordinator
	transcripts := h.transcripts
	h.mu.RUnlock()

	switch msg.Action {
	case "next":
		if coordinator != nil {
			coordinator.NextPage()
		}
	case "previous":
		if coordinator != nil {
			coordinator.PreviousPage()
		}
	case "goto":
		if coordinator != nil {
			if page, ok := coercePage(msg.Page); ok {
				coordinator.GoToPage(page)
			}
		}
	case "chat":
		if transcripts != nil {
			transcripts.SendTextMessage(msg.Text)
		}
	case "typing":
		if transcripts != nil {
			transcripts.SignalUserActivity(msg.Active)
		}
	case "toggleChat":
		if h.bus != nil {
			h.bus.Publish(deck.ChatToggled{Open: msg.Active})
		}
	default:
		log.Printf("web: unknown action %q", msg.Action)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount reports the number of connected presenter views.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func coercePage(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		if value != float64(int(value)) {
			return 0, false
		}
		return int(value), true
	case int:
		return value, true
	default:
		return 0, false
	}
}
