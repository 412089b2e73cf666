package transcript

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"deckpilot-mcp-server/internal/voice"
)

// Display is the surface transcript entries are rendered on. The web hub
// implements this for the chat panel; the flight recorder implements it for
// tracing.
type Display interface {
	AppendEntry(Entry)
}

// Fanout returns a Display forwarding each entry to every target in order.
// Used to mirror the chat panel feed into the flight recorder.
func Fanout(targets ...Display) Display {
	return fanout(targets)
}

type fanout []Display

func (f fanout) AppendEntry(e Entry) {
	for _, d := range f {
		d.AppendEntry(e)
	}
}

// Router fans inbound normalized messages to the display and outbound user
// text to the bound session, keeping a linear append-only history. The
// session reference has two states: unbound (sends degrade to a system
// notice) and bound (delivery attempted through the capability cached at
// bind time).
type Router struct {
	display Display
	limit   int
	now     func() time.Time

	mu       sync.Mutex
	history  []Entry
	session  voice.Session
	send     voice.SendFunc
	activity voice.ActivityFunc
	archive  *Archive
}

// NewRouter constructs a router over the required display surface.
// historyLimit bounds the in-memory history; zero means unbounded.
func NewRouter(display Display, historyLimit int) (*Router, error) {
	if display == nil {
		return nil, fmt.Errorf("transcript: display surface is required")
	}
	return &Router{
		display: display,
		limit:   historyLimit,
		now:     time.Now,
	}, nil
}

// SetArchive attaches an optional persistent archive. Entries appended from
// then on are mirrored to it; archive failures are logged, never surfaced.
func (r *Router) SetArchive(a *Archive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archive = a
}

// BindSession attaches the live session and probes its capabilities once.
// The selected strategies are cached; they are never re-probed per call.
func (r *Router) BindSession(s voice.Session) {
	send, _ := voice.ProbeSend(s)
	activity, _ := voice.ProbeActivity(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = s
	r.send = send
	r.activity = activity
}

// UnbindSession detaches the session; subsequent sends degrade gracefully.
func (r *Router) UnbindSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = nil
	r.send = nil
	r.activity = nil
}

// HandleInbound normalizes one payload from the remote session. Payloads
// with no displayable text are dropped (logged only): pure control signals
// are unsupported input, not errors.
func (r *Router) HandleInbound(payload any) {
	entry, ok := Normalize(payload, r.now)
	if !ok {
		log.Printf("transcript: dropping inbound message with no text content (%T)", payload)
		return
	}
	r.append(entry)
}

// SendTextMessage routes user text outward. Blank input is a no-op. The user
// entry always lands in history and on the display; delivery to the agent is
// best-effort and degrades to a system-visible notice.
func (r *Router) SendTextMessage(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	r.append(Entry{Role: RoleUser, Content: trimmed, Timestamp: r.now()})

	r.mu.Lock()
	session := r.session
	send := r.send
	r.mu.Unlock()

	switch {
	case session == nil:
		r.systemNotice("Voice agent is not connected; your message is shown locally only.")
	case send == nil:
		r.systemNotice("Voice agent session does not support text messages; your message is shown locally only.")
	default:
		if err := send(trimmed); err != nil {
			log.Printf("transcript: delivery to voice agent failed: %v", err)
			r.systemNotice("Delivery to the voice agent failed; your message is shown locally only.")
		}
	}
}

// SignalUserActivity forwards a typing signal to the session. Advisory:
// silently a no-op when unbound or unsupported, and failures never reach
// the caller.
func (r *Router) SignalUserActivity(isTyping bool) {
	r.mu.Lock()
	activity := r.activity
	r.mu.Unlock()

	if activity == nil {
		return
	}
	if err := activity(isTyping); err != nil {
		log.Printf("transcript: activity signal failed: %v", err)
	}
}

// History returns a copy of the linear history, oldest first.
func (r *Router) History() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Router) systemNotice(text string) {
	r.append(Entry{Role: RoleSystem, Content: text, Timestamp: r.now()})
}

func (r *Router) append(e Entry) {
	r.mu.Lock()
	r.history = append(r.history, e)
	if r.limit > 0 && len(r.history) > r.limit {
		r.history = r.history[len(r.history)-r.limit:]
	}
	archive := r.archive
	r.mu.Unlock()

	r.display.AppendEntry(e)
	if archive != nil {
		if err := archive.Append(e); err != nil {
			log.Printf("transcript: archive append failed: %v", err)
		}
	}
}
