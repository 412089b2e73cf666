// Package voice holds the contract for the remote conversational-AI session
// and a thin WebSocket client implementing it. The provider protocol itself
// is deliberately out of scope: the client frames outbound user text and
// activity signals and hands every inbound JSON payload to the caller
// untouched.
package voice

// Session is the minimal surface every conversational session exposes.
// Everything else (text sending, activity signals) is an optional
// capability, probed with the helpers in capability.go.
type Session interface {
	EndSession() error
}

// SessionHandlers carries the callbacks a session invokes over its life.
// All fields are optional; nil handlers are skipped.
type SessionHandlers struct {
	// OnConnect fires once the provider acknowledges the session.
	OnConnect func(conversationID string)
	// OnDisconnect fires when the transport closes, clean or not.
	OnDisconnect func()
	// OnError receives transport and decode failures.
	OnError func(err error)
	// OnMessage receives every inbound payload: decoded JSON (map or array)
	// or the raw text for non-JSON frames.
	OnMessage func(payload any)
	// OnModeChange fires when the agent flips between speaking and listening.
	OnModeChange func(mode string)
}

// SessionConfig describes a session to be established.
type SessionConfig struct {
	// AgentID selects the provider-side agent.
	AgentID string
	// ClientTools lists the tool names the server exposes to the agent,
	// advertised during session initiation.
	ClientTools []string
	// Handlers for session lifecycle and traffic.
	Handlers SessionHandlers
}
