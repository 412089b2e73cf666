package voice

// Optional session capabilities. Provider SDKs do not agree on a send method
// name, so delivery is capability-probed: the ranked lists below are walked
// once when a session is bound and the winning strategy is cached by the
// caller, never re-probed per call.

// UserMessageSender is the preferred text-send capability.
type UserMessageSender interface {
	SendUserMessage(text string) error
}

// TextMessageSender is the second-choice text-send capability.
type TextMessageSender interface {
	SendTextMessage(text string) error
}

// MessageSender is the last-resort text-send capability.
type MessageSender interface {
	SendMessage(text string) error
}

// ActivitySignaler is the preferred typing/activity capability.
type ActivitySignaler interface {
	SendUserActivity() error
}

// TypingSignaler is the fallback typing/activity capability, carrying the
// active flag explicitly.
type TypingSignaler interface {
	SignalTyping(active bool) error
}

// SendFunc delivers one user text message to the session.
type SendFunc func(text string) error

// ActivityFunc signals user activity; the flag marks typing start/stop.
type ActivityFunc func(active bool) error

// ProbeSend walks the ranked text-send capabilities and returns the first
// one the session supports.
func ProbeSend(s Session) (SendFunc, bool) {
	if s == nil {
		return nil, false
	}
	switch v := s.(type) {
	case UserMessageSender:
		return v.SendUserMessage, true
	case TextMessageSender:
		return v.SendTextMessage, true
	case MessageSender:
		return v.SendMessage, true
	}
	return nil, false
}

// ProbeActivity walks the ranked activity capabilities and returns the first
// one the session supports.
func ProbeActivity(s Session) (ActivityFunc, bool) {
	if s == nil {
		return nil, false
	}
	switch v := s.(type) {
	case ActivitySignaler:
		return func(active bool) error {
			if !active {
				return nil // start-of-typing only; stop has no frame
			}
			return v.SendUserActivity()
		}, true
	case TypingSignaler:
		return v.SignalTyping, true
	}
	return nil, false
}
