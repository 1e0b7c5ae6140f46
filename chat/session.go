package chat

import (
	"sync"
	"sync/atomic"
)

// Session is the state of one role-scoped dialogue. It is owned by exactly
// one active dialogue view and thrown away when the view goes.
type Session struct {
	role Role

	mu       sync.Mutex
	id       string
	messages []Message

	// Correlation identifiers threaded through requests. Consumer id lives
	// in the device store and is read at send time; provider and enrollment
	// ids are pinned on the session by the activating context.
	providerID   string
	enrollmentID string

	inFlight atomic.Bool
}

// NewSession creates an empty session for the given role. The session id
// stays empty until the server assigns one.
func NewSession(role Role) *Session {
	return &Session{role: role}
}

// Role returns the dialogue role.
func (s *Session) Role() Role {
	return s.role
}

// ID returns the server-assigned session id, or "" before assignment.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID adopts a server-assigned session id.
func (s *Session) SetID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// ProviderID returns the pinned provider correlation id.
func (s *Session) ProviderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providerID
}

// SetProviderID pins the provider correlation id.
func (s *Session) SetProviderID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providerID = id
}

// EnrollmentID returns the pinned enrollment correlation id.
func (s *Session) EnrollmentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollmentID
}

// SetEnrollmentID pins the enrollment correlation id.
func (s *Session) SetEnrollmentID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollmentID = id
}

// Append adds a message to the session log. The log is append-only from the
// client's perspective.
func (s *Session) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of the session log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastMessage returns the newest message and whether the log is non-empty.
func (s *Session) LastMessage() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// InFlight reports whether a dispatch is outstanding.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// TryBeginSend flips the in-flight flag. At most one dispatch may be
// outstanding per session; a false return means another send holds it.
func (s *Session) TryBeginSend() bool {
	return s.inFlight.CompareAndSwap(false, true)
}

// EndSend clears the in-flight flag.
func (s *Session) EndSend() {
	s.inFlight.Store(false)
}
