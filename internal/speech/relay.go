// Package speech relay driver.
//
// The Relay bridges browser clients: speak/listen invocations become
// directives the client polls for, and the client posts capability events
// back through PushEvent. The actual audio work (playback, microphone
// capture) happens on the client or through the synthesis/transcription
// endpoints.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Channel configuration shared by relay instances.
const (
	DefaultChannelBufferSize = 64
	DefaultChannelTimeout    = 5 * time.Second
)

// Directive actions handed to polling clients.
const (
	ActionNone   = "none"
	ActionSpeak  = "speak"
	ActionListen = "listen"
	ActionStop   = "stop"
)

// Directive is the next capability invocation a client should perform.
// Each new invocation supersedes the previous directive; the generation id
// lets the client discard work it started for a superseded one.
type Directive struct {
	Action     string `json:"action"`
	Text       string `json:"text,omitempty"`
	Locale     string `json:"locale,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
}

// Relay implements Driver for browser-driven speech I/O.
type Relay struct {
	mu         sync.RWMutex
	directives map[string]Directive
	events     chan Event
	closed     bool
}

// NewRelay creates a relay driver.
func NewRelay() *Relay {
	slog.Debug("speech.NewRelay: creating relay driver")
	return &Relay{
		directives: make(map[string]Directive),
		events:     make(chan Event, DefaultChannelBufferSize),
	}
}

// Speak records a speak directive for the session's client.
func (r *Relay) Speak(ctx context.Context, req SpeakRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("relay driver is closed")
	}
	r.directives[req.SessionID] = Directive{
		Action:     ActionSpeak,
		Text:       req.Text,
		Locale:     req.Locale,
		Generation: req.Generation,
	}
	slog.Debug("Relay.Speak: directive queued", "sessionID", req.SessionID, "generation", req.Generation)
	return nil
}

// Listen records a listen directive for the session's client.
func (r *Relay) Listen(ctx context.Context, req ListenRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("relay driver is closed")
	}
	r.directives[req.SessionID] = Directive{
		Action:     ActionListen,
		Locale:     req.Locale,
		Generation: req.Generation,
	}
	slog.Debug("Relay.Listen: directive queued", "sessionID", req.SessionID, "generation", req.Generation)
	return nil
}

// Stop tells the session's client to cancel any in-flight recognition.
func (r *Relay) Stop(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.directives[sessionID] = Directive{Action: ActionStop}
	slog.Debug("Relay.Stop: stop directive queued", "sessionID", sessionID)
	return nil
}

// NextDirective returns the pending directive for a session and clears it.
// Clients poll this; an empty queue yields ActionNone.
func (r *Relay) NextDirective(sessionID string) Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.directives[sessionID]
	if !ok {
		return Directive{Action: ActionNone}
	}
	delete(r.directives, sessionID)
	return d
}

// PushEvent feeds a client-reported capability event into the events
// channel. Unknown event kinds are rejected.
func (r *Relay) PushEvent(ev Event) error {
	switch ev.Kind {
	case EventSpeechDone, EventRecognized, EventListenError, EventListenEnd:
	default:
		return fmt.Errorf("unknown speech event kind %q", ev.Kind)
	}

	// The send happens under the read lock so Close cannot close the
	// channel between the closed check and the send.
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		slog.Warn("Relay.PushEvent: dropping event, relay closed", "sessionID", ev.SessionID, "kind", ev.Kind)
		return nil
	}

	select {
	case r.events <- ev:
		slog.Debug("Relay.PushEvent: event emitted", "sessionID", ev.SessionID, "kind", ev.Kind, "generation", ev.Generation)
		return nil
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("Relay.PushEvent: events channel blocked, dropping event", "sessionID", ev.SessionID, "kind", ev.Kind)
		return fmt.Errorf("events channel blocked")
	}
}

// Events returns the channel of capability events.
func (r *Relay) Events() <-chan Event {
	return r.events
}

// Close stops the relay and closes the events channel.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.events)
	slog.Debug("Relay.Close: relay driver closed")
	return nil
}
