// Package speech defines the speech I/O capability consumed by the
// conversation engine.
//
// The engine talks to a Driver: speak and listen are fire-and-forget
// invocations whose outcomes come back as events. Every invocation carries a
// generation id assigned by the engine; an event whose generation is stale on
// arrival must be treated as a no-op, which gives single-flight control over
// both capabilities without queueing.
package speech

import (
	"context"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// ErrorKind classifies listening failures reported by the capability.
type ErrorKind string

// Listening error kinds.
const (
	ErrorNoSpeech          ErrorKind = "no-speech"
	ErrorNotAllowed        ErrorKind = "not-allowed"
	ErrorServiceNotAllowed ErrorKind = "service-not-allowed"
)

// Fatal reports whether the error kind is a permission denial that makes
// voice input unavailable for the rest of the session.
func (k ErrorKind) Fatal() bool {
	return k == ErrorNotAllowed || k == ErrorServiceNotAllowed
}

// EventKind identifies a capability event.
type EventKind string

// Capability event kinds.
const (
	// EventSpeechDone fires when a spoken utterance finishes playing.
	EventSpeechDone EventKind = "speech-done"
	// EventRecognized carries a recognized user utterance.
	EventRecognized EventKind = "recognized"
	// EventListenError carries a listening failure.
	EventListenError EventKind = "listen-error"
	// EventListenEnd fires when a listening session ends, independent of
	// whether a result or error preceded it.
	EventListenEnd EventKind = "listen-end"
)

// Event is a capability signal routed back to the conversation engine.
type Event struct {
	SessionID  string    `json:"session_id"`
	Kind       EventKind `json:"kind"`
	Generation uint64    `json:"generation"`
	Text       string    `json:"text,omitempty"`
	Error      ErrorKind `json:"error,omitempty"`
}

// SpeakRequest asks the capability to speak text in a language. Invoking
// speak again cancels any currently playing utterance.
type SpeakRequest struct {
	SessionID  string          `json:"session_id"`
	Generation uint64          `json:"generation"`
	Text       string          `json:"text"`
	Language   models.Language `json:"language"`
	Locale     string          `json:"locale"`
}

// ListenRequest asks the capability for one single-shot recognition in a
// language. At most one listening session is active at a time; the driver
// stops any prior session before starting a new one.
type ListenRequest struct {
	SessionID  string          `json:"session_id"`
	Generation uint64          `json:"generation"`
	Language   models.Language `json:"language"`
	Locale     string          `json:"locale"`
}

// Driver is the pluggable speech transport. Implementations deliver
// outcomes on the Events channel.
type Driver interface {
	// Speak starts speaking and returns immediately.
	Speak(ctx context.Context, req SpeakRequest) error

	// Listen starts a single-shot recognition and returns immediately.
	Listen(ctx context.Context, req ListenRequest) error

	// Stop cancels any in-flight listening session for the given session.
	Stop(ctx context.Context, sessionID string) error

	// Events returns the channel of capability events.
	Events() <-chan Event

	// Close stops the driver and releases resources.
	Close() error
}
