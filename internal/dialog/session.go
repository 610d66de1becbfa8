// Package dialog session state.
package dialog

import (
	"time"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// followUp tells the speech-done handler what to do after the current
// utterance finishes playing. It lives on the session so the handler reads
// the live value at fire-time rather than anything captured when the
// utterance was started.
type followUp int

const (
	// followNone: nothing happens after the utterance completes.
	followNone followUp = iota
	// followListen: start listening once the utterance completes.
	followListen
	// followAdvance: write the pending answer and advance to the next step
	// once the utterance completes. Used by the under-18 advisory so the
	// warning never causes a skip or a double-advance.
	followAdvance
)

// MaxSilentRetries is the number of silent re-listens on consecutive
// no-speech errors before the escalation prompt is spoken.
const MaxSilentRetries = 3

// Session is the single source of truth for one conversation. All fields
// are guarded by the engine's mutex; capability callbacks re-read the
// session from the engine's map at fire-time.
type Session struct {
	ID            string
	Phase         models.Phase
	Language      models.Language
	StepIndex     int
	Record        models.ApplicantRecord
	Transcript    []models.ChatMessage
	SilentRetries int
	Listening     bool
	LastUtterance string
	Result        *models.PredictionResult
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// speakGen and listenGen stamp capability invocations; an event whose
	// generation is stale on arrival is a no-op.
	speakGen  uint64
	listenGen uint64
	// epoch increments on reset so late scoring results are discarded.
	epoch uint64

	afterSpeech   followUp
	pendingAnswer string
}

// newSession creates a fresh session in the Welcome phase.
func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Phase:     models.PhaseWelcome,
		StepIndex: -1,
		Record:    models.NewApplicantRecord(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// reset returns the session to a fresh Welcome state, bumping the epoch and
// generations so in-flight capability signals and scoring results become
// stale.
func (s *Session) reset() {
	s.Phase = models.PhaseWelcome
	s.Language = ""
	s.StepIndex = -1
	s.Record = models.NewApplicantRecord()
	s.Transcript = nil
	s.SilentRetries = 0
	s.Listening = false
	s.LastUtterance = ""
	s.Result = nil
	s.afterSpeech = followNone
	s.pendingAnswer = ""
	s.speakGen++
	s.listenGen++
	s.epoch++
	s.UpdatedAt = time.Now()
}

// promptLanguage is the language spoken prompts use: English until a
// language has been resolved.
func (s *Session) promptLanguage() models.Language {
	if s.Language == "" {
		return models.LanguageEnglish
	}
	return s.Language
}

// appendAI appends an assistant message to the transcript.
func (s *Session) appendAI(text string) {
	s.Transcript = append(s.Transcript, models.ChatMessage{
		Speaker:   models.SpeakerAI,
		Text:      text,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// appendUser appends a user message to the transcript.
func (s *Session) appendUser(text string) {
	s.Transcript = append(s.Transcript, models.ChatMessage{
		Speaker:   models.SpeakerUser,
		Text:      text,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// Snapshot is a read-only view of a session handed to the rendering layer.
type Snapshot struct {
	ID            string                   `json:"id"`
	Phase         models.Phase             `json:"phase"`
	Language      models.Language          `json:"language,omitempty"`
	StepIndex     int                      `json:"step_index"`
	CurrentPrompt string                   `json:"current_prompt,omitempty"`
	Listening     bool                     `json:"listening"`
	LastUtterance string                   `json:"last_utterance,omitempty"`
	Record        models.ApplicantRecord   `json:"record"`
	Transcript    []models.ChatMessage     `json:"transcript"`
	Result        *models.PredictionResult `json:"result,omitempty"`
}
