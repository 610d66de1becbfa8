// Package models defines the core data structures for VoiceCredit.
//
// It includes the conversation phases, question steps, applicant records and
// chat transcript types shared across modules.
package models

import (
	"errors"
	"time"
)

// Language identifies one of the supported conversation languages.
type Language string

// Supported languages. Order matters: it is the resolution order of the
// language resolver and the order languages are offered in the welcome prompt.
const (
	LanguageHindi   Language = "Hindi"
	LanguageEnglish Language = "English"
	LanguageMarathi Language = "Marathi"
	LanguageKannada Language = "Kannada"
	LanguageUrdu    Language = "Urdu"
)

// SupportedLanguages lists all languages in resolution order.
var SupportedLanguages = []Language{
	LanguageHindi,
	LanguageEnglish,
	LanguageMarathi,
	LanguageKannada,
	LanguageUrdu,
}

// IsValidLanguage checks whether the given language is supported.
func IsValidLanguage(l Language) bool {
	for _, s := range SupportedLanguages {
		if s == l {
			return true
		}
	}
	return false
}

// Phase represents the top-level state of a conversation session.
type Phase string

// Conversation phases.
const (
	PhaseWelcome        Phase = "welcome"
	PhaseLanguageSelect Phase = "language_select"
	PhaseCollecting     Phase = "collecting"
	PhaseProcessing     Phase = "processing"
	PhaseResult         Phase = "result"
)

// ValueType defines how a step's raw utterance is normalized.
type ValueType string

// Step value types.
const (
	ValueTypeText   ValueType = "text"
	ValueTypeNumber ValueType = "number"
	ValueTypeChoice ValueType = "choice"
)

// IsValidValueType checks if the given value type is supported.
func IsValidValueType(vt ValueType) bool {
	switch vt {
	case ValueTypeText, ValueTypeNumber, ValueTypeChoice:
		return true
	default:
		return false
	}
}

// Applicant record field names, one per catalog step.
const (
	FieldFullName         = "fullName"
	FieldAge              = "age"
	FieldEmploymentStatus = "employmentStatus"
	FieldMonthlyIncome    = "monthlyIncome"
	FieldMonthlyExpenses  = "monthlyExpenses"
	FieldSavings          = "savings"
	FieldExistingLoans    = "existingLoans"
	FieldAssets           = "assets"
)

// Error variables for better error handling and testability
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidPhase      = errors.New("operation not valid in current phase")
	ErrEmptyUtterance    = errors.New("utterance cannot be empty")
	ErrNoActiveStep      = errors.New("no active step for session")
	ErrStepOutOfRange    = errors.New("step index out of catalog range")
	ErrMissingQuestion   = errors.New("step is missing a localized question")
	ErrScoringFailed     = errors.New("scoring capability fault")
	ErrSpeechUnavailable = errors.New("speech capability unavailable")
)

// Step is one question in the fixed collection sequence, bound to exactly one
// record field. Steps are immutable after catalog load.
type Step struct {
	ID       string              `json:"id" yaml:"id"`
	Field    string              `json:"field" yaml:"field"`
	Type     ValueType           `json:"type" yaml:"type"`
	Question map[Language]string `json:"question" yaml:"question"`
}

// Validate performs validation on a Step structure.
func (s *Step) Validate() error {
	if s.ID == "" || s.Field == "" {
		return errors.New("step id and field are required")
	}
	if !IsValidValueType(s.Type) {
		return errors.New("invalid step value type")
	}
	for _, lang := range SupportedLanguages {
		if s.Question[lang] == "" {
			return ErrMissingQuestion
		}
	}
	return nil
}

// Prompt returns the step's question in the given language, falling back to
// English when the language has no entry.
func (s *Step) Prompt(lang Language) string {
	if q, ok := s.Question[lang]; ok && q != "" {
		return q
	}
	return s.Question[LanguageEnglish]
}

// ApplicantRecord maps record field names to collected string values.
// Values are written once per step under normal flow but may be rewritten
// when the user resubmits an answer for the same step.
type ApplicantRecord map[string]string

// NewApplicantRecord returns a record with every known field initialized to
// an empty string.
func NewApplicantRecord() ApplicantRecord {
	return ApplicantRecord{
		FieldFullName:         "",
		FieldAge:              "",
		FieldEmploymentStatus: "",
		FieldMonthlyIncome:    "",
		FieldMonthlyExpenses:  "",
		FieldSavings:          "",
		FieldExistingLoans:    "",
		FieldAssets:           "",
	}
}

// Clone returns a copy of the record safe to hand to other goroutines.
func (r ApplicantRecord) Clone() ApplicantRecord {
	out := make(ApplicantRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Speaker identifies the author of a transcript entry.
type Speaker string

// Transcript speakers.
const (
	SpeakerAI   Speaker = "ai"
	SpeakerUser Speaker = "user"
)

// ChatMessage is one entry in the session transcript. The transcript is
// append-only within a session.
type ChatMessage struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Application is a completed assessment as archived by the store.
type Application struct {
	SessionID string           `json:"session_id"`
	Language  Language         `json:"language"`
	Record    ApplicantRecord  `json:"record"`
	Result    PredictionResult `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
}
