// Package dialog implements the conversation state machine that drives the
// voice assessment: phase transitions, step sequencing, retry/escalation on
// listening failures and the finalization handoff to the scoring capability.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicecredit-ai/voicecredit/internal/catalog"
	"github.com/voicecredit-ai/voicecredit/internal/language"
	"github.com/voicecredit-ai/voicecredit/internal/models"
	"github.com/voicecredit-ai/voicecredit/internal/normalize"
	"github.com/voicecredit-ai/voicecredit/internal/notify"
	"github.com/voicecredit-ai/voicecredit/internal/scoring"
	"github.com/voicecredit-ai/voicecredit/internal/speech"
	"github.com/voicecredit-ai/voicecredit/internal/store"
)

// Default scheduling delays.
const (
	// DefaultRetryDelay is the pause before a silent re-listen, long enough
	// to avoid rapid-fire no-speech errors.
	DefaultRetryDelay = 300 * time.Millisecond
	// DefaultDemoDelay defers the demo runner's finalization one scheduling
	// beat after seeding the record.
	DefaultDemoDelay = 500 * time.Millisecond
)

// adultAge is the advisory threshold for the age step.
const adultAge = 18

// EngineOpts holds optional engine collaborators and tunables.
type EngineOpts struct {
	Archive    store.Store
	Notifier   notify.Notifier
	Timer      Timer
	RetryDelay time.Duration
	DemoDelay  time.Duration
}

// EngineOption configures the engine.
type EngineOption func(*EngineOpts)

// WithArchive sets the application archive written on completed assessments.
func WithArchive(st store.Store) EngineOption {
	return func(o *EngineOpts) { o.Archive = st }
}

// WithNotifier sets the out-of-band assessment notifier.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(o *EngineOpts) { o.Notifier = n }
}

// WithTimer replaces the scheduling timer.
func WithTimer(t Timer) EngineOption {
	return func(o *EngineOpts) { o.Timer = t }
}

// WithRetryDelay sets the silent re-listen delay.
func WithRetryDelay(d time.Duration) EngineOption {
	return func(o *EngineOpts) { o.RetryDelay = d }
}

// WithDemoDelay sets the demo runner's finalization delay.
func WithDemoDelay(d time.Duration) EngineOption {
	return func(o *EngineOpts) { o.DemoDelay = d }
}

// Engine is the conversation state machine. Sessions are the only shared
// mutable state; they are mutated exclusively under the engine's mutex, and
// every capability callback re-reads the session from the map at fire-time.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*Session

	catalog    *catalog.Catalog
	driver     speech.Driver
	scorer     scoring.Service
	archive    store.Store
	notifier   notify.Notifier
	timer      Timer
	retryDelay time.Duration
	demoDelay  time.Duration
}

// NewEngine creates a conversation engine with the given catalog, speech
// driver and scoring service.
func NewEngine(cat *catalog.Catalog, driver speech.Driver, scorer scoring.Service, opts ...EngineOption) *Engine {
	cfg := EngineOpts{
		RetryDelay: DefaultRetryDelay,
		DemoDelay:  DefaultDemoDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timer == nil {
		cfg.Timer = NewSimpleTimer()
	}
	slog.Debug("dialog.NewEngine: creating engine",
		"steps", cat.Len(), "hasArchive", cfg.Archive != nil, "hasNotifier", cfg.Notifier != nil)
	return &Engine{
		sessions:   make(map[string]*Session),
		catalog:    cat,
		driver:     driver,
		scorer:     scorer,
		archive:    cfg.Archive,
		notifier:   cfg.Notifier,
		timer:      cfg.Timer,
		retryDelay: cfg.RetryDelay,
		demoDelay:  cfg.DemoDelay,
	}
}

// Start consumes driver events until the context is canceled or the driver
// closes its events channel.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Debug("dialog.Engine.Start: context canceled, stopping event pump")
				return
			case ev, ok := <-e.driver.Events():
				if !ok {
					slog.Debug("dialog.Engine.Start: driver events channel closed")
					return
				}
				e.HandleEvent(ev)
			}
		}
	}()
}

// Close cancels all scheduled actions.
func (e *Engine) Close() {
	e.timer.Stop()
}

// CreateSession creates a fresh session in the Welcome phase.
func (e *Engine) CreateSession() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := newSession(uuid.NewString())
	e.sessions[s.ID] = s
	slog.Info("dialog.Engine.CreateSession: session created", "sessionID", s.ID)
	return e.snapshotLocked(s)
}

// StartConversation moves a Welcome session into language selection,
// speaking the multilingual welcome prompt and then listening.
func (e *Engine) StartConversation(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	if s.Phase != models.PhaseWelcome {
		slog.Warn("dialog.Engine.StartConversation: invalid phase", "sessionID", sessionID, "phase", s.Phase)
		return fmt.Errorf("%w: cannot start from %s", models.ErrInvalidPhase, s.Phase)
	}

	s.Phase = models.PhaseLanguageSelect
	welcome := catalog.Message(catalog.MessageWelcome, models.LanguageEnglish)
	s.appendAI(welcome)
	e.speak(ctx, s, welcome, models.LanguageEnglish, followListen)
	slog.Info("dialog.Engine.StartConversation: entered language selection", "sessionID", sessionID)
	return nil
}

// SubmitAnswer feeds a user utterance into the session, whether it came
// from speech recognition or the fallback text input. It is the sole entry
// point that advances collection.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}

	// A typed answer supersedes any in-flight listening session.
	if s.Listening {
		s.Listening = false
		s.listenGen++
		if err := e.driver.Stop(ctx, sessionID); err != nil {
			slog.Warn("dialog.Engine.SubmitAnswer: failed to stop listening", "sessionID", sessionID, "error", err)
		}
	}

	return e.submitLocked(ctx, s, text)
}

// Reset returns the session to a fresh Welcome state. Any in-flight
// listening session is stopped; an in-flight scoring call is allowed to
// complete and is discarded on arrival.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	if err := e.driver.Stop(ctx, sessionID); err != nil {
		slog.Warn("dialog.Engine.Reset: failed to stop listening", "sessionID", sessionID, "error", err)
	}
	s.reset()
	slog.Info("dialog.Engine.Reset: session reset", "sessionID", sessionID)
	return nil
}

// Snapshot returns a read-only view of the session for the rendering layer.
func (e *Engine) Snapshot(sessionID string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return Snapshot{}, models.ErrSessionNotFound
	}
	return e.snapshotLocked(s), nil
}

// HandleEvent routes a speech capability event into the state machine.
// Events with a stale generation are no-ops: the invocation they answer has
// been superseded.
func (e *Engine) HandleEvent(ev speech.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[ev.SessionID]
	if !ok {
		slog.Debug("dialog.Engine.HandleEvent: unknown session, discarding", "sessionID", ev.SessionID, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case speech.EventSpeechDone:
		if ev.Generation != s.speakGen {
			slog.Debug("dialog.Engine.HandleEvent: stale speech-done", "sessionID", s.ID, "generation", ev.Generation)
			return
		}
		e.handleSpeechDone(s)
	case speech.EventRecognized:
		if ev.Generation != s.listenGen {
			slog.Debug("dialog.Engine.HandleEvent: stale recognition", "sessionID", s.ID, "generation", ev.Generation)
			return
		}
		s.Listening = false
		if err := e.submitLocked(context.Background(), s, ev.Text); err != nil {
			slog.Warn("dialog.Engine.HandleEvent: recognized utterance rejected", "sessionID", s.ID, "error", err)
		}
	case speech.EventListenError:
		if ev.Generation != s.listenGen {
			slog.Debug("dialog.Engine.HandleEvent: stale listen error", "sessionID", s.ID, "generation", ev.Generation)
			return
		}
		s.Listening = false
		e.handleListenError(context.Background(), s, ev.Error)
	case speech.EventListenEnd:
		if ev.Generation != s.listenGen {
			return
		}
		s.Listening = false
	default:
		slog.Warn("dialog.Engine.HandleEvent: unknown event kind", "sessionID", s.ID, "kind", ev.Kind)
	}
}

// handleSpeechDone runs the action recorded for the utterance that just
// finished, reading the live session state rather than anything captured
// when speaking started.
func (e *Engine) handleSpeechDone(s *Session) {
	action := s.afterSpeech
	s.afterSpeech = followNone

	switch action {
	case followListen:
		e.startListening(context.Background(), s)
	case followAdvance:
		value := s.pendingAnswer
		s.pendingAnswer = ""
		e.proceed(context.Background(), s, value)
	case followNone:
		// Terminal utterance; nothing follows.
	}
}

// submitLocked processes an accepted user utterance. The utterance is
// transcribed before normalization so raw input survives for audit.
func (e *Engine) submitLocked(ctx context.Context, s *Session, text string) error {
	// Whitespace-only submissions are rejected here, before the numeric
	// fallback in normalize.Value could carry blanks into the record.
	if strings.TrimSpace(text) == "" {
		return models.ErrEmptyUtterance
	}

	switch s.Phase {
	case models.PhaseLanguageSelect:
		s.appendUser(text)
		s.LastUtterance = text
		s.SilentRetries = 0

		lang, ok := language.Resolve(text)
		if !ok {
			// Resolution miss: re-prompt in the same phase, no retry
			// counters involved.
			miss := catalog.Message(catalog.MessageLanguageMiss, models.LanguageEnglish)
			e.speak(ctx, s, miss, models.LanguageEnglish, followListen)
			return nil
		}

		s.Language = lang
		s.Phase = models.PhaseCollecting
		s.StepIndex = 0
		step, err := e.catalog.At(0)
		if err != nil {
			return err
		}
		question := step.Prompt(lang)
		s.appendAI(question)
		e.speak(ctx, s, question, lang, followListen)
		slog.Info("dialog.Engine: language resolved, collecting", "sessionID", s.ID, "language", lang)
		return nil

	case models.PhaseCollecting:
		s.appendUser(text)
		s.LastUtterance = text
		s.SilentRetries = 0

		step, err := e.catalog.At(s.StepIndex)
		if err != nil {
			slog.Error("dialog.Engine: step index out of range while collecting", "sessionID", s.ID, "stepIndex", s.StepIndex)
			return err
		}
		value := normalize.Value(text, step.Type)

		if step.Field == models.FieldAge {
			if age, perr := strconv.ParseFloat(strings.TrimSpace(value), 64); perr == nil && age < adultAge {
				// Side transition: speak the advisory, then fall through to
				// the normal advance once it finishes playing.
				advisory := catalog.Message(catalog.MessageUnderage, s.Language)
				s.appendAI(advisory)
				s.pendingAnswer = value
				e.speak(ctx, s, advisory, s.Language, followAdvance)
				slog.Info("dialog.Engine: underage advisory issued", "sessionID", s.ID)
				return nil
			}
		}

		e.proceed(ctx, s, value)
		return nil

	default:
		slog.Warn("dialog.Engine: answer submitted in inactive phase", "sessionID", s.ID, "phase", s.Phase)
		return fmt.Errorf("%w: %s", models.ErrInvalidPhase, s.Phase)
	}
}

// proceed writes the current step's field and advances, or hands off to the
// finalizer when the catalog is exhausted. The field is read before the
// index moves.
func (e *Engine) proceed(ctx context.Context, s *Session, value string) {
	step, err := e.catalog.At(s.StepIndex)
	if err != nil {
		slog.Error("dialog.Engine.proceed: no active step", "sessionID", s.ID, "stepIndex", s.StepIndex)
		return
	}
	s.Record[step.Field] = value
	s.UpdatedAt = time.Now()

	if s.StepIndex >= e.catalog.LastIndex() {
		e.finalize(ctx, s)
		return
	}

	s.StepIndex++
	next, err := e.catalog.At(s.StepIndex)
	if err != nil {
		slog.Error("dialog.Engine.proceed: next step missing", "sessionID", s.ID, "stepIndex", s.StepIndex)
		return
	}
	question := next.Prompt(s.Language)
	s.appendAI(question)
	e.speak(ctx, s, question, s.Language, followListen)
	slog.Debug("dialog.Engine.proceed: advanced", "sessionID", s.ID, "stepIndex", s.StepIndex, "field", step.Field)
}

// finalize is the single finalization code path, shared by the last step's
// transition and the demo runner. It announces processing and invokes the
// scoring capability asynchronously.
func (e *Engine) finalize(ctx context.Context, s *Session) {
	s.Phase = models.PhaseProcessing
	notice := catalog.Message(catalog.MessageProcessing, s.Language)
	s.appendAI(notice)
	e.speak(ctx, s, notice, s.Language, followNone)

	req := models.ScoringRequest{
		Income:        models.LooseString(s.Record[models.FieldMonthlyIncome]),
		Expenses:      models.LooseString(s.Record[models.FieldMonthlyExpenses]),
		Savings:       models.LooseString(s.Record[models.FieldSavings]),
		ExistingLoans: models.LooseString(s.Record[models.FieldExistingLoans]),
		Assets:        models.LooseString(s.Record[models.FieldAssets]),
		Age:           models.LooseString(s.Record[models.FieldAge]),
	}
	slog.Info("dialog.Engine.finalize: scoring application", "sessionID", s.ID)
	go e.runScoring(s.ID, s.epoch, req)
}

// runScoring awaits the scoring capability and applies the outcome to the
// live session. A capability fault leaves the session in Processing until
// an explicit reset; a result arriving after a reset is discarded.
func (e *Engine) runScoring(sessionID string, epoch uint64, req models.ScoringRequest) {
	result, err := e.scorer.Predict(context.Background(), req)

	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok || s.epoch != epoch {
		slog.Debug("dialog.Engine.runScoring: session gone or reset, discarding result", "sessionID", sessionID)
		return
	}
	if err != nil {
		slog.Error("dialog.Engine.runScoring: scoring capability fault, session stays in processing",
			"sessionID", sessionID, "error", err)
		return
	}

	s.Result = result
	s.Phase = models.PhaseResult
	narration := narrate(s.Language, result)
	s.appendAI(narration)
	e.speak(context.Background(), s, narration, s.Language, followNone)
	slog.Info("dialog.Engine.runScoring: assessment complete",
		"sessionID", sessionID, "status", result.Status, "creditScore", result.CreditScore)

	app := models.Application{
		SessionID: s.ID,
		Language:  s.Language,
		Record:    s.Record.Clone(),
		Result:    *result,
		CreatedAt: time.Now(),
	}
	if e.archive != nil {
		if err := e.archive.SaveApplication(app); err != nil {
			slog.Error("dialog.Engine.runScoring: failed to archive assessment", "sessionID", sessionID, "error", err)
		}
	}
	if e.notifier != nil {
		go func() {
			if err := e.notifier.NotifyAssessment(context.Background(), app); err != nil {
				slog.Warn("dialog.Engine.runScoring: assessment notification failed", "sessionID", sessionID, "error", err)
			}
		}()
	}
}

// handleListenError implements the retry/escalation policy for listening
// failures.
func (e *Engine) handleListenError(ctx context.Context, s *Session, kind speech.ErrorKind) {
	switch {
	case kind == speech.ErrorNoSpeech:
		if s.SilentRetries < MaxSilentRetries {
			// Silent retry: no transcript entry, no spoken prompt; the
			// question is not repeated at a user who said nothing.
			s.SilentRetries++
			slog.Debug("dialog.Engine: silent re-listen scheduled",
				"sessionID", s.ID, "attempt", s.SilentRetries)
			sessionID, epoch := s.ID, s.epoch
			if _, err := e.timer.ScheduleAfter(e.retryDelay, func() {
				e.retryListen(sessionID, epoch)
			}); err != nil {
				slog.Error("dialog.Engine: failed to schedule re-listen", "sessionID", s.ID, "error", err)
			}
			return
		}
		s.SilentRetries = 0
		prompt := catalog.Message(catalog.MessageStillHere, s.promptLanguage())
		s.appendAI(prompt)
		e.speak(ctx, s, prompt, s.promptLanguage(), followListen)
		slog.Info("dialog.Engine: escalation prompt issued", "sessionID", s.ID)

	case kind.Fatal():
		// Voice is gone for this session; it stays addressable through the
		// fallback text input.
		e.speak(ctx, s, catalog.Message(catalog.MessageMicDenied, s.promptLanguage()), s.promptLanguage(), followNone)
		slog.Warn("dialog.Engine: speech permission denied, session stalled on voice", "sessionID", s.ID)

	default:
		slog.Error("dialog.Engine: unhandled listening error, listening stopped", "sessionID", s.ID, "kind", kind)
	}
}

// retryListen re-invokes listening after the silent-retry delay, re-reading
// the live session at fire-time.
func (e *Engine) retryListen(sessionID string, epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok || s.epoch != epoch {
		slog.Debug("dialog.Engine.retryListen: session gone or reset, skipping", "sessionID", sessionID)
		return
	}
	if s.Phase != models.PhaseLanguageSelect && s.Phase != models.PhaseCollecting {
		slog.Debug("dialog.Engine.retryListen: phase no longer accepts input", "sessionID", sessionID, "phase", s.Phase)
		return
	}
	if s.Listening {
		return
	}
	e.startListening(context.Background(), s)
}

// startListening invokes the listening capability, superseding any prior
// session via the generation stamp.
func (e *Engine) startListening(ctx context.Context, s *Session) {
	lang := s.promptLanguage()
	s.listenGen++
	s.Listening = true
	req := speech.ListenRequest{
		SessionID:  s.ID,
		Generation: s.listenGen,
		Language:   lang,
		Locale:     language.RecognitionLocale(lang),
	}
	if err := e.driver.Listen(ctx, req); err != nil {
		s.Listening = false
		slog.Error("dialog.Engine.startListening: listen invocation failed", "sessionID", s.ID, "error", err)
	}
}

// speak invokes the speaking capability, recording what follows once the
// utterance completes.
func (e *Engine) speak(ctx context.Context, s *Session, text string, lang models.Language, follow followUp) {
	s.speakGen++
	s.afterSpeech = follow
	req := speech.SpeakRequest{
		SessionID:  s.ID,
		Generation: s.speakGen,
		Text:       text,
		Language:   lang,
		Locale:     language.SynthesisLocale(lang),
	}
	if err := e.driver.Speak(ctx, req); err != nil {
		slog.Error("dialog.Engine.speak: speak invocation failed", "sessionID", s.ID, "error", err)
	}
}

// snapshotLocked builds a read-only view of the session. Callers hold e.mu.
func (e *Engine) snapshotLocked(s *Session) Snapshot {
	snap := Snapshot{
		ID:            s.ID,
		Phase:         s.Phase,
		Language:      s.Language,
		StepIndex:     s.StepIndex,
		Listening:     s.Listening,
		LastUtterance: s.LastUtterance,
		Record:        s.Record.Clone(),
		Transcript:    append([]models.ChatMessage(nil), s.Transcript...),
	}
	switch s.Phase {
	case models.PhaseLanguageSelect:
		snap.CurrentPrompt = catalog.Message(catalog.MessageWelcome, models.LanguageEnglish)
	case models.PhaseCollecting:
		if step, err := e.catalog.At(s.StepIndex); err == nil {
			snap.CurrentPrompt = step.Prompt(s.Language)
		}
	}
	if s.Result != nil {
		result := *s.Result
		snap.Result = &result
	}
	return snap
}

// narrate composes the localized outcome narration. Rejection reasons are
// concatenated verbatim in the order the scoring capability returned them.
func narrate(lang models.Language, r *models.PredictionResult) string {
	if r.Status == models.StatusApproved {
		return fmt.Sprintf(catalog.Message(catalog.TemplateApproved, lang),
			r.CreditScore, r.RiskLevel, r.SuggestedAmount)
	}
	text := fmt.Sprintf(catalog.Message(catalog.TemplateRejected, lang), r.CreditScore)
	if len(r.Reasons) > 0 {
		text += " " + catalog.Message(catalog.TemplateReasonsPrefix, lang) + " " + strings.Join(r.Reasons, " ")
	}
	return text
}
