package dialog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voicecredit-ai/voicecredit/internal/catalog"
	"github.com/voicecredit-ai/voicecredit/internal/models"
	"github.com/voicecredit-ai/voicecredit/internal/scoring"
	"github.com/voicecredit-ai/voicecredit/internal/speech"
	"github.com/voicecredit-ai/voicecredit/internal/store"
)

// fakeDriver records capability invocations so tests can echo events back
// through Engine.HandleEvent.
type fakeDriver struct {
	mu      sync.Mutex
	speaks  []speech.SpeakRequest
	listens []speech.ListenRequest
	stops   []string
	events  chan speech.Event
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{events: make(chan speech.Event, 16)}
}

func (d *fakeDriver) Speak(ctx context.Context, req speech.SpeakRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speaks = append(d.speaks, req)
	return nil
}

func (d *fakeDriver) Listen(ctx context.Context, req speech.ListenRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listens = append(d.listens, req)
	return nil
}

func (d *fakeDriver) Stop(ctx context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops = append(d.stops, sessionID)
	return nil
}

func (d *fakeDriver) Events() <-chan speech.Event { return d.events }
func (d *fakeDriver) Close() error                { close(d.events); return nil }

func (d *fakeDriver) lastSpeak(t *testing.T) speech.SpeakRequest {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.speaks) == 0 {
		t.Fatal("no speak invocation recorded")
	}
	return d.speaks[len(d.speaks)-1]
}

func (d *fakeDriver) lastListen(t *testing.T) speech.ListenRequest {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.listens) == 0 {
		t.Fatal("no listen invocation recorded")
	}
	return d.listens[len(d.listens)-1]
}

func (d *fakeDriver) speakCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.speaks)
}

func (d *fakeDriver) listenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listens)
}

// captureTimer stores scheduled functions for manual firing.
type captureTimer struct {
	mu  sync.Mutex
	fns []func()
}

func (t *captureTimer) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fns = append(t.fns, fn)
	return fmt.Sprintf("timer_%d", len(t.fns)), nil
}

func (t *captureTimer) Cancel(id string) error { return nil }
func (t *captureTimer) Stop()                  {}

// fire runs and clears all captured functions outside the timer lock.
func (t *captureTimer) fire() {
	t.mu.Lock()
	fns := t.fns
	t.fns = nil
	t.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (t *captureTimer) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fns)
}

// blockingScorer holds every Predict call until released.
type blockingScorer struct {
	release chan struct{}
	inner   scoring.Service
}

func newBlockingScorer() *blockingScorer {
	return &blockingScorer{release: make(chan struct{}), inner: scoring.NewEngine()}
}

func (s *blockingScorer) Predict(ctx context.Context, req models.ScoringRequest) (*models.PredictionResult, error) {
	<-s.release
	return s.inner.Predict(ctx, req)
}

// failingScorer always reports a capability fault.
type failingScorer struct{}

func (failingScorer) Predict(ctx context.Context, req models.ScoringRequest) (*models.PredictionResult, error) {
	return nil, models.ErrScoringFailed
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *fakeDriver, *captureTimer, *store.InMemoryStore) {
	t.Helper()
	driver := newFakeDriver()
	timer := &captureTimer{}
	archive := store.NewInMemoryStore()
	base := []EngineOption{WithTimer(timer), WithArchive(archive)}
	engine := NewEngine(catalog.Default(), driver, scoring.NewEngine(), append(base, opts...)...)
	return engine, driver, timer, archive
}

// speechDone echoes completion of the most recent utterance.
func speechDone(t *testing.T, e *Engine, d *fakeDriver) {
	t.Helper()
	req := d.lastSpeak(t)
	e.HandleEvent(speech.Event{SessionID: req.SessionID, Kind: speech.EventSpeechDone, Generation: req.Generation})
}

// recognized echoes a recognition result for the most recent listen.
func recognized(t *testing.T, e *Engine, d *fakeDriver, text string) {
	t.Helper()
	req := d.lastListen(t)
	e.HandleEvent(speech.Event{SessionID: req.SessionID, Kind: speech.EventRecognized, Generation: req.Generation, Text: text})
}

// listenError echoes a listening failure for the most recent listen.
func listenError(t *testing.T, e *Engine, d *fakeDriver, kind speech.ErrorKind) {
	t.Helper()
	req := d.lastListen(t)
	e.HandleEvent(speech.Event{SessionID: req.SessionID, Kind: speech.EventListenError, Generation: req.Generation, Error: kind})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func mustSnapshot(t *testing.T, e *Engine, id string) Snapshot {
	t.Helper()
	snap, err := e.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	return snap
}

// startSession creates a session and walks it into the Collecting phase in
// the given language, leaving the first question spoken and listening active.
func startSession(t *testing.T, e *Engine, d *fakeDriver, langUtterance string) string {
	t.Helper()
	snap := e.CreateSession()
	if err := e.StartConversation(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	speechDone(t, e, d)
	recognized(t, e, d, langUtterance)
	speechDone(t, e, d)
	return snap.ID
}

func TestCreateSessionStartsAtWelcome(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	snap := e.CreateSession()
	if snap.Phase != models.PhaseWelcome {
		t.Errorf("phase = %s, want welcome", snap.Phase)
	}
	if snap.StepIndex != -1 {
		t.Errorf("stepIndex = %d, want -1", snap.StepIndex)
	}
	if len(snap.Transcript) != 0 {
		t.Errorf("fresh session has %d transcript entries", len(snap.Transcript))
	}
}

func TestStartConversationSpeaksWelcomeThenListens(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	snap := e.CreateSession()
	if err := e.StartConversation(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	after := mustSnapshot(t, e, snap.ID)
	if after.Phase != models.PhaseLanguageSelect {
		t.Fatalf("phase = %s, want language_select", after.Phase)
	}
	welcome := catalog.Message(catalog.MessageWelcome, models.LanguageEnglish)
	if len(after.Transcript) != 1 || after.Transcript[0].Text != welcome {
		t.Fatalf("transcript = %+v, want single welcome entry", after.Transcript)
	}
	if got := d.lastSpeak(t); got.Text != welcome || got.Locale != "en-US" {
		t.Errorf("spoken = %+v, want welcome in en-US", got)
	}

	// Listening starts only after the welcome finishes playing.
	if d.listenCount() != 0 {
		t.Fatal("listening started before the welcome finished")
	}
	speechDone(t, e, d)
	if got := d.lastListen(t); got.Locale != "en-US" {
		t.Errorf("listen locale = %s, want en-US", got.Locale)
	}
}

func TestStartConversationRejectsNonWelcomePhase(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	snap := e.CreateSession()
	if err := e.StartConversation(context.Background(), snap.ID); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := e.StartConversation(context.Background(), snap.ID); err == nil {
		t.Fatal("second start succeeded, want invalid phase error")
	}
	_ = d
}

func TestLanguageResolutionEntersCollecting(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	id := startSession(t, e, d, "हिंदी")

	snap := mustSnapshot(t, e, id)
	if snap.Phase != models.PhaseCollecting {
		t.Fatalf("phase = %s, want collecting", snap.Phase)
	}
	if snap.Language != models.LanguageHindi {
		t.Errorf("language = %s, want Hindi", snap.Language)
	}
	if snap.StepIndex != 0 {
		t.Errorf("stepIndex = %d, want 0", snap.StepIndex)
	}
	// welcome + user utterance + first question
	if len(snap.Transcript) != 3 {
		t.Fatalf("transcript has %d entries, want 3: %+v", len(snap.Transcript), snap.Transcript)
	}
	if snap.Transcript[1].Speaker != models.SpeakerUser || snap.Transcript[1].Text != "हिंदी" {
		t.Errorf("user utterance not transcribed: %+v", snap.Transcript[1])
	}
	if got := d.lastListen(t); got.Locale != "hi-IN" {
		t.Errorf("listen locale = %s, want hi-IN", got.Locale)
	}
}

func TestLanguageMissRepromptsWithoutTranscribingPrompt(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	snap := e.CreateSession()
	if err := e.StartConversation(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	speechDone(t, e, d)
	recognized(t, e, d, "french")

	after := mustSnapshot(t, e, snap.ID)
	if after.Phase != models.PhaseLanguageSelect {
		t.Fatalf("phase = %s, want language_select", after.Phase)
	}
	// The miss prompt is spoken but never transcribed; only the welcome and
	// the user's unrecognized utterance appear.
	if len(after.Transcript) != 2 {
		t.Fatalf("transcript has %d entries, want 2: %+v", len(after.Transcript), after.Transcript)
	}
	miss := catalog.Message(catalog.MessageLanguageMiss, models.LanguageEnglish)
	if got := d.lastSpeak(t); got.Text != miss {
		t.Errorf("spoken = %q, want miss prompt %q", got.Text, miss)
	}

	// The session recovers on the next recognizable utterance.
	speechDone(t, e, d)
	recognized(t, e, d, "english")
	if got := mustSnapshot(t, e, snap.ID); got.Phase != models.PhaseCollecting {
		t.Errorf("phase after recovery = %s, want collecting", got.Phase)
	}
}

func TestFullConversationApproved(t *testing.T) {
	e, d, _, archive := newTestEngine(t)
	id := startSession(t, e, d, "english")

	answers := []string{
		"John Doe",
		"30",
		"Salaried",
		"50,000 rupees",
		"15000",
		"200000",
		"5000",
		"House, Gold",
	}
	for i, answer := range answers {
		recognized(t, e, d, answer)
		if i < len(answers)-1 {
			speechDone(t, e, d)
		}
	}

	waitFor(t, func() bool {
		return mustSnapshot(t, e, id).Phase == models.PhaseResult
	})

	snap := mustSnapshot(t, e, id)
	if snap.Result == nil {
		t.Fatal("result missing after completion")
	}
	if snap.Result.Status != models.StatusApproved {
		t.Fatalf("status = %s, want approved (reasons: %v)", snap.Result.Status, snap.Result.Reasons)
	}
	if snap.Record[models.FieldMonthlyIncome] != "50000" {
		t.Errorf("income = %q, want normalized 50000", snap.Record[models.FieldMonthlyIncome])
	}
	// Raw utterance survives in the transcript even though the record holds
	// the normalized value.
	foundRaw := false
	for _, msg := range snap.Transcript {
		if msg.Text == "50,000 rupees" {
			foundRaw = true
		}
	}
	if !foundRaw {
		t.Error("raw income utterance missing from transcript")
	}

	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Speaker != models.SpeakerAI {
		t.Errorf("final transcript entry speaker = %s, want ai", last.Speaker)
	}

	waitFor(t, func() bool {
		apps, _ := archive.GetApplications()
		return len(apps) == 1
	})
	apps, _ := archive.GetApplications()
	if apps[0].SessionID != id || apps[0].Record[models.FieldFullName] != "John Doe" {
		t.Errorf("archived application = %+v", apps[0])
	}
}

func TestUnderageAdvisoryAdvancesOnce(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")

	recognized(t, e, d, "John Doe")
	speechDone(t, e, d)
	recognized(t, e, d, "17")

	// The advisory is spoken and transcribed; the step has not advanced yet.
	snap := mustSnapshot(t, e, id)
	if snap.StepIndex != 1 {
		t.Fatalf("stepIndex = %d, want 1 before advisory finishes", snap.StepIndex)
	}
	advisory := catalog.Message(catalog.MessageUnderage, models.LanguageEnglish)
	if got := d.lastSpeak(t); got.Text != advisory {
		t.Fatalf("spoken = %q, want advisory", got.Text)
	}
	if snap.Record[models.FieldAge] != "" {
		t.Fatalf("age written before advisory finished: %q", snap.Record[models.FieldAge])
	}

	// Advisory finishes: the age is written and the step advances exactly once.
	speechDone(t, e, d)
	snap = mustSnapshot(t, e, id)
	if snap.Record[models.FieldAge] != "17" {
		t.Errorf("age = %q, want 17", snap.Record[models.FieldAge])
	}
	if snap.StepIndex != 2 {
		t.Errorf("stepIndex = %d, want 2 after advisory", snap.StepIndex)
	}
}

func TestSilentRetriesThenEscalation(t *testing.T) {
	e, d, timer, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")
	transcriptLen := len(mustSnapshot(t, e, id).Transcript)

	for attempt := 1; attempt <= MaxSilentRetries; attempt++ {
		listenError(t, e, d, speech.ErrorNoSpeech)
		if timer.pending() != 1 {
			t.Fatalf("attempt %d: %d scheduled retries, want 1", attempt, timer.pending())
		}
		timer.fire()
	}

	// Silent retries never touch the transcript or speak anything.
	snap := mustSnapshot(t, e, id)
	if len(snap.Transcript) != transcriptLen {
		t.Fatalf("silent retries changed the transcript: %+v", snap.Transcript)
	}

	// The fourth consecutive failure escalates.
	listenError(t, e, d, speech.ErrorNoSpeech)
	if timer.pending() != 0 {
		t.Fatal("escalation also scheduled a silent retry")
	}
	escalation := catalog.Message(catalog.MessageStillHere, models.LanguageEnglish)
	if got := d.lastSpeak(t); got.Text != escalation {
		t.Fatalf("spoken = %q, want escalation prompt", got.Text)
	}
	snap = mustSnapshot(t, e, id)
	if snap.Transcript[len(snap.Transcript)-1].Text != escalation {
		t.Error("escalation prompt missing from transcript")
	}

	// Counter reset: the next failure is silent again.
	speechDone(t, e, d)
	listenError(t, e, d, speech.ErrorNoSpeech)
	if timer.pending() != 1 {
		t.Error("retry counter was not reset after escalation")
	}
}

func TestUtteranceResetsRetryCounter(t *testing.T) {
	e, d, timer, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")

	listenError(t, e, d, speech.ErrorNoSpeech)
	listenError(t, e, d, speech.ErrorNoSpeech)
	timer.fire()

	recognized(t, e, d, "John Doe")
	speechDone(t, e, d)

	// After a real utterance the counter starts over.
	for attempt := 1; attempt <= MaxSilentRetries; attempt++ {
		listenError(t, e, d, speech.ErrorNoSpeech)
		if timer.pending() != 1 {
			t.Fatalf("attempt %d after utterance: escalated early", attempt)
		}
		timer.fire()
	}
	_ = id
}

func TestPermissionDeniedStallsVoice(t *testing.T) {
	e, d, timer, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")
	transcriptLen := len(mustSnapshot(t, e, id).Transcript)

	listenError(t, e, d, speech.ErrorNotAllowed)

	denied := catalog.Message(catalog.MessageMicDenied, models.LanguageEnglish)
	if got := d.lastSpeak(t); got.Text != denied {
		t.Fatalf("spoken = %q, want mic-denied notice", got.Text)
	}
	if timer.pending() != 0 {
		t.Error("permission denial scheduled a retry")
	}
	listens := d.listenCount()
	speechDone(t, e, d)
	if d.listenCount() != listens {
		t.Error("listening restarted after permission denial")
	}
	if len(mustSnapshot(t, e, id).Transcript) != transcriptLen {
		t.Error("mic-denied notice was transcribed")
	}

	// The session stays addressable through the typed entry point.
	if err := e.SubmitAnswer(context.Background(), id, "John Doe"); err != nil {
		t.Fatalf("SubmitAnswer after denial failed: %v", err)
	}
	if got := mustSnapshot(t, e, id); got.Record[models.FieldFullName] != "John Doe" {
		t.Errorf("typed answer not recorded: %q", got.Record[models.FieldFullName])
	}
}

func TestStaleRecognitionIgnored(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")

	stale := d.lastListen(t)
	// A typed answer supersedes the in-flight listen.
	if err := e.SubmitAnswer(context.Background(), id, "John Doe"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	snap := mustSnapshot(t, e, id)
	if snap.StepIndex != 1 {
		t.Fatalf("stepIndex = %d, want 1", snap.StepIndex)
	}

	// The late recognition for the superseded listen must not advance again.
	e.HandleEvent(speech.Event{SessionID: id, Kind: speech.EventRecognized, Generation: stale.Generation, Text: "Jane Roe"})
	snap = mustSnapshot(t, e, id)
	if snap.StepIndex != 1 {
		t.Errorf("stale recognition advanced the session to step %d", snap.StepIndex)
	}
	if snap.Record[models.FieldFullName] != "John Doe" {
		t.Errorf("stale recognition overwrote the record: %q", snap.Record[models.FieldFullName])
	}
}

func TestStaleSpeechDoneIgnored(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	snap := e.CreateSession()
	if err := e.StartConversation(context.Background(), snap.ID); err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	stale := d.lastSpeak(t)
	if err := e.Reset(context.Background(), snap.ID); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	e.HandleEvent(speech.Event{SessionID: snap.ID, Kind: speech.EventSpeechDone, Generation: stale.Generation})
	if d.listenCount() != 0 {
		t.Error("stale speech-done started listening after reset")
	}
}

func TestResetReturnsToWelcome(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")
	recognized(t, e, d, "John Doe")

	if err := e.Reset(context.Background(), id); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	snap := mustSnapshot(t, e, id)
	if snap.Phase != models.PhaseWelcome {
		t.Errorf("phase = %s, want welcome", snap.Phase)
	}
	if snap.StepIndex != -1 || len(snap.Transcript) != 0 || snap.Language != "" {
		t.Errorf("reset left residue: %+v", snap)
	}
	if snap.Record[models.FieldFullName] != "" {
		t.Errorf("record survived reset: %q", snap.Record[models.FieldFullName])
	}
}

func TestResetDiscardsLateScoringResult(t *testing.T) {
	scorer := newBlockingScorer()
	driver := newFakeDriver()
	timer := &captureTimer{}
	e := NewEngine(catalog.Default(), driver, scorer, WithTimer(timer))
	id := startSession(t, e, driver, "english")

	answers := []string{"John Doe", "30", "Salaried", "50000", "15000", "200000", "5000", "House"}
	for i, answer := range answers {
		recognized(t, e, driver, answer)
		if i < len(answers)-1 {
			speechDone(t, e, driver)
		}
	}
	if got := mustSnapshot(t, e, id); got.Phase != models.PhaseProcessing {
		t.Fatalf("phase = %s, want processing", got.Phase)
	}

	if err := e.Reset(context.Background(), id); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	close(scorer.release)

	// The late result must never surface on the reset session.
	time.Sleep(50 * time.Millisecond)
	snap := mustSnapshot(t, e, id)
	if snap.Phase != models.PhaseWelcome || snap.Result != nil {
		t.Errorf("late scoring result applied after reset: phase=%s result=%v", snap.Phase, snap.Result)
	}
}

func TestScoringFaultStallsInProcessing(t *testing.T) {
	driver := newFakeDriver()
	timer := &captureTimer{}
	e := NewEngine(catalog.Default(), driver, failingScorer{}, WithTimer(timer))
	id := startSession(t, e, driver, "english")

	answers := []string{"John Doe", "30", "Salaried", "50000", "15000", "200000", "5000", "House"}
	for i, answer := range answers {
		recognized(t, e, driver, answer)
		if i < len(answers)-1 {
			speechDone(t, e, driver)
		}
	}

	// The fault leaves the session in Processing with no result; only an
	// explicit reset recovers it.
	time.Sleep(50 * time.Millisecond)
	snap := mustSnapshot(t, e, id)
	if snap.Phase != models.PhaseProcessing || snap.Result != nil {
		t.Fatalf("phase=%s result=%v, want stalled processing", snap.Phase, snap.Result)
	}

	if err := e.Reset(context.Background(), id); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got := mustSnapshot(t, e, id); got.Phase != models.PhaseWelcome {
		t.Errorf("phase after reset = %s, want welcome", got.Phase)
	}
}

func TestRunDemoConvergesToSameResultShape(t *testing.T) {
	e, d, timer, archive := newTestEngine(t)
	snap := e.CreateSession()

	if err := e.RunDemo(context.Background(), snap.ID); err != nil {
		t.Fatalf("RunDemo failed: %v", err)
	}

	seeded := mustSnapshot(t, e, snap.ID)
	if seeded.Phase != models.PhaseCollecting {
		t.Fatalf("phase = %s, want collecting before finalization", seeded.Phase)
	}
	if seeded.StepIndex != 7 {
		t.Errorf("stepIndex = %d, want 7", seeded.StepIndex)
	}
	if len(seeded.Transcript) != 4 {
		t.Fatalf("transcript has %d entries, want 4: %+v", len(seeded.Transcript), seeded.Transcript)
	}
	if seeded.Record[models.FieldFullName] != "John Doe" || seeded.Record[models.FieldAssets] != "House, Gold" {
		t.Errorf("seeded record = %+v", seeded.Record)
	}

	timer.fire()
	waitFor(t, func() bool {
		return mustSnapshot(t, e, snap.ID).Phase == models.PhaseResult
	})

	final := mustSnapshot(t, e, snap.ID)
	if final.Result == nil || final.Result.Status != models.StatusApproved {
		t.Fatalf("demo result = %+v, want approved", final.Result)
	}
	if final.Result.SuggestedAmount != "₹1,80,000.00" {
		t.Errorf("suggestedAmount = %q, want ₹1,80,000.00", final.Result.SuggestedAmount)
	}

	waitFor(t, func() bool {
		apps, _ := archive.GetApplications()
		return len(apps) == 1
	})
	_ = d
}

func TestRunDemoCanceledByReset(t *testing.T) {
	e, _, timer, _ := newTestEngine(t)
	snap := e.CreateSession()
	if err := e.RunDemo(context.Background(), snap.ID); err != nil {
		t.Fatalf("RunDemo failed: %v", err)
	}
	if err := e.Reset(context.Background(), snap.ID); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	timer.fire()

	time.Sleep(50 * time.Millisecond)
	if got := mustSnapshot(t, e, snap.ID); got.Phase != models.PhaseWelcome {
		t.Errorf("phase = %s, want welcome after canceled demo", got.Phase)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	e, d, _, _ := newTestEngine(t)
	id := startSession(t, e, d, "english")

	if err := e.SubmitAnswer(context.Background(), id, "   "); err == nil {
		t.Error("blank utterance accepted")
	}
	if err := e.SubmitAnswer(context.Background(), "missing", "hello"); err == nil {
		t.Error("unknown session accepted")
	}

	// Answers are rejected outside the input phases.
	demo := e.CreateSession()
	if err := e.SubmitAnswer(context.Background(), demo.ID, "hello"); err == nil {
		t.Error("answer accepted in welcome phase")
	}
}

func TestNarrateRejectionConcatenatesReasons(t *testing.T) {
	result := &models.PredictionResult{
		Status:      models.StatusRejected,
		CreditScore: 320,
		Reasons:     []string{"first reason.", "second reason."},
	}
	got := narrate(models.LanguageEnglish, result)
	want := "I'm sorry, your loan application was rejected. Your credit score is 320. The reasons for rejection are: first reason. second reason."
	if got != want {
		t.Errorf("narrate = %q, want %q", got, want)
	}
}
