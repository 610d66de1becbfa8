// Package dialog demo runner.
package dialog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voicecredit-ai/voicecredit/internal/catalog"
	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// demoRecord returns the canned applicant used by the demo runner.
func demoRecord() models.ApplicantRecord {
	return models.ApplicantRecord{
		models.FieldFullName:         "John Doe",
		models.FieldAge:              "30",
		models.FieldEmploymentStatus: "Salaried",
		models.FieldMonthlyIncome:    "50000",
		models.FieldMonthlyExpenses:  "15000",
		models.FieldSavings:          "200000",
		models.FieldExistingLoans:    "5000",
		models.FieldAssets:           "House, Gold",
	}
}

// RunDemo seeds the session with a complete English applicant record and a
// condensed transcript, then finalizes through the same code path a real
// conversation uses. The finalization is deferred one scheduling beat so
// callers observe the seeded Collecting state first.
func (e *Engine) RunDemo(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return models.ErrSessionNotFound
	}
	if s.Phase != models.PhaseWelcome {
		slog.Warn("dialog.Engine.RunDemo: invalid phase", "sessionID", sessionID, "phase", s.Phase)
		return fmt.Errorf("%w: cannot run demo from %s", models.ErrInvalidPhase, s.Phase)
	}

	record := demoRecord()
	s.Language = models.LanguageEnglish
	s.Phase = models.PhaseCollecting
	s.StepIndex = e.catalog.LastIndex()
	s.Record = record

	last, err := e.catalog.At(s.StepIndex)
	if err != nil {
		return err
	}
	s.appendAI(catalog.Message(catalog.MessageDemoWelcome, models.LanguageEnglish))
	s.appendUser(catalog.Message(catalog.MessageDemoReady, models.LanguageEnglish))
	s.appendAI(last.Prompt(models.LanguageEnglish))
	s.appendUser(record[models.FieldAssets])

	epoch := s.epoch
	if _, err := e.timer.ScheduleAfter(e.demoDelay, func() {
		e.finalizeDemo(sessionID, epoch)
	}); err != nil {
		slog.Error("dialog.Engine.RunDemo: failed to schedule finalization", "sessionID", sessionID, "error", err)
		return err
	}
	slog.Info("dialog.Engine.RunDemo: demo seeded", "sessionID", sessionID)
	return nil
}

// finalizeDemo finalizes the seeded demo session, re-reading the live
// session at fire-time so a reset in the interim cancels the run.
func (e *Engine) finalizeDemo(sessionID string, epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok || s.epoch != epoch {
		slog.Debug("dialog.Engine.finalizeDemo: session gone or reset, skipping", "sessionID", sessionID)
		return
	}
	if s.Phase != models.PhaseCollecting {
		slog.Debug("dialog.Engine.finalizeDemo: phase moved on, skipping", "sessionID", sessionID, "phase", s.Phase)
		return
	}
	e.finalize(context.Background(), s)
}
