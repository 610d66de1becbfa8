// Package notify delivers completed-assessment summaries out of band.
package notify

import (
	"context"
	"fmt"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// Notifier sends a short summary of a completed assessment. Delivery is
// best-effort: the conversation outcome never depends on it.
type Notifier interface {
	NotifyAssessment(ctx context.Context, app models.Application) error
}

// Summary renders the one-line assessment summary used by notifiers.
func Summary(app models.Application) string {
	r := app.Result
	if r.Status == models.StatusApproved {
		return fmt.Sprintf("VoiceCredit assessment %s: %s, risk %s, score %d, suggested %s",
			app.SessionID, r.Status, r.RiskLevel, r.CreditScore, r.SuggestedAmount)
	}
	return fmt.Sprintf("VoiceCredit assessment %s: %s, score %d, %d reason(s)",
		app.SessionID, r.Status, r.CreditScore, len(r.Reasons))
}
