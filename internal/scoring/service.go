// Package scoring provides the loan scoring capability consumed by the
// conversation finalizer.
package scoring

import (
	"context"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// Service is the narrow request/response contract the conversation engine
// scores applications through. Implementations own coercion of malformed
// numeric inputs; a transport or capability fault returns an error with no
// partial result.
type Service interface {
	Predict(ctx context.Context, req models.ScoringRequest) (*models.PredictionResult, error)
}
