// Package models defines scoring capability wire types for VoiceCredit.
package models

import "encoding/json"

// LooseString is a string that also accepts JSON numbers on decode. The
// scoring wire contract takes loosely typed numeric-or-string inputs; the
// dialogue path always sends strings, but direct API callers send numbers.
type LooseString string

// UnmarshalJSON decodes either a JSON string or a JSON number.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = LooseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = LooseString(num.String())
	return nil
}

// ScoringRequest carries the six assessment inputs to the scoring capability.
// The capability coerces malformed values to zero.
type ScoringRequest struct {
	Income        LooseString `json:"income"`
	Expenses      LooseString `json:"expenses"`
	Savings       LooseString `json:"savings"`
	ExistingLoans LooseString `json:"existingLoans"`
	Assets        LooseString `json:"assets"`
	Age           LooseString `json:"age"`
}

// Assessment outcome statuses.
const (
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Risk levels produced by the scoring capability.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

// PredictionDetails carries the intermediate figures behind a prediction.
type PredictionDetails struct {
	DisposableIncome float64 `json:"disposableIncome"`
	StabilityScore   string  `json:"stabilityScore"`
}

// PredictionResult is the scoring capability's response. It is treated as
// opaque and immutable once received.
type PredictionResult struct {
	Status          string            `json:"status"`
	RiskLevel       string            `json:"riskLevel"`
	CreditScore     int               `json:"creditScore"`
	SuggestedAmount string            `json:"suggestedAmount"`
	Reasons         []string          `json:"reasons"`
	Details         PredictionDetails `json:"details"`
}
