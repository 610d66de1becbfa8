// Package scoring rule engine.
//
// This file implements the in-process scorer: a handful of threshold
// comparisons over disposable income, stability and existing debt.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// Scoring constants.
const (
	// MinimumMonthlyIncome is the income floor in rupees below which an
	// application is rejected.
	MinimumMonthlyIncome = 25000
	// MinimumAge is the age floor for loan eligibility.
	MinimumAge = 18
	// MinimumStabilityRatio is the stability score floor.
	MinimumStabilityRatio = 0.4
	// MaxLoanBurdenRatio caps existing loans relative to monthly income.
	MaxLoanBurdenRatio = 0.5
	// CreditScoreFloor and CreditScoreCeiling bound the reported score.
	CreditScoreFloor   = 300
	CreditScoreCeiling = 850
	// ApprovalBonus is added to the credit score of approved applications.
	ApprovalBonus = 150
	// SuggestedAmountShare of annual income is offered on approval.
	SuggestedAmountShare = 0.3
)

// Rejection reasons, reported verbatim and in evaluation order.
const (
	ReasonUnderage     = "Applicant must be at least 18 years old to apply for a loan."
	ReasonLowIncome    = "Monthly income is below the minimum requirement of ₹25,000."
	ReasonLowStability = "Financial stability ratio is low. Your expenses and existing debts are high relative to your income and savings."
	ReasonLoanBurden   = "Existing loan burden is too high compared to your monthly income."
)

// Engine is the in-process scoring service.
type Engine struct{}

// NewEngine creates the rule-based scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Predict evaluates a scoring request. Malformed numeric inputs coerce to
// zero rather than failing; the engine never returns an error.
func (e *Engine) Predict(ctx context.Context, req models.ScoringRequest) (*models.PredictionResult, error) {
	income := parseAmount(req.Income)
	expenses := parseAmount(req.Expenses)
	savings := parseAmount(req.Savings)
	existingLoans := parseAmount(req.ExistingLoans)
	age := int(parseAmount(req.Age))

	disposable := income - expenses
	stability := 0.0
	if income > 0 {
		stability = (disposable + savings) / income
	}

	status := models.StatusRejected
	riskLevel := models.RiskHigh
	creditScore := CreditScoreFloor + int(math.Floor(stability*400))
	suggested := 0.0

	reasons := []string{}
	if age < MinimumAge {
		reasons = append(reasons, ReasonUnderage)
	}
	if income <= MinimumMonthlyIncome {
		reasons = append(reasons, ReasonLowIncome)
	}
	if stability <= MinimumStabilityRatio {
		reasons = append(reasons, ReasonLowStability)
	}
	if existingLoans >= income*MaxLoanBurdenRatio {
		reasons = append(reasons, ReasonLoanBurden)
	}

	if len(reasons) == 0 {
		status = models.StatusApproved
		if stability > 0.7 {
			riskLevel = models.RiskLow
		} else {
			riskLevel = models.RiskModerate
		}
		creditScore += ApprovalBonus
		suggested = math.Floor(income * 12 * SuggestedAmountShare)
	}

	if creditScore < CreditScoreFloor {
		creditScore = CreditScoreFloor
	}
	if creditScore > CreditScoreCeiling {
		creditScore = CreditScoreCeiling
	}

	result := &models.PredictionResult{
		Status:          status,
		RiskLevel:       riskLevel,
		CreditScore:     creditScore,
		SuggestedAmount: FormatINR(suggested),
		Reasons:         reasons,
		Details: models.PredictionDetails{
			DisposableIncome: disposable,
			StabilityScore:   strconv.FormatFloat(stability, 'f', 2, 64),
		},
	}

	slog.Debug("scoring.Engine.Predict: evaluated application",
		"status", status, "riskLevel", riskLevel, "creditScore", creditScore, "reasons", len(reasons))
	return result, nil
}

// parseAmount coerces a loosely typed numeric input to a float, defaulting
// to zero for malformed values.
func parseAmount(s models.LooseString) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatINR renders an amount as an en-IN rupee currency string with Indian
// digit grouping and two decimal places, e.g. 180000 -> "₹1,80,000.00".
func FormatINR(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	whole := int64(math.Floor(amount))
	cents := int64(math.Round((amount - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(digits))
	b.WriteString(fmt.Sprintf(".%02d", cents))
	return b.String()
}

// groupIndian applies en-IN grouping: the last three digits form one group,
// the rest group in twos.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}
