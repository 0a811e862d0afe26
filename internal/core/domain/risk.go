package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskRecommendation is the aggregate verdict ENUM.
type RiskRecommendation string

const (
	RecommendApprove RiskRecommendation = "approve"
	RecommendReview  RiskRecommendation = "review"
	RecommendBlock   RiskRecommendation = "block"
)

// RiskCheckResult is the outcome of one independent risk check.
type RiskCheckResult struct {
	Name   string
	Passed bool
	Score  int
	Flags  []string
}

// RiskAssessmentResult merges all check results for one prospective
// transfer. TotalScore is capped at 100.
type RiskAssessmentResult struct {
	TransferID     uuid.UUID
	AccountID      uuid.UUID
	TotalScore     int
	Recommendation RiskRecommendation
	Checks         []RiskCheckResult
	AllFlags       []string // de-duplicated union of every check's flags
	AssessedAt     time.Time
}

// Failed reports whether any individual check failed.
func (r *RiskAssessmentResult) Failed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return true
		}
	}
	return false
}

// ReturnAction is what the platform should do in response to an ACH
// return code.
type ReturnAction string

const (
	ActionRetry          ReturnAction = "retry"
	ActionDisableAccount ReturnAction = "disable_account"
	ActionRevokeMandate  ReturnAction = "revoke_mandate"
	ActionReview         ReturnAction = "review"
	ActionUpdateRouting  ReturnAction = "update_routing"
)
