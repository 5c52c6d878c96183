// Package classify maps free-text carrier remarks to a structured
// non-delivery reason with fixed confidence, priority, and risk
// constants. Matching is a pure rule-table lookup with no side effects.
package classify

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

// Result is the classification output for one carrier remark.
type Result struct {
	Reason      domain.Reason
	Explanation string
	Confidence  float64
	Priority    domain.Priority
	RiskScore   int
}

// ReasonRule binds one reason to its phrase list and severity constants.
type ReasonRule struct {
	Reason     domain.Reason
	Phrases    []string
	Confidence float64
	Priority   domain.Priority
	RiskScore  int
}

// Fallback constants applied when no phrase matches.
const (
	fallbackConfidence = 0.60
	fallbackRiskScore  = 50
)

// rules is evaluated top to bottom; severity-descending order resolves
// remarks matching multiple reasons to the most severe one.
var rules = []ReasonRule{
	{
		Reason: domain.ReasonRefused,
		Phrases: []string{
			"refused", "rejected delivery", "refusal", "denied acceptance",
			"customer denied", "not accepting", "do not want",
		},
		Confidence: 0.98,
		Priority:   domain.PriorityCritical,
		RiskScore:  95,
	},
	{
		Reason: domain.ReasonWrongAddress,
		Phrases: []string{
			"wrong address", "incorrect address", "address not found",
			"incomplete address", "bad address", "address issue",
			"unable to locate", "locality not found",
		},
		Confidence: 0.95,
		Priority:   domain.PriorityHigh,
		RiskScore:  85,
	},
	{
		Reason: domain.ReasonCODNotReady,
		Phrases: []string{
			"cod not ready", "cash not ready", "cod amount not available",
			"payment not ready", "no cash", "customer has no money",
		},
		Confidence: 0.92,
		Priority:   domain.PriorityHigh,
		RiskScore:  75,
	},
	{
		Reason: domain.ReasonPhoneUnreachable,
		Phrases: []string{
			"phone unreachable", "not reachable", "switched off",
			"no response on call", "number busy", "call not answered",
			"phone not responding", "unreachable",
		},
		Confidence: 0.90,
		Priority:   domain.PriorityHigh,
		RiskScore:  70,
	},
	{
		Reason: domain.ReasonCustomerReschedule,
		Phrases: []string{
			"reschedule", "deliver tomorrow", "deliver later",
			"future delivery", "requested another date", "asked to come later",
		},
		Confidence: 0.93,
		Priority:   domain.PriorityMedium,
		RiskScore:  40,
	},
	{
		Reason: domain.ReasonCustomerNotAvailable,
		Phrases: []string{
			"not available", "customer not at home", "nobody at home",
			"customer absent", "door locked", "premises closed",
			"no one available",
		},
		Confidence: 0.94,
		Priority:   domain.PriorityMedium,
		RiskScore:  55,
	},
}

// Classifier matches remarks against an ordered reason rule table.
type Classifier struct {
	rules []ReasonRule
}

func New() *Classifier {
	return &Classifier{rules: rules}
}

// NewWithRules builds a classifier over a custom table, preserving the
// given order. Intended for tests and future per-tenant tuning.
func NewWithRules(table []ReasonRule) *Classifier {
	return &Classifier{rules: table}
}

// Classify resolves a carrier remark to a reason. The first rule with a
// matching phrase wins; an unmatched remark falls back to OTHER.
func (c *Classifier) Classify(remark string) Result {
	normalized := strings.ToLower(strings.TrimSpace(remark))

	for _, rule := range c.rules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(normalized, phrase) {
				return Result{
					Reason:      rule.Reason,
					Explanation: fmt.Sprintf("matched phrase %q", phrase),
					Confidence:  rule.Confidence,
					Priority:    rule.Priority,
					RiskScore:   rule.RiskScore,
				}
			}
		}
	}

	return Result{
		Reason:      domain.ReasonOther,
		Explanation: "no known failure phrase matched",
		Confidence:  fallbackConfidence,
		Priority:    domain.PriorityMedium,
		RiskScore:   fallbackRiskScore,
	}
}

// Rules exposes the active rule table for discoverability endpoints.
func (c *Classifier) Rules() []ReasonRule {
	out := make([]ReasonRule, len(c.rules))
	copy(out, c.rules)
	return out
}
