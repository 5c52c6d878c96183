package classify

import (
	"testing"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

func TestClassifyPhraseCoverage(t *testing.T) {
	t.Parallel()

	c := New()
	for _, rule := range c.Rules() {
		for _, phrase := range rule.Phrases {
			got := c.Classify("Carrier said: " + phrase + ".")
			if got.Reason != rule.Reason {
				t.Fatalf("Classify(%q) reason = %s, want %s", phrase, got.Reason, rule.Reason)
			}
			if got.Confidence != rule.Confidence {
				t.Fatalf("Classify(%q) confidence = %g, want %g", phrase, got.Confidence, rule.Confidence)
			}
			if got.Priority != rule.Priority {
				t.Fatalf("Classify(%q) priority = %s, want %s", phrase, got.Priority, rule.Priority)
			}
			if got.RiskScore != rule.RiskScore {
				t.Fatalf("Classify(%q) risk score = %d, want %d", phrase, got.RiskScore, rule.RiskScore)
			}
		}
	}
}

func TestClassifyKnownRemarks(t *testing.T) {
	t.Parallel()

	c := New()

	tests := []struct {
		name           string
		remark         string
		wantReason     domain.Reason
		wantConfidence float64
		wantPriority   domain.Priority
		wantRiskScore  int
	}{
		{
			name:           "refused remark",
			remark:         "customer refused to accept, rejected delivery",
			wantReason:     domain.ReasonRefused,
			wantConfidence: 0.98,
			wantPriority:   domain.PriorityCritical,
			wantRiskScore:  95,
		},
		{
			name:           "wrong address remark",
			remark:         "Incorrect address given by consignee",
			wantReason:     domain.ReasonWrongAddress,
			wantConfidence: 0.95,
			wantPriority:   domain.PriorityHigh,
			wantRiskScore:  85,
		},
		{
			name:           "phone unreachable remark",
			remark:         "customer phone switched off during attempt",
			wantReason:     domain.ReasonPhoneUnreachable,
			wantConfidence: 0.90,
			wantPriority:   domain.PriorityHigh,
			wantRiskScore:  70,
		},
		{
			name:           "reschedule remark",
			remark:         "Customer asked to RESCHEDULE to next week",
			wantReason:     domain.ReasonCustomerReschedule,
			wantConfidence: 0.93,
			wantPriority:   domain.PriorityMedium,
			wantRiskScore:  40,
		},
		{
			name:           "cod remark",
			remark:         "COD not ready at doorstep",
			wantReason:     domain.ReasonCODNotReady,
			wantConfidence: 0.92,
			wantPriority:   domain.PriorityHigh,
			wantRiskScore:  75,
		},
		{
			name:           "customer not available remark",
			remark:         "nobody at home on second visit",
			wantReason:     domain.ReasonCustomerNotAvailable,
			wantConfidence: 0.94,
			wantPriority:   domain.PriorityMedium,
			wantRiskScore:  55,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.remark)
			if got.Reason != tt.wantReason {
				t.Fatalf("reason = %s, want %s", got.Reason, tt.wantReason)
			}
			if got.Confidence != tt.wantConfidence {
				t.Fatalf("confidence = %g, want %g", got.Confidence, tt.wantConfidence)
			}
			if got.Priority != tt.wantPriority {
				t.Fatalf("priority = %s, want %s", got.Priority, tt.wantPriority)
			}
			if got.RiskScore != tt.wantRiskScore {
				t.Fatalf("risk score = %d, want %d", got.RiskScore, tt.wantRiskScore)
			}
			if got.Explanation == "" {
				t.Fatal("explanation should not be empty")
			}
		})
	}
}

func TestClassifySeverityTieBreak(t *testing.T) {
	t.Parallel()

	// A remark carrying both a REFUSED and a CUSTOMER_NOT_AVAILABLE
	// signal must resolve to the more severe REFUSED.
	got := New().Classify("rejected delivery, customer not available at address")
	if got.Reason != domain.ReasonRefused {
		t.Fatalf("reason = %s, want %s", got.Reason, domain.ReasonRefused)
	}
	if got.Priority != domain.PriorityCritical {
		t.Fatalf("priority = %s, want %s", got.Priority, domain.PriorityCritical)
	}
}

func TestClassifyFallbackToOther(t *testing.T) {
	t.Parallel()

	got := New().Classify("shipment misrouted by hub sorter")
	if got.Reason != domain.ReasonOther {
		t.Fatalf("reason = %s, want %s", got.Reason, domain.ReasonOther)
	}
	if got.Confidence != 0.60 {
		t.Fatalf("confidence = %g, want 0.60", got.Confidence)
	}
	if got.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %s, want %s", got.Priority, domain.PriorityMedium)
	}
	if got.RiskScore != 50 {
		t.Fatalf("risk score = %d, want 50", got.RiskScore)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	c := New()
	first := c.Classify("door locked, premises closed")
	for i := 0; i < 10; i++ {
		if got := c.Classify("door locked, premises closed"); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}
