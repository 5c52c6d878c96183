package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the customer-contact channel for an outreach attempt.
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelSMS      Channel = "SMS"
	ChannelEmail    Channel = "EMAIL"
	ChannelAIVoice  Channel = "AI_VOICE"
	ChannelIVR      Channel = "IVR"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelWhatsApp, ChannelSMS, ChannelEmail, ChannelAIVoice, ChannelIVR:
		return true
	}
	return false
}

// RequiresEmail reports whether the channel delivers to the customer's
// email address instead of their phone number.
func (c Channel) RequiresEmail() bool {
	return c == ChannelEmail
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// OutreachStatus is the terminal result of one outreach attempt.
type OutreachStatus string

const (
	OutreachStatusSent   OutreachStatus = "SENT"
	OutreachStatusFailed OutreachStatus = "FAILED"
)

func (s OutreachStatus) String() string { return string(s) }

func (s OutreachStatus) IsValid() bool {
	switch s {
	case OutreachStatusSent, OutreachStatusFailed:
		return true
	}
	return false
}

// OutreachAttempt is one customer-contact attempt for an NDR. Rows are
// append-only: created once per dispatch call, never mutated.
type OutreachAttempt struct {
	ID                string
	NDRID             string
	Channel           Channel
	AttemptNumber     int
	TemplateID        *string
	MessageContent    string
	Status            OutreachStatus
	SentAt            *time.Time
	ProviderMessageID *string
	ErrorCode         *string
	ErrorMessage      *string
	CreatedAt         time.Time
}

func (a *OutreachAttempt) Validate() error {
	if strings.TrimSpace(a.NDRID) == "" {
		return fmt.Errorf("%w: ndr id is required", ErrValidation)
	}
	if !a.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, a.Channel)
	}
	if a.AttemptNumber < 1 {
		return fmt.Errorf("%w: attempt number must be >= 1 (got %d)", ErrValidation, a.AttemptNumber)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid outreach status %q", ErrValidation, a.Status)
	}
	return nil
}
