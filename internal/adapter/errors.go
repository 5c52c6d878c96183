package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// AdapterError classifies channel gateway failures as transient/permanent.
type AdapterError struct {
	StatusCode int
	Code       string
	Message    string
	Transient  bool
	Cause      error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "adapter error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if code := strings.TrimSpace(e.Code); code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", code))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a send failure was likely momentary.
// Recorded on the attempt row so caller-level retry policies can act
// on it; the orchestrator itself never retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
