// Package carrier normalizes heterogeneous carrier webhook payloads
// into one canonical non-delivery record. Format detection walks a
// fixed, ordered list of predicate/parser pairs; the aggregator format
// is checked before single-carrier formats so shared field names are
// not misrouted.
package carrier

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

// Payload is a flattened webhook body, JSON or form-encoded.
type Payload map[string]any

// CanonicalRecord is the normalized ingestion record extracted from a
// carrier payload.
type CanonicalRecord struct {
	AWBNumber        string
	CarrierEventCode string
	CarrierRemark    string
	AttemptNumber    int
	AttemptTimestamp time.Time
	SourceFormat     string
}

// Format detects and parses one carrier payload shape.
type Format interface {
	Name() string
	Matches(p Payload) bool
	Parse(p Payload, now time.Time) (CanonicalRecord, error)
}

// Contract describes a format's field expectations for the
// discoverability endpoint.
type Contract struct {
	Name           string   `json:"name"`
	RequiredFields []string `json:"requiredFields"`
	OptionalFields []string `json:"optionalFields"`
}

// Normalizer resolves raw webhook bodies against the ordered format list.
type Normalizer struct {
	formats []Format
}

func NewNormalizer() *Normalizer {
	return &Normalizer{formats: defaultFormats()}
}

func NewNormalizerWithFormats(formats []Format) *Normalizer {
	return &Normalizer{formats: formats}
}

// Normalize decodes the raw body and extracts the canonical record. A
// non-empty sourceHint short-circuits detection when it names a known
// format; otherwise the first matching predicate wins, falling back to
// the generic format.
func (n *Normalizer) Normalize(body []byte, contentType string, sourceHint string, now time.Time) (CanonicalRecord, error) {
	payload, err := DecodePayload(body, contentType)
	if err != nil {
		return CanonicalRecord{}, err
	}

	if hint := strings.TrimSpace(sourceHint); hint != "" {
		for _, f := range n.formats {
			if strings.EqualFold(f.Name(), hint) {
				return f.Parse(payload, now)
			}
		}
	}

	for _, f := range n.formats {
		if f.Matches(payload) {
			return f.Parse(payload, now)
		}
	}

	// defaultFormats ends with an always-matching generic entry, so
	// this is only reachable with a custom format list.
	return CanonicalRecord{}, fmt.Errorf("%w: no carrier format matched payload", domain.ErrValidation)
}

// SupportedFormats returns the field contract per format, in detection order.
func (n *Normalizer) SupportedFormats() []Contract {
	contracts := make([]Contract, 0, len(n.formats))
	for _, f := range n.formats {
		if described, ok := f.(interface{ Contract() Contract }); ok {
			contracts = append(contracts, described.Contract())
			continue
		}
		contracts = append(contracts, Contract{Name: f.Name()})
	}
	return contracts
}

// DecodePayload flattens a JSON or form-encoded body into a Payload.
func DecodePayload(body []byte, contentType string) (Payload, error) {
	trimmedBody := strings.TrimSpace(string(body))
	if trimmedBody == "" {
		return nil, fmt.Errorf("%w: empty webhook body", domain.ErrValidation)
	}

	if strings.Contains(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(trimmedBody)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid form body: %v", domain.ErrValidation, err)
		}
		payload := make(Payload, len(values))
		for key := range values {
			payload[key] = values.Get(key)
		}
		return payload, nil
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid json body: %v", domain.ErrValidation, err)
	}
	return payload, nil
}

func stringField(p Payload, keys ...string) string {
	for _, key := range keys {
		value, ok := lookup(p, key)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func intField(p Payload, fallback int, keys ...string) int {
	for _, key := range keys {
		value, ok := lookup(p, key)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			if v >= 1 {
				return int(v)
			}
		case int:
			if v >= 1 {
				return v
			}
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 1 {
				return parsed
			}
		}
	}
	return fallback
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006 15:04:05",
}

func timeField(p Payload, fallback time.Time, keys ...string) time.Time {
	for _, key := range keys {
		raw := stringField(p, key)
		if raw == "" {
			continue
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed
			}
		}
	}
	return fallback
}

// lookup is case-insensitive on the key; carrier payloads disagree on
// casing even within one format.
func lookup(p Payload, key string) (any, bool) {
	if value, ok := p[key]; ok {
		return value, true
	}
	for k, value := range p {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}
