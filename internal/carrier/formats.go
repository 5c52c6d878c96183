package carrier

import (
	"fmt"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

// Format names accepted via the carrier-source header hint.
const (
	FormatAggregator = "AGGREGATOR"
	FormatDelhivery  = "DELHIVERY"
	FormatBlueX      = "BLUEX"
	FormatDTDC       = "DTDC"
	FormatEkart      = "EKART"
	FormatGeneric    = "GENERIC"
)

// aliasFormat extracts the five canonical fields through per-format
// field alias tables. Detection requires every detect key to be present.
type aliasFormat struct {
	name       string
	detectKeys []string
	awbKeys    []string
	eventKeys  []string
	remarkKeys []string
	attempt    []string
	timestamp  []string
	catchAll   bool
}

func (f *aliasFormat) Name() string { return f.name }

func (f *aliasFormat) Matches(p Payload) bool {
	if f.catchAll {
		return true
	}
	for _, key := range f.detectKeys {
		if _, ok := lookup(p, key); !ok {
			return false
		}
	}
	return len(f.detectKeys) > 0
}

func (f *aliasFormat) Parse(p Payload, now time.Time) (CanonicalRecord, error) {
	awb := stringField(p, f.awbKeys...)
	if awb == "" {
		return CanonicalRecord{}, fmt.Errorf("%w: awb number missing in %s payload", domain.ErrValidation, f.name)
	}

	return CanonicalRecord{
		AWBNumber:        awb,
		CarrierEventCode: stringField(p, f.eventKeys...),
		CarrierRemark:    stringField(p, f.remarkKeys...),
		AttemptNumber:    intField(p, 1, f.attempt...),
		AttemptTimestamp: timeField(p, now, f.timestamp...),
		SourceFormat:     f.name,
	}, nil
}

func (f *aliasFormat) Contract() Contract {
	required := make([]string, 0, 1)
	if len(f.awbKeys) > 0 {
		required = append(required, f.awbKeys[0])
	}

	optional := make([]string, 0, 8)
	appendFirst := func(keys []string) {
		if len(keys) > 0 {
			optional = append(optional, keys[0])
		}
	}
	appendFirst(f.eventKeys)
	appendFirst(f.remarkKeys)
	appendFirst(f.attempt)
	appendFirst(f.timestamp)

	return Contract{
		Name:           f.name,
		RequiredFields: required,
		OptionalFields: optional,
	}
}

// defaultFormats is the fixed detection order: the aggregator shape
// first (it multiplexes several carriers and shares field names with
// them), then single-carrier shapes, then the generic fallback.
func defaultFormats() []Format {
	return []Format{
		&aliasFormat{
			name:       FormatAggregator,
			detectKeys: []string{"event_type", "tracking_number"},
			awbKeys:    []string{"tracking_number", "awb_number"},
			eventKeys:  []string{"event_code", "status_code"},
			remarkKeys: []string{"failure_reason", "remark"},
			attempt:    []string{"attempt", "attempt_number"},
			timestamp:  []string{"event_time", "timestamp"},
		},
		&aliasFormat{
			name:       FormatDelhivery,
			detectKeys: []string{"waybill", "nsl_code"},
			awbKeys:    []string{"waybill"},
			eventKeys:  []string{"nsl_code", "status_code"},
			remarkKeys: []string{"instructions", "remark"},
			attempt:    []string{"attempt_count"},
			timestamp:  []string{"status_date_time", "status_date"},
		},
		&aliasFormat{
			name:       FormatBlueX,
			detectKeys: []string{"blx_refno"},
			awbKeys:    []string{"blx_refno", "awb"},
			eventKeys:  []string{"reason_code"},
			remarkKeys: []string{"reason", "comments"},
			attempt:    []string{"attempt_no"},
			timestamp:  []string{"scan_time"},
		},
		&aliasFormat{
			name:       FormatDTDC,
			detectKeys: []string{"cnno"},
			awbKeys:    []string{"cnno", "consignment_no"},
			eventKeys:  []string{"status_code"},
			remarkKeys: []string{"remarks", "non_delivery_reason"},
			attempt:    []string{"attempt"},
			timestamp:  []string{"status_date"},
		},
		&aliasFormat{
			name:       FormatEkart,
			detectKeys: []string{"tracking_id"},
			awbKeys:    []string{"tracking_id"},
			eventKeys:  []string{"ndr_code"},
			remarkKeys: []string{"ndr_remark", "description"},
			attempt:    []string{"attempt_number"},
			timestamp:  []string{"event_date"},
		},
		&aliasFormat{
			name:     FormatGeneric,
			catchAll: true,
			awbKeys:  []string{"awb", "awb_number", "tracking_number", "waybill"},
			eventKeys: []string{
				"event_code", "status_code", "ndr_code", "reason_code",
			},
			remarkKeys: []string{
				"remark", "remarks", "reason", "failure_reason", "description",
			},
			attempt:   []string{"attempt_number", "attempt", "attempt_count"},
			timestamp: []string{"timestamp", "event_time", "attempt_date"},
		},
	}
}
