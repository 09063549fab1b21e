package diagnostic

import (
	"regexp"
	"strings"
)

// BillingMarker is the literal sentinel the expert-response service emits on
// exactly one line once it has enough information to quote:
//
//	BILL_BREAKDOWN: Labor: ₹[Amount], Delivery: ₹[Amount], Distance: [KM]km, Total: ₹[Sum]
//
// Its presence in an expert reply is the sole signal that ends the
// open-ended questioning phase.
const BillingMarker = "BILL_BREAKDOWN"

// DefaultTotal is used when a billing message carries no parseable total.
const DefaultTotal = "500"

// The extraction below is deliberately lenient: it matches any "Total: ₹N"
// occurrence, not only one inside a well-formed sentinel line, and can
// therefore mis-extract from unrelated numeric text. That matches the
// documented product behavior; tighten only with a product decision.
var (
	totalPattern    = regexp.MustCompile(`(?i)Total:\s*₹\s*([0-9][0-9,]*)`)
	laborPattern    = regexp.MustCompile(`(?i)Labor:\s*₹\s*([0-9][0-9,]*)`)
	deliveryPattern = regexp.MustCompile(`(?i)Delivery:\s*₹\s*([0-9][0-9,]*)`)
	distancePattern = regexp.MustCompile(`(?i)Distance:\s*([0-9]+(?:\.[0-9]+)?)\s*km`)
)

// BillingDirective is the parsed form of the billing sentinel. All fields
// keep the wire formatting (digits with thousands separators, no currency
// symbol).
type BillingDirective struct {
	Labor    string `json:"labor,omitempty"`
	Delivery string `json:"delivery,omitempty"`
	Distance string `json:"distance,omitempty"`
	Total    string `json:"total"`
}

// ContainsBillingDirective reports whether the text carries the sentinel.
func ContainsBillingDirective(text string) bool {
	return strings.Contains(text, BillingMarker)
}

// ExtractTotal pulls the quoted total out of a billing message. A parsing
// miss degrades to DefaultTotal rather than failing the flow.
func ExtractTotal(text string) string {
	if m := totalPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return DefaultTotal
}

// ParseBillingDirective extracts the full breakdown. It returns false when
// the sentinel is absent; individual fields are best-effort and may be empty
// apart from Total, which always carries at least the default.
func ParseBillingDirective(text string) (BillingDirective, bool) {
	if !ContainsBillingDirective(text) {
		return BillingDirective{}, false
	}
	d := BillingDirective{Total: ExtractTotal(text)}
	if m := laborPattern.FindStringSubmatch(text); m != nil {
		d.Labor = m[1]
	}
	if m := deliveryPattern.FindStringSubmatch(text); m != nil {
		d.Delivery = m[1]
	}
	if m := distancePattern.FindStringSubmatch(text); m != nil {
		d.Distance = m[1]
	}
	return d, true
}
