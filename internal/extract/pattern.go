// Package extract implements the multi-strategy invoice field extraction:
// pattern recognition over noisy text, candidate validation, and the
// prompt-cascade orchestrator with OCR fallback.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Shipment numbers are digit runs built around "47"; delivery numbers around
// "85", with an "820"-prefixed secondary pattern. The prefix-zero allowances
// and minimum length come from the upstream invoice numbering scheme.
const minNumberLength = 7

var (
	shipmentRunPattern = regexp.MustCompile(`\b\d*47\d*\b`)
	deliveryRunPattern = regexp.MustCompile(`\b\d*85\d*\b`)

	deliveryExact820Pattern = regexp.MustCompile(`\b820\d{7}\b`)
	delivery820TokenPattern = regexp.MustCompile(`\b820\w*\b`)

	orderFormPattern = regexp.MustCompile(`Orde`)
	nonDigitPattern  = regexp.MustCompile(`\D`)

	// Anchored variants used to re-check candidate runs: the shipment
	// prefix allows up to two leading zeros, the delivery prefix one.
	shipmentPrefixPattern = regexp.MustCompile(`\b0{0,2}47\d*\b`)
	deliveryPrefixPattern = regexp.MustCompile(`\b0{0,1}85\d*\b`)
)

// normalizeText folds OCR output into a canonical form so fullwidth digits
// and compatibility characters match the ASCII patterns.
func normalizeText(text string) string {
	return norm.NFKC.String(text)
}

// ShipmentNumber extracts a shipment number from free text. Text that
// mentions "Orde" within its first 300 characters is treated as a purchase
// order rather than an invoice and yields "".
func ShipmentNumber(text string) string {
	text = normalizeText(text)
	if looksLikeOrderForm(text) {
		return ""
	}

	runs := shipmentRunPattern.FindAllString(text, -1)
	id := firstAcceptableRun(runs, shipmentPrefixPattern)
	if len(id) < minNumberLength {
		return ""
	}
	return id
}

// DeliveryNumber extracts a delivery number from free text. Digit runs
// containing "85" are tried first; when none qualifies, "820"-prefixed runs
// are scanned as a secondary pattern.
func DeliveryNumber(text string) string {
	text = normalizeText(text)

	runs := deliveryRunPattern.FindAllString(text, -1)
	id := firstAcceptableRun(runs, deliveryPrefixPattern)
	if len(id) >= minNumberLength {
		return id
	}
	return delivery820Match(text)
}

// looksLikeOrderForm reports whether the leading text marks the document as
// an order form. Only the first 300 characters are considered.
func looksLikeOrderForm(text string) bool {
	head := text
	if len(head) > 300 {
		head = head[:300]
	}
	return orderFormPattern.MatchString(head)
}

// firstAcceptableRun re-checks candidate digit runs against the anchored
// prefix pattern and returns the first match of acceptable length.
func firstAcceptableRun(runs []string, prefixPattern *regexp.Regexp) string {
	if len(runs) == 0 {
		return ""
	}
	for _, match := range prefixPattern.FindAllString(strings.Join(runs, " "), -1) {
		if len(match) >= minNumberLength {
			return match
		}
	}
	return ""
}

// delivery820Match is the secondary delivery pattern: tokens beginning with
// "820", tolerating OCR letter noise inside the run. An exact ten-digit
// match (820 plus seven digits) is preferred over longer or shorter runs.
func delivery820Match(text string) string {
	if m := deliveryExact820Pattern.FindString(text); m != "" {
		return m
	}

	var fallback string
	for _, token := range delivery820TokenPattern.FindAllString(text, -1) {
		digits := nonDigitPattern.ReplaceAllString(token, "")
		if !strings.HasPrefix(digits, "820") || len(digits) < minNumberLength {
			continue
		}
		if len(digits) == 10 {
			return digits
		}
		if fallback == "" {
			fallback = digits
		}
	}
	return fallback
}
