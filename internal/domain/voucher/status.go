package voucher

import "regexp"

// BaseStatus represents the primary lifecycle status of a voucher.
// "Pending Deletion" is deliberately not a BaseStatus: the deletion
// workflow is an orthogonal overlay tracked on the aggregate, and the
// combined display value is produced by Voucher.DisplayStatus.
type BaseStatus string

const (
	StatusUnpaid    BaseStatus = "Unpaid"
	StatusPaid      BaseStatus = "Paid"
	StatusCancelled BaseStatus = "Cancelled"
)

// StatusPendingDeletion is the display-only overlay status value
const StatusPendingDeletion = "Pending Deletion"

// IsValid checks if the status is a valid BaseStatus
func (s BaseStatus) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BaseStatus
func (s BaseStatus) String() string {
	return string(s)
}

// Years supported by the voucher store, in lookup precedence order.
// Only ActiveYear accepts writes; the rest are read-only archives.
const (
	ActiveYear        = "2026"
	ArchiveBucketYear = "<2023"
)

// YearPrecedence is the fixed search order for cross-year lookups
var YearPrecedence = []string{"2026", "2025", "2024", "2023", ArchiveBucketYear}

// IsKnownYear checks whether a partition key is one of the supported years
func IsKnownYear(year string) bool {
	for _, y := range YearPrecedence {
		if y == year {
			return true
		}
	}
	return false
}

// Months valid for the payment month field
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// IsValidMonth checks whether a payment month value is a known month name
func IsValidMonth(month string) bool {
	for _, m := range Months {
		if m == month {
			return true
		}
	}
	return false
}

// PaymentType classifies a voucher's payment against its contract
type PaymentType string

const (
	PaymentLumpsum   PaymentType = "lumpsum"
	PaymentFirstPart PaymentType = "firstPart"
	PaymentBalance   PaymentType = "balance"
	PaymentOtherPart PaymentType = "otherPart"
)

// IsValid checks if the payment type is valid
func (p PaymentType) IsValid() bool {
	switch p {
	case PaymentLumpsum, PaymentFirstPart, PaymentBalance, PaymentOtherPart:
		return true
	}
	return false
}

// Particular prefix patterns per payment type, carried over from the
// production intake form so descriptions stay machine-classifiable.
var (
	firstPartPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^first\s*part[-\s]?p(ay)?m(en)?t`),
		regexp.MustCompile(`(?i)^1st\s*part[-\s]?p(ay)?m(en)?t`),
		regexp.MustCompile(`(?i)^first\s*pt[-\s]?pmt`),
		regexp.MustCompile(`(?i)^1st\s*pt[-\s]?pmt`),
	}
	balancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(bal(ance)?|final|fnl)\s*p(ay)?m(en)?t`),
	}
	otherPartPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(2nd|second|3rd|third|4th|fourth|5th|fifth)\s*part[-\s]?p(ay)?m(en)?t`),
	}
)

// MatchesParticular reports whether a particular/description text carries
// the prefix required for this payment type. Lumpsum has no constraint.
func (p PaymentType) MatchesParticular(particular string) bool {
	var patterns []*regexp.Regexp
	switch p {
	case PaymentFirstPart:
		patterns = firstPartPatterns
	case PaymentBalance:
		patterns = balancePatterns
	case PaymentOtherPart:
		patterns = otherPartPatterns
	default:
		return true
	}
	for _, pattern := range patterns {
		if pattern.MatchString(particular) {
			return true
		}
	}
	return false
}

// DetectPaymentType classifies a particular text by its prefix,
// defaulting to lumpsum when no prefix matches.
func DetectPaymentType(particular string) PaymentType {
	for _, pattern := range firstPartPatterns {
		if pattern.MatchString(particular) {
			return PaymentFirstPart
		}
	}
	for _, pattern := range balancePatterns {
		if pattern.MatchString(particular) {
			return PaymentBalance
		}
	}
	for _, pattern := range otherPartPatterns {
		if pattern.MatchString(particular) {
			return PaymentOtherPart
		}
	}
	return PaymentLumpsum
}
