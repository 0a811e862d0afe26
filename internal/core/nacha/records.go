package nacha

import (
	"fmt"
	"strings"
	"time"
)

// Every NACHA record is exactly RecordSize characters; files are
// padded with filler records to a multiple of BlockingFactor lines.
const (
	RecordSize     = 94
	BlockingFactor = 10

	serviceClassMixed = "200"
)

// Transaction codes, direction x account type. The +1 variants are
// zero-dollar prenotes.
const (
	txCheckingCredit        = "22"
	txCheckingCreditPrenote = "23"
	txCheckingDebit         = "27"
	txCheckingDebitPrenote  = "28"
	txSavingsCredit         = "32"
	txSavingsCreditPrenote  = "33"
	txSavingsDebit          = "37"
	txSavingsDebitPrenote   = "38"
)

// alpha left-justifies and space-pads a textual field, truncating at
// width. NACHA alphanumeric fields are upper-case ASCII.
func alpha(s string, width int) string {
	s = strings.ToUpper(sanitize(s))
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// numeric right-justifies and zero-pads a digit field, truncating the
// most significant digits at width.
func numeric(s string, width int) string {
	if len(s) > width {
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

// amount renders cents as the 10-digit zero-padded NACHA amount field.
func amount(cents int64) string {
	return fmt.Sprintf("%010d", cents)
}

// sanitize strips characters the format cannot carry.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == ' ' || r == '-' || r == '.' || r == '&' || r == '/' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func yymmdd(t time.Time) string { return t.Format("060102") }
func hhmm(t time.Time) string   { return t.Format("1504") }

// fileHeader builds the type-1 record.
func fileHeader(cfg OriginConfig, now time.Time) string {
	var b strings.Builder
	b.WriteString("1")
	b.WriteString("01")
	b.WriteString(alpha(" "+cfg.ImmediateDestination, 10))
	b.WriteString(alpha(" "+cfg.ImmediateOrigin, 10))
	b.WriteString(yymmdd(now))
	b.WriteString(hhmm(now))
	b.WriteString(string(cfg.FileIDModifier))
	b.WriteString("094")
	b.WriteString("10")
	b.WriteString("1")
	b.WriteString(alpha(cfg.DestinationName, 23))
	b.WriteString(alpha(cfg.OriginName, 23))
	b.WriteString(alpha("", 8)) // reference code
	return b.String()
}

// batchHeader builds the type-5 record.
func batchHeader(cfg OriginConfig, secCode, description string, effective time.Time, batchNumber int) string {
	var b strings.Builder
	b.WriteString("5")
	b.WriteString(serviceClassMixed)
	b.WriteString(alpha(cfg.CompanyName, 16))
	b.WriteString(alpha("", 20)) // company discretionary data
	b.WriteString(alpha(cfg.CompanyID, 10))
	b.WriteString(alpha(secCode, 3))
	b.WriteString(alpha(description, 10))
	b.WriteString(alpha("", 6)) // company descriptive date
	b.WriteString(yymmdd(effective))
	b.WriteString(alpha("", 3)) // settlement date, filled by the operator
	b.WriteString("1")          // originator status code
	b.WriteString(cfg.odfiID())
	b.WriteString(numeric(fmt.Sprintf("%d", batchNumber), 7))
	return b.String()
}

// entryDetail builds a type-6 record. transit and checkDigit come from
// the already-validated routing number; accountNumber is the transient
// decrypted value.
func entryDetail(txCode, transit, checkDigit, accountNumber string, cents int64, individualID, individualName, trace string) string {
	var b strings.Builder
	b.WriteString("6")
	b.WriteString(txCode)
	b.WriteString(numeric(transit, 8))
	b.WriteString(checkDigit)
	b.WriteString(alpha(accountNumber, 17))
	b.WriteString(amount(cents))
	b.WriteString(alpha(individualID, 15))
	b.WriteString(alpha(individualName, 22))
	b.WriteString(alpha("", 2)) // discretionary data
	b.WriteString("0")          // addenda record indicator
	b.WriteString(trace)
	return b.String()
}

// batchControl builds the type-8 record.
func batchControl(cfg OriginConfig, entryCount int, entryHash, debitCents, creditCents int64, batchNumber int) string {
	var b strings.Builder
	b.WriteString("8")
	b.WriteString(serviceClassMixed)
	b.WriteString(numeric(fmt.Sprintf("%d", entryCount), 6))
	b.WriteString(numeric(fmt.Sprintf("%d", entryHash), 10))
	b.WriteString(numeric(fmt.Sprintf("%d", debitCents), 12))
	b.WriteString(numeric(fmt.Sprintf("%d", creditCents), 12))
	b.WriteString(alpha(cfg.CompanyID, 10))
	b.WriteString(alpha("", 19)) // message authentication code
	b.WriteString(alpha("", 6))  // reserved
	b.WriteString(cfg.odfiID())
	b.WriteString(numeric(fmt.Sprintf("%d", batchNumber), 7))
	return b.String()
}

// fileControl builds the type-9 record. blockCount counts 10-line
// blocks including the control record itself.
func fileControl(batchCount, blockCount, entryCount int, entryHash, debitCents, creditCents int64) string {
	var b strings.Builder
	b.WriteString("9")
	b.WriteString(numeric(fmt.Sprintf("%d", batchCount), 6))
	b.WriteString(numeric(fmt.Sprintf("%d", blockCount), 6))
	b.WriteString(numeric(fmt.Sprintf("%d", entryCount), 8))
	b.WriteString(numeric(fmt.Sprintf("%d", entryHash), 10))
	b.WriteString(numeric(fmt.Sprintf("%d", debitCents), 12))
	b.WriteString(numeric(fmt.Sprintf("%d", creditCents), 12))
	b.WriteString(alpha("", 39)) // reserved
	return b.String()
}

// fillerRecord is a full line of nines.
var fillerRecord = strings.Repeat("9", RecordSize)
