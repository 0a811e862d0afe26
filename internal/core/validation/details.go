package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// BankDetailsResult is the structured outcome of a bank-detail check.
// Business-rule failures land in Errors; Warnings never make the
// result invalid.
type BankDetailsResult struct {
	Valid     bool
	Errors    []string
	Warnings  []string
	Formatted string
}

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	usAccount  = regexp.MustCompile(`^\d{4,17}$`)
	ukSortCode = regexp.MustCompile(`^\d{6}$`)
	ukAccount  = regexp.MustCompile(`^\d{8}$`)
	auBSB      = regexp.MustCompile(`^\d{6}$`)
	auAccount  = regexp.MustCompile(`^\d{5,9}$`)
	nzAccount  = regexp.MustCompile(`^\d{15,16}$`)
	caRouting  = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	caAccount  = regexp.MustCompile(`^\d{7,12}$`)
)

// ibanCountries are the countries whose account identifier is an IBAN
// validated with the MOD-97 checksum. These fail closed.
var ibanCountries = map[string]bool{
	"DE": true, "FR": true, "ES": true, "IT": true, "NL": true,
	"BE": true, "AT": true, "PT": true, "IE": true, "FI": true,
	"LU": true, "GR": true,
}

// ValidateBankDetails dispatches per country. Checksum rails (US
// routing, IBAN countries) fail closed; purely format-checked
// countries fail closed on shape; countries we have no rules for
// return a warning, not an error, so onboarding stays open for them.
func ValidateBankDetails(country, accountNumber, routingNumber string) BankDetailsResult {
	res := BankDetailsResult{}
	country = strings.ToUpper(country)
	account := strings.ReplaceAll(accountNumber, " ", "")
	routing := strings.ReplaceAll(routingNumber, " ", "")

	switch {
	case country == "US":
		if !ValidateABARoutingNumber(routing) {
			res.Errors = append(res.Errors, "routing number failed ABA checksum")
		}
		if !usAccount.MatchString(account) {
			res.Errors = append(res.Errors, "account number must be 4-17 digits")
		}
		res.Formatted = routing + "/" + account

	case ibanCountries[country]:
		iban := NormalizeIBAN(account)
		if !ValidateIBAN(iban) {
			res.Errors = append(res.Errors, "IBAN failed MOD-97 checksum")
		} else if !strings.HasPrefix(iban, country) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("IBAN country prefix %s does not match account country %s", iban[:2], country))
		}
		res.Formatted = iban

	case country == "GB":
		if !ukSortCode.MatchString(stripSeparators(routing)) {
			res.Errors = append(res.Errors, "sort code must be 6 digits")
		}
		if !ukAccount.MatchString(account) {
			res.Errors = append(res.Errors, "account number must be 8 digits")
		}
		res.Formatted = formatSortCode(stripSeparators(routing)) + " " + account

	case country == "AU":
		if !auBSB.MatchString(stripSeparators(routing)) {
			res.Errors = append(res.Errors, "BSB must be 6 digits")
		}
		if !auAccount.MatchString(account) {
			res.Errors = append(res.Errors, "account number must be 5-9 digits")
		}
		res.Formatted = stripSeparators(routing) + "/" + account

	case country == "NZ":
		if !nzAccount.MatchString(stripSeparators(account)) {
			res.Errors = append(res.Errors, "account number must be 15-16 digits")
		}
		res.Formatted = stripSeparators(account)

	case country == "CA":
		if !caRouting.MatchString(routing) {
			res.Errors = append(res.Errors, "routing must be a 5-digit transit and 3-digit institution")
		}
		if !caAccount.MatchString(account) {
			res.Errors = append(res.Errors, "account number must be 7-12 digits")
		}
		res.Formatted = stripSeparators(routing) + "/" + account

	default:
		// Format checks fail open for countries we have no rules for.
		res.Warnings = append(res.Warnings, fmt.Sprintf("no validation rules for country %s", country))
		if account != "" && !digitsOnly.MatchString(account) {
			res.Warnings = append(res.Warnings, "account number contains non-digit characters")
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

func formatSortCode(s string) string {
	if len(s) != 6 {
		return s
	}
	return s[0:2] + "-" + s[2:4] + "-" + s[4:6]
}
