package validation

import (
	"regexp"
	"strings"
)

var ibanShape = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{1,30}$`)

// ValidateIBAN checks an IBAN per ISO 13616: shape, then the MOD-97
// check over the rotated, letter-expanded numeral string. The modulus
// runs digit by digit so arbitrarily long IBANs never overflow.
func ValidateIBAN(s string) bool {
	iban := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if !ibanShape.MatchString(iban) {
		return false
	}

	// Move the country code and check digits to the end.
	rotated := iban[4:] + iban[:4]

	rem := 0
	for i := 0; i < len(rotated); i++ {
		c := rotated[i]
		if c >= 'A' && c <= 'Z' {
			// A=10 .. Z=35 expands to two digits.
			v := int(c-'A') + 10
			rem = (rem*10 + v/10) % 97
			rem = (rem*10 + v%10) % 97
		} else {
			rem = (rem*10 + int(c-'0')) % 97
		}
	}
	return rem == 1
}

// NormalizeIBAN returns the canonical spaceless upper-case form.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}
