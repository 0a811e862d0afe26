package validation

import (
	"strings"
	"testing"
)

func TestValidateBankDetails(t *testing.T) {
	testCases := []struct {
		name      string
		country   string
		account   string
		routing   string
		wantValid bool
		wantErr   string // substring of an expected error, "" = none
		wantWarn  bool
	}{
		{
			name:    "US valid",
			country: "US", account: "123456789012", routing: "021000021",
			wantValid: true,
		},
		{
			name:    "US bad checksum fails closed",
			country: "US", account: "123456789012", routing: "123456789",
			wantValid: false, wantErr: "ABA checksum",
		},
		{
			name:    "US short account",
			country: "US", account: "123", routing: "021000021",
			wantValid: false, wantErr: "4-17 digits",
		},
		{
			name:    "German IBAN valid",
			country: "DE", account: "DE89 3704 0044 0532 0130 00", routing: "",
			wantValid: true,
		},
		{
			name:    "German IBAN bad check fails closed",
			country: "DE", account: "DE89370400440532013001", routing: "",
			wantValid: false, wantErr: "MOD-97",
		},
		{
			name:    "Foreign IBAN under DE warns on prefix",
			country: "DE", account: "FR1420041010050500013M02606", routing: "",
			wantValid: true, wantWarn: true,
		},
		{
			name:    "UK sort code valid",
			country: "GB", account: "31926819", routing: "60-16-13",
			wantValid: true,
		},
		{
			name:    "UK bad sort code",
			country: "GB", account: "31926819", routing: "6016",
			wantValid: false, wantErr: "6 digits",
		},
		{
			name:    "AU BSB valid",
			country: "AU", account: "123456", routing: "062-000",
			wantValid: true,
		},
		{
			name:    "NZ account valid",
			country: "NZ", account: "0102420068389000", routing: "",
			wantValid: true,
		},
		{
			name:    "CA transit and institution valid",
			country: "CA", account: "1234567", routing: "12345-001",
			wantValid: true,
		},
		{
			name:    "CA short transit",
			country: "CA", account: "1234567", routing: "1234-001",
			wantValid: false, wantErr: "transit",
		},
		{
			name:    "Unsupported country warns, stays valid",
			country: "BR", account: "12345678", routing: "",
			wantValid: true, wantWarn: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidateBankDetails(tc.country, tc.account, tc.routing)

			if got.Valid != tc.wantValid {
				t.Fatalf("Valid = %v, want %v (errors: %v)", got.Valid, tc.wantValid, got.Errors)
			}
			if tc.wantErr != "" {
				found := false
				for _, e := range got.Errors {
					if strings.Contains(e, tc.wantErr) {
						found = true
					}
				}
				if !found {
					t.Errorf("errors %v do not mention %q", got.Errors, tc.wantErr)
				}
			}
			if tc.wantWarn && len(got.Warnings) == 0 {
				t.Errorf("expected at least one warning, got none")
			}
		})
	}
}
