package validation

// ValidateABARoutingNumber checks a US ABA routing number: exactly nine
// digits whose 3-7-1 weighted sum is divisible by ten. The all-zero
// number satisfies the checksum but is not an assignable routing number
// and is rejected.
func ValidateABARoutingNumber(r string) bool {
	if len(r) != 9 {
		return false
	}
	d := make([]int, 9)
	allZero := true
	for i := 0; i < 9; i++ {
		c := r[i]
		if c < '0' || c > '9' {
			return false
		}
		d[i] = int(c - '0')
		if d[i] != 0 {
			allZero = false
		}
	}
	if allZero {
		return false
	}
	sum := 3*(d[0]+d[3]+d[6]) + 7*(d[1]+d[4]+d[7]) + (d[2] + d[5] + d[8])
	return sum%10 == 0
}

// SplitRoutingNumber splits a validated ABA routing number into its
// 8-digit transit id and trailing check digit, as NACHA entry detail
// records store them.
func SplitRoutingNumber(r string) (transit, checkDigit string) {
	return r[:8], r[8:]
}
