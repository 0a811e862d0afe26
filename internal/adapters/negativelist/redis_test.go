package negativelist

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("021000021", "123456789012")
	b := Fingerprint("021000021", "123456789012")
	if a != b {
		t.Fatal("same inputs must produce the same fingerprint")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprint_SeparatorPreventsCollisions(t *testing.T) {
	// Without a separator "02100002" + "1123..." would collide with
	// "021000021" + "123...".
	a := Fingerprint("02100002", "1123456789012")
	b := Fingerprint("021000021", "123456789012")
	if a == b {
		t.Fatal("different routing/account splits must not collide")
	}
}

func TestFingerprint_NeverContainsRawDigits(t *testing.T) {
	f := Fingerprint("021000021", "123456789012")
	for _, raw := range []string{"021000021", "123456789012"} {
		if f == raw {
			t.Fatalf("fingerprint must not equal raw input %q", raw)
		}
	}
}
