package idempotency

import "testing"

func TestGenerateKeyDeterministic(t *testing.T) {
	a := GenerateKey("primary-1", "CR-DEP-1", "Amani", "Kamau", "2015-06-01", "dependant-create")
	b := GenerateKey("primary-1", "CR-DEP-1", "Amani", "Kamau", "2015-06-01", "dependant-create")
	if a != b {
		t.Errorf("same parts must hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want a hex sha256", len(a))
	}
}

func TestGenerateKeyDistinguishesParts(t *testing.T) {
	a := GenerateKey("primary-1", "CR-DEP-1")
	b := GenerateKey("primary-1", "CR-DEP-2")
	if a == b {
		t.Error("different parts must hash differently")
	}

	// Joining with a separator keeps adjacent parts from bleeding together.
	c := GenerateKey("primary-1", "ab", "c")
	d := GenerateKey("primary-1", "a", "bc")
	if c == d {
		t.Error("part boundaries must affect the key")
	}
}
