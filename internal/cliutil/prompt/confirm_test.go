package prompt

import "testing"

func TestConfirmWithForceShortCircuits(t *testing.T) {
	ok, err := ConfirmWithForce("delete candidate?", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("ConfirmWithForce(force=true) = false, want true")
	}
}
