package deref

import "testing"

// TestRepeatedLongerPatternBlocked reproduces the cycle-rejection scenario:
// pushing a 4-step pointer loop, then trying to continue the loop, must be
// rejected and must not grow the chain.
func TestRepeatedLongerPatternBlocked(t *testing.T) {
	c := &Chain{}
	seq := []uint64{0x7fffffffb078, 0x7fffffffb070, 0x7fffffffb088, 0x7fffffffb080, 0x7fffffffb078}
	for _, v := range seq {
		if !c.TryPush(v) {
			t.Fatalf("TryPush(%#x) unexpectedly rejected while building fixture", v)
		}
	}
	if c.Len() != len(seq) {
		t.Fatalf("chain len = %d, want %d", c.Len(), len(seq))
	}

	if c.TryPush(0x7fffffffb070) {
		t.Fatalf("TryPush should have been rejected")
	}
	if c.Len() != len(seq) {
		t.Fatalf("chain len after rejection = %d, want %d", c.Len(), len(seq))
	}
}

func TestSingleElementAlwaysAccepted(t *testing.T) {
	c := &Chain{}
	if !c.TryPush(0x1234) {
		t.Fatalf("single element rejected")
	}
}

func TestTwoEqualElementsRejected(t *testing.T) {
	c := &Chain{}
	if !c.TryPush(0x1234) {
		t.Fatalf("first push rejected")
	}
	if c.TryPush(0x1234) {
		t.Fatalf("second equal push should be rejected (length-1 repeat of itself)")
	}
	if c.Len() != 1 {
		t.Fatalf("chain len = %d, want 1", c.Len())
	}
}

// TestNoAcceptedSequenceContainsRepeat is property test 4.
func TestNoAcceptedSequenceContainsRepeat(t *testing.T) {
	c := &Chain{}
	candidates := []uint64{1, 2, 3, 1, 2, 4, 1, 2, 3, 5, 6}
	for _, v := range candidates {
		accepted := c.TryPush(v)
		if accepted && hasRepeatingPattern(c.Values) {
			t.Fatalf("accepted sequence %v contains a repeat after pushing %#x", c.Values, v)
		}
	}
}
