package orchestrator

import "testing"

func TestFailureCountAbsentIsZero(t *testing.T) {
	if got := failureCount(map[string]string{}); got != 0 {
		t.Fatalf("failureCount(absent) = %d, want 0", got)
	}
}

func TestFailureCountParsesDigits(t *testing.T) {
	if got := failureCount(map[string]string{labelFailures: "42"}); got != 42 {
		t.Fatalf("failureCount = %d, want 42", got)
	}
}

func TestFailureCountMalformedIsZero(t *testing.T) {
	if got := failureCount(map[string]string{labelFailures: "not-a-number"}); got != 0 {
		t.Fatalf("failureCount(malformed) = %d, want 0", got)
	}
}
