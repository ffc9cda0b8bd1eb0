package protocol

import (
	"testing"

	"github.com/cruciblehq/edged/internal/restartpolicy"
)

func TestPolicyWireRoundTrip(t *testing.T) {
	cases := []restartpolicy.Policy{
		{Kind: restartpolicy.Default},
		{Kind: restartpolicy.UnlessStopped},
		{Kind: restartpolicy.No},
		{Kind: restartpolicy.OnFailure, MaxRetries: 4},
	}

	for _, want := range cases {
		got := PolicyToWire(want).ToPolicy()
		if got.Kind != want.Kind || got.MaxRetries != want.MaxRetries {
			t.Fatalf("round trip of %+v = %+v", want, got)
		}
	}
}

func TestUnrecognizedKindDefaultsToDefault(t *testing.T) {
	got := RestartPolicyWire{Kind: "bogus"}.ToPolicy()
	if got.Kind != restartpolicy.Default {
		t.Fatalf("ToPolicy(bogus) = %v, want Default", got.Kind)
	}
}
