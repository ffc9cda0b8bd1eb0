package protocol

import "github.com/cruciblehq/edged/internal/restartpolicy"

// Wire string forms of restartpolicy.Kind.
const (
	kindDefault       = "default"
	kindUnlessStopped = "unlessStopped"
	kindNo            = "no"
	kindOnFailure     = "onFailure"
)

// ToPolicy converts a wire restart policy into restartpolicy.Policy. An
// unrecognized Kind is treated as Default, matching Resolve's fallback.
func (w RestartPolicyWire) ToPolicy() restartpolicy.Policy {
	switch w.Kind {
	case kindUnlessStopped:
		return restartpolicy.Policy{Kind: restartpolicy.UnlessStopped}
	case kindNo:
		return restartpolicy.Policy{Kind: restartpolicy.No}
	case kindOnFailure:
		return restartpolicy.Policy{Kind: restartpolicy.OnFailure, MaxRetries: w.MaxRetries}
	default:
		return restartpolicy.Policy{Kind: restartpolicy.Default}
	}
}

// PolicyToWire converts a restartpolicy.Policy into its wire form.
func PolicyToWire(p restartpolicy.Policy) RestartPolicyWire {
	switch p.Kind {
	case restartpolicy.UnlessStopped:
		return RestartPolicyWire{Kind: kindUnlessStopped}
	case restartpolicy.No:
		return RestartPolicyWire{Kind: kindNo}
	case restartpolicy.OnFailure:
		return RestartPolicyWire{Kind: kindOnFailure, MaxRetries: p.MaxRetries}
	default:
		return RestartPolicyWire{Kind: kindDefault}
	}
}
