package restartpolicy

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the restart-policy variants.
type Kind int

const (
	// Default defers to unless-stopped, or no when the deploy is debug.
	Default Kind = iota
	UnlessStopped
	No
	OnFailure
)

// Policy is the restart-policy tagged union. MaxRetries is only meaningful
// when Kind == OnFailure.
type Policy struct {
	Kind       Kind
	MaxRetries uint32
}

// Label name applied to containers so the runtime's restart manager can read
// the policy back after the orchestrator process restarts.
const Label = "restart.policy"

// Resolve translates the policy into the concrete variant the runtime
// applies, collapsing Default to unless-stopped normally, or to no when the
// deploy runs in debug mode.
func (p Policy) Resolve(debug bool) Policy {
	if p.Kind != Default {
		return p
	}
	if debug {
		return Policy{Kind: No}
	}
	return Policy{Kind: UnlessStopped}
}

// LabelValue renders the container label value for this (already-resolved)
// policy. Callers should call Resolve first; an unresolved Default renders
// as unless-stopped, matching the non-debug default.
func (p Policy) LabelValue() string {
	switch p.Kind {
	case No:
		return "no"
	case OnFailure:
		return fmt.Sprintf("on-failure:%d", p.MaxRetries)
	case UnlessStopped, Default:
		return "unless-stopped"
	default:
		return "unless-stopped"
	}
}

// Parse reads a policy back from its label value, as produced by LabelValue.
// An unrecognized or empty value is treated as UnlessStopped, matching the
// label the orchestrator would have written for a Default policy.
func Parse(value string) Policy {
	switch {
	case value == "no":
		return Policy{Kind: No}
	case value == "unless-stopped", value == "":
		return Policy{Kind: UnlessStopped}
	case strings.HasPrefix(value, "on-failure:"):
		n, err := strconv.ParseUint(strings.TrimPrefix(value, "on-failure:"), 10, 32)
		if err != nil {
			return Policy{Kind: UnlessStopped}
		}
		return Policy{Kind: OnFailure, MaxRetries: uint32(n)}
	default:
		return Policy{Kind: UnlessStopped}
	}
}
