// ABOUTME: Decision model: BLOCK > APPROVE > NEUTRAL with optional reasons
// ABOUTME: Merge combines handler results by precedence, independent of arrival order

package hooks

import "fmt"

// Decision is the verdict a handler returns. The zero value is DecisionNeutral.
// Values are ordered by precedence: a higher value wins a merge.
type Decision int

const (
	DecisionNeutral Decision = iota
	DecisionApprove
	DecisionBlock
)

// String returns the lower-case decision name.
func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionBlock:
		return "block"
	default:
		return "neutral"
	}
}

// Valid reports whether d is one of the three defined decisions.
func (d Decision) Valid() bool {
	return d >= DecisionNeutral && d <= DecisionBlock
}

// Wire returns the decision as the host spells it in JSON output.
// Neutral has no wire form and returns "".
func (d Decision) Wire() string {
	if d == DecisionNeutral {
		return ""
	}
	return d.String()
}

// Result is a Decision plus an optional human-readable reason.
type Result struct {
	Decision Decision
	Reason   string
}

// Block returns a blocking result. The reason is fed back to the agent.
func Block(reason string) Result {
	return Result{Decision: DecisionBlock, Reason: reason}
}

// Blockf is Block with fmt.Sprintf formatting.
func Blockf(format string, args ...any) Result {
	return Block(fmt.Sprintf(format, args...))
}

// Approve returns an approving result.
func Approve(reason string) Result {
	return Result{Decision: DecisionApprove, Reason: reason}
}

// Approvef is Approve with fmt.Sprintf formatting.
func Approvef(format string, args ...any) Result {
	return Approve(fmt.Sprintf(format, args...))
}

// Neutral returns the no-opinion result.
func Neutral() Result {
	return Result{}
}

// Merge combines results by precedence. The first result (in argument order)
// holding the winning decision supplies the reason. An empty input merges to
// Neutral. Invalid decisions are ignored.
func Merge(results ...Result) Result {
	var merged Result
	for _, r := range results {
		if r.Decision.Valid() && r.Decision > merged.Decision {
			merged = r
		}
	}
	if merged.Decision == DecisionNeutral {
		return Result{}
	}
	return merged
}
