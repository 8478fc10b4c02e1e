// Package assistant – retry.go decides whether a generation run produced
// anything usable and bounds how many runs one incoming message may cost.
package assistant

import "strings"

// sentinelReply is the canned "I don't understand" text some generations
// degrade to. A run whose first step is this sentinel is treated the same
// as an empty run.
const sentinelReply = "抱歉，我不太明白你的意思，可以再說一次嗎？"

// apologyText is the hard-coded fallback installed when every attempt
// failed to produce a usable reply.
const apologyText = "抱歉，我這邊遇到一點問題，請稍後再試一次 🙏"

// RetryPolicy decides when a generation run should be re-issued.
// IsRetryable inspects the already-deduplicated step list of one run.
type RetryPolicy struct {
	// MaxAttempts is the total number of generation runs allowed, the
	// first run included.
	MaxAttempts int

	// IsRetryable reports whether the run's outcome warrants another run.
	IsRetryable func(steps []Step) bool
}

// DefaultRetryPolicy allows one retry and considers a run unusable when it
// yields no steps or opens with the sentinel apology.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		IsRetryable: func(steps []Step) bool {
			if len(steps) == 0 {
				return true
			}
			return strings.TrimSpace(steps[0].Text) == sentinelReply
		},
	}
}

// ApologyStep is the single fallback step used when all attempts failed.
func ApologyStep() Step {
	return Step{Text: apologyText}
}
