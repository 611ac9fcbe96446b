package orchestrator

// RetryDecision is the outcome of the retry policy for a failed attempt.
type RetryDecision struct {
	Retry    bool
	Priority int // New priority when Retry is true
}

// DecideRetry is the pure retry policy. A job is retried while its retry
// count has not reached the limit, at a priority reduced by one and floored
// at PriorityMin. There is no time-based backoff: deprioritization is the
// throttle, so a persistently failing job yields to healthier work instead
// of being delayed outright.
func DecideRetry(retryCount, maxRetries, priority int) RetryDecision {
	if retryCount >= maxRetries {
		return RetryDecision{Retry: false}
	}

	newPriority := priority - 1
	if newPriority < PriorityMin {
		newPriority = PriorityMin
	}
	return RetryDecision{Retry: true, Priority: newPriority}
}
