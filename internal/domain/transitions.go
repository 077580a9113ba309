package domain

// allowedTransitions lists every legal edge. A pair that is absent is forbidden.
// COMPLETE and FAILED have no outgoing edges.
var allowedTransitions = map[JobState][]JobState{
	JobStateDraft:          {JobStateAskRunning, JobStatePlanRunning},
	JobStateAskRunning:     {JobStateAskDone, JobStateNeedsInput, JobStateFailed},
	JobStateNeedsInput:     {JobStateAskRunning},
	JobStateAskDone:        {JobStatePlanRunning},
	JobStatePlanRunning:    {JobStatePlanReady, JobStatePlanNeedsInput, JobStateFailed},
	JobStatePlanNeedsInput: {JobStatePlanRunning},
	JobStatePlanReady:      {JobStateApproved},
	JobStateApproved:       {JobStateExecuting},
	JobStateExecuting:      {JobStateComplete, JobStateFailed},
	JobStateComplete:       {},
	JobStateFailed:         {},
}

// AllStates returns every state in declaration order.
func AllStates() []JobState {
	return []JobState{
		JobStateDraft,
		JobStateAskRunning,
		JobStateAskDone,
		JobStateNeedsInput,
		JobStatePlanRunning,
		JobStatePlanReady,
		JobStatePlanNeedsInput,
		JobStateApproved,
		JobStateExecuting,
		JobStateComplete,
		JobStateFailed,
	}
}

// Valid reports whether s is a known state.
func (s JobState) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether the state has no outgoing transitions.
func IsTerminal(s JobState) bool {
	return s == JobStateComplete || s == JobStateFailed
}

// AllowedTargets returns a copy of the legal targets from current.
func AllowedTargets(current JobState) []JobState {
	return append([]JobState(nil), allowedTransitions[current]...)
}

// CheckTransition returns nil when current -> target is a legal edge and an
// *InvalidTransitionError otherwise.
func CheckTransition(current, target JobState) error {
	for _, allowed := range allowedTransitions[current] {
		if allowed == target {
			return nil
		}
	}
	return &InvalidTransitionError{Current: current, Target: target}
}
