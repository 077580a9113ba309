package domain

import (
	"errors"
	"testing"
)

func TestCheckTransitionAllowsEveryTableEdge(t *testing.T) {
	edges := []struct {
		from JobState
		to   JobState
	}{
		{JobStateDraft, JobStateAskRunning},
		{JobStateDraft, JobStatePlanRunning},
		{JobStateAskRunning, JobStateAskDone},
		{JobStateAskRunning, JobStateNeedsInput},
		{JobStateAskRunning, JobStateFailed},
		{JobStateNeedsInput, JobStateAskRunning},
		{JobStateAskDone, JobStatePlanRunning},
		{JobStatePlanRunning, JobStatePlanReady},
		{JobStatePlanRunning, JobStatePlanNeedsInput},
		{JobStatePlanRunning, JobStateFailed},
		{JobStatePlanNeedsInput, JobStatePlanRunning},
		{JobStatePlanReady, JobStateApproved},
		{JobStateApproved, JobStateExecuting},
		{JobStateExecuting, JobStateComplete},
		{JobStateExecuting, JobStateFailed},
	}
	for _, tc := range edges {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if err := CheckTransition(tc.from, tc.to); err != nil {
				t.Fatalf("CheckTransition(%s, %s) = %v, want nil", tc.from, tc.to, err)
			}
		})
	}
}

func TestCheckTransitionRejectsPairsOutsideTable(t *testing.T) {
	for _, from := range AllStates() {
		allowed := map[JobState]bool{}
		for _, to := range AllowedTargets(from) {
			allowed[to] = true
		}
		for _, to := range AllStates() {
			if allowed[to] {
				continue
			}
			err := CheckTransition(from, to)
			if err == nil {
				t.Fatalf("CheckTransition(%s, %s) succeeded, want error", from, to)
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Fatalf("error %T is not *InvalidTransitionError", err)
			}
			if ite.Current != from || ite.Target != to {
				t.Fatalf("error endpoints = %s->%s, want %s->%s", ite.Current, ite.Target, from, to)
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("error does not match ErrInvalidTransition")
			}
		}
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, terminal := range []JobState{JobStateComplete, JobStateFailed} {
		if !IsTerminal(terminal) {
			t.Fatalf("IsTerminal(%s) = false", terminal)
		}
		if n := len(AllowedTargets(terminal)); n != 0 {
			t.Fatalf("%s has %d outgoing edges, want 0", terminal, n)
		}
		for _, to := range AllStates() {
			if err := CheckTransition(terminal, to); err == nil {
				t.Fatalf("CheckTransition(%s, %s) succeeded", terminal, to)
			}
		}
	}
}

func TestEveryTargetIsAKnownState(t *testing.T) {
	for _, from := range AllStates() {
		if !from.Valid() {
			t.Fatalf("state %s missing from table", from)
		}
		for _, to := range AllowedTargets(from) {
			if !to.Valid() {
				t.Fatalf("target %s of %s is not a table key", to, from)
			}
		}
	}
	if JobState("bogus").Valid() {
		t.Fatalf("unknown state reported valid")
	}
}

func TestAllowedTargetsReturnsCopy(t *testing.T) {
	targets := AllowedTargets(JobStateDraft)
	targets[0] = JobStateComplete
	if err := CheckTransition(JobStateDraft, JobStateAskRunning); err != nil {
		t.Fatalf("table mutated through AllowedTargets: %v", err)
	}
}
