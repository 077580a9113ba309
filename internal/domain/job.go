package domain

import "time"

// JobState enumerates job lifecycle states.
type JobState string

const (
	JobStateDraft          JobState = "draft"
	JobStateAskRunning     JobState = "ask_running"
	JobStateAskDone        JobState = "ask_done"
	JobStateNeedsInput     JobState = "needs_input"
	JobStatePlanRunning    JobState = "plan_running"
	JobStatePlanReady      JobState = "plan_ready"
	JobStatePlanNeedsInput JobState = "plan_needs_input"
	JobStateApproved       JobState = "approved"
	JobStateExecuting      JobState = "executing"
	JobStateComplete       JobState = "complete"
	JobStateFailed         JobState = "failed"
)

// EventType enumerates the categories of events streamed to clients.
type EventType string

const (
	EventStep  EventType = "step"
	EventLog   EventType = "log"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Terminal reports whether a consumer should stop draining after this event.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// Event is a single timestamped progress notification belonging to a job.
type Event struct {
	Type      EventType `json:"event_type"`
	Data      string    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Job encapsulates one ask -> plan -> approve -> execute workflow instance.
type Job struct {
	ID            string    `json:"job_id"`
	ProjectPath   string    `json:"project_path"`
	State         JobState  `json:"state"`
	SessionID     string    `json:"session_id"`
	PlanID        string    `json:"plan_id"`
	PlanMarkdown  string    `json:"plan_markdown"`
	ArtifactsPath string    `json:"artifacts_dir"`
	Events        []Event   `json:"events"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no mutable memory with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Events = append([]Event(nil), j.Events...)
	return &cp
}

// LatestEvent returns the most recent event, if any.
func (j *Job) LatestEvent() (Event, bool) {
	if j == nil || len(j.Events) == 0 {
		return Event{}, false
	}
	return j.Events[len(j.Events)-1], true
}
