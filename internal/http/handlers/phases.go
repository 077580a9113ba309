package handlers

import (
	"net/http"

	"runner/internal/domain"
	"runner/internal/prompts"
	"runner/internal/workflow"
)

type askRequest struct {
	ProjectPath string            `json:"project_path"`
	Message     string            `json:"message"`
	History     []prompts.Message `json:"history"`
	SessionID   string            `json:"session_id"`
	JobID       string            `json:"job_id"`
}

type askResponse struct {
	JobID     string              `json:"job_id"`
	State     domain.JobState     `json:"state"`
	AskText   string              `json:"ask_text"`
	SessionID string              `json:"session_id"`
	Questions []workflow.Question `json:"questions"`
}

func (a *App) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Workflow.Ask(r.Context(), workflow.AskInput{
		ProjectPath: req.ProjectPath,
		Message:     req.Message,
		History:     req.History,
		SessionID:   req.SessionID,
		JobID:       req.JobID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, askResponse{
		JobID:     out.JobID,
		State:     out.State,
		AskText:   out.AskText,
		SessionID: out.SessionID,
		Questions: nonNil(out.Questions),
	})
}

type planRequest struct {
	ProjectPath string            `json:"project_path"`
	Objective   string            `json:"objective"`
	Constraints []string          `json:"constraints"`
	Answers     map[string]string `json:"answers"`
	History     []prompts.Message `json:"history"`
	SessionID   string            `json:"session_id"`
	JobID       string            `json:"job_id"`
}

type planResponse struct {
	JobID        string              `json:"job_id"`
	State        domain.JobState     `json:"state"`
	PlanID       string              `json:"plan_id"`
	PlanMarkdown string              `json:"plan_markdown"`
	SessionID    string              `json:"session_id"`
	Questions    []workflow.Question `json:"questions"`
}

func (a *App) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	out, err := a.Workflow.Plan(r.Context(), workflow.PlanInput{
		ProjectPath: req.ProjectPath,
		Objective:   req.Objective,
		Constraints: req.Constraints,
		Answers:     req.Answers,
		History:     req.History,
		SessionID:   req.SessionID,
		JobID:       req.JobID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, planResponse{
		JobID:        out.JobID,
		State:        out.State,
		PlanID:       out.PlanID,
		PlanMarkdown: out.PlanMarkdown,
		SessionID:    out.SessionID,
		Questions:    nonNil(out.Questions),
	})
}

type planRef struct {
	PlanID string `json:"plan_id"`
}

func (a *App) Approve(w http.ResponseWriter, r *http.Request) {
	var req planRef
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	job, err := a.Workflow.Approve(r.Context(), req.PlanID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": "approved"})
}

// Execute starts the approved plan; progress is read from /events or
// /job-status.
func (a *App) Execute(w http.ResponseWriter, r *http.Request) {
	var req planRef
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	job, err := a.Workflow.Execute(r.Context(), req.PlanID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "state": string(job.State)})
}

func nonNil(qs []workflow.Question) []workflow.Question {
	if qs == nil {
		return []workflow.Question{}
	}
	return qs
}
