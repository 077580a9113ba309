// Package workflow drives a job through the ask, plan, approve and execute
// phases. Each phase handler owns its error translation: agent failures move
// the job to FAILED with an ERROR event before the error is returned, and run
// metadata is persisted whenever a phase finishes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"runner/internal/agent"
	"runner/internal/domain"
	"runner/internal/infra"
	"runner/internal/jobs"
	"runner/internal/prompts"
)

// Invoker is the subset of the agent bridge used by the phase handlers.
type Invoker interface {
	InvokeBuffered(ctx context.Context, req agent.Request) (*agent.Result, error)
	InvokeStreaming(ctx context.Context, req agent.Request) (<-chan agent.StreamItem, error)
}

// Service coordinates the registry and the agent bridge.
type Service struct {
	jobs    *jobs.Registry
	agent   Invoker
	logger  infra.Logger
	timeout time.Duration

	// base outlives individual requests; background executions run under it.
	base context.Context
	wg   sync.WaitGroup
}

// NewService wires a Service. Executions started by the service are cancelled
// when base is done. timeout bounds ask and plan invocations.
func NewService(base context.Context, registry *jobs.Registry, invoker Invoker, logger infra.Logger, timeout time.Duration) *Service {
	return &Service{
		jobs:    registry,
		agent:   invoker,
		logger:  logger,
		timeout: timeout,
		base:    base,
	}
}

// Wait blocks until every background execution has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// AskInput is the payload of an ask phase. JobID resumes a job waiting for
// input instead of creating a new one.
type AskInput struct {
	ProjectPath string
	Message     string
	History     []prompts.Message
	SessionID   string
	JobID       string
}

// AskOutput is the outcome of an ask phase.
type AskOutput struct {
	JobID     string
	State     domain.JobState
	AskText   string
	SessionID string
	Questions []Question
}

// PlanInput is the payload of a plan phase.
type PlanInput struct {
	ProjectPath string
	Objective   string
	Constraints []string
	Answers     map[string]string
	History     []prompts.Message
	SessionID   string
	JobID       string
}

// PlanOutput is the outcome of a plan phase. PlanID is empty when the agent
// answered with nothing but clarification questions. Questions found inside a
// full plan are still reported alongside its PlanID.
type PlanOutput struct {
	JobID        string
	State        domain.JobState
	PlanID       string
	PlanMarkdown string
	SessionID    string
	Questions    []Question
}

// Ask runs a read-only question against the project.
func (s *Service) Ask(ctx context.Context, in AskInput) (*AskOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	job, err := s.begin(in.JobID, in.ProjectPath, in.SessionID, domain.JobStateAskRunning)
	if err != nil {
		return nil, err
	}

	res, err := s.invokeReadOnly(ctx, job, agent.ModeAsk, prompts.Ask(in.Message, in.History))
	if err != nil {
		return nil, err
	}

	questions := ExtractQuestions(res.Text)
	next := domain.JobStateAskDone
	if len(questions) > 0 {
		next = domain.JobStateNeedsInput
	}
	session := s.recordSession(job, res.SessionID)
	if _, err := s.jobs.SaveArtifact(ctx, job.ID, jobs.ArtifactAskResponse, res.Text); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("workflow: save ask response failed")
	}
	if _, err := s.jobs.Transition(job.ID, next); err != nil {
		return nil, err
	}
	s.addEvent(job.ID, domain.EventDone, "Ask completed")
	s.saveMetadata(job.ID)

	return &AskOutput{
		JobID:     job.ID,
		State:     next,
		AskText:   res.Text,
		SessionID: session,
		Questions: questions,
	}, nil
}

// Plan asks the agent for an implementation plan in read-only plan mode.
func (s *Service) Plan(ctx context.Context, in PlanInput) (*PlanOutput, error) {
	if strings.TrimSpace(in.Objective) == "" {
		return nil, fmt.Errorf("%w: objective is required", domain.ErrInvalidInput)
	}
	job, err := s.begin(in.JobID, in.ProjectPath, in.SessionID, domain.JobStatePlanRunning)
	if err != nil {
		return nil, err
	}

	prompt := prompts.Plan(in.Objective, in.Constraints, in.Answers, in.History)
	res, err := s.invokeReadOnly(ctx, job, agent.ModePlan, prompt)
	if err != nil {
		return nil, err
	}

	out := &PlanOutput{
		JobID:        job.ID,
		PlanMarkdown: res.Text,
		Questions:    ExtractQuestions(res.Text),
	}
	out.SessionID = s.recordSession(job, res.SessionID)
	if _, err := s.jobs.SaveArtifact(ctx, job.ID, jobs.ArtifactPlan, res.Text); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("workflow: save plan failed")
	}

	out.State = domain.JobStatePlanNeedsInput
	if !OnlyQuestions(res.Text, out.Questions) {
		out.State = domain.JobStatePlanReady
		out.PlanID = jobs.NewPlanID()
		if err := s.jobs.AttachPlan(job.ID, out.PlanID, res.Text); err != nil {
			return nil, err
		}
	}
	if _, err := s.jobs.Transition(job.ID, out.State); err != nil {
		return nil, err
	}
	s.addEvent(job.ID, domain.EventDone, "Plan generation completed")
	s.saveMetadata(job.ID)

	s.logger.Info().Str("job_id", job.ID).Str("plan_id", out.PlanID).Int("questions", len(out.Questions)).Msg("workflow: plan generated")
	return out, nil
}

// Approve gates execution: it moves the job carrying planID to APPROVED.
func (s *Service) Approve(ctx context.Context, planID string) (*domain.Job, error) {
	job, err := s.jobs.GetByPlanID(planID)
	if err != nil {
		return nil, err
	}
	job, err = s.jobs.Transition(job.ID, domain.JobStateApproved)
	if err != nil {
		return nil, err
	}
	s.addEvent(job.ID, domain.EventStep, "Plan approved")
	s.saveMetadata(job.ID)
	s.logger.Info().Str("job_id", job.ID).Str("plan_id", planID).Msg("workflow: plan approved")
	return job, nil
}

// begin resolves or creates the job for a read-only phase and moves it to
// target. A caller supplied session id overrides the stored one.
func (s *Service) begin(jobID, projectPath, sessionID string, target domain.JobState) (*domain.Job, error) {
	var (
		job *domain.Job
		err error
	)
	if jobID != "" {
		job, err = s.jobs.Get(jobID)
	} else {
		if err := checkProjectPath(projectPath); err != nil {
			return nil, err
		}
		job, err = s.jobs.Create(projectPath)
	}
	if err != nil {
		return nil, err
	}
	if sessionID != "" {
		if err := s.jobs.SetSession(job.ID, sessionID); err != nil {
			return nil, err
		}
	}
	return s.jobs.Transition(job.ID, target)
}

func checkProjectPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: project_path is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: project_path %q is not a directory", domain.ErrInvalidInput, path)
	}
	return nil
}

// invokeReadOnly runs a buffered invocation wrapped in the integrity check.
// On failure the job is failed before the error is returned.
func (s *Service) invokeReadOnly(ctx context.Context, job *domain.Job, mode agent.Mode, prompt string) (*agent.Result, error) {
	before := snapshotMTimes(job.ProjectPath)

	res, err := s.agent.InvokeBuffered(ctx, agent.Request{
		Prompt:    prompt,
		Dir:       job.ProjectPath,
		Mode:      mode,
		SessionID: job.SessionID,
		Timeout:   s.timeout,
	})
	if err != nil {
		s.fail(job.ID, err)
		return nil, err
	}
	if res.IsError {
		s.logger.Warn().Str("job_id", job.ID).Str("mode", string(mode)).Msg("workflow: agent flagged its result as an error")
	}

	if changed := detectModifications(job.ProjectPath, before); len(changed) > 0 {
		s.logger.Warn().Str("job_id", job.ID).Strs("paths", changed).Msg("workflow: files modified during read-only phase")
		s.addEvent(job.ID, domain.EventLog, "Warning: files modified during read-only phase: "+strings.Join(changed, ", "))
	}
	return res, nil
}

func (s *Service) recordSession(job *domain.Job, sessionID string) string {
	if sessionID == "" {
		return job.SessionID
	}
	if err := s.jobs.SetSession(job.ID, sessionID); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("workflow: set session failed")
	}
	return sessionID
}

// fail moves the job to FAILED, records an ERROR event and persists metadata.
func (s *Service) fail(jobID string, cause error) {
	if _, err := s.jobs.Transition(jobID, domain.JobStateFailed); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("workflow: mark failed")
	}
	s.addEvent(jobID, domain.EventError, failureMessage(cause))
	s.saveMetadata(jobID)
	s.logger.Warn().Err(cause).Str("job_id", jobID).Msg("workflow: phase failed")
}

func failureMessage(err error) string {
	var unavailable *domain.AgentUnavailableError
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return "Agent timed out"
	case errors.As(err, &unavailable):
		return "Agent CLI not found: " + unavailable.Hint
	default:
		return err.Error()
	}
}

func (s *Service) addEvent(jobID string, typ domain.EventType, data string) {
	if _, err := s.jobs.AddEvent(jobID, typ, data); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("workflow: add event failed")
	}
}

func (s *Service) saveMetadata(jobID string) {
	if _, err := s.jobs.SaveRunMetadata(context.Background(), jobID); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("workflow: save run metadata failed")
	}
}
