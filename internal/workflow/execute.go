package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"runner/internal/agent"
	"runner/internal/domain"
	"runner/internal/jobs"
	"runner/internal/prompts"
)

// Execute moves the approved job carrying planID to EXECUTING and starts the
// streaming agent in the background. Progress is observable through the
// job's event channel; the returned job is the EXECUTING snapshot. The run is
// bound to the service lifetime, not to the caller's context, so it outlives
// the request that started it.
func (s *Service) Execute(_ context.Context, planID string) (*domain.Job, error) {
	job, err := s.jobs.GetByPlanID(planID)
	if err != nil {
		return nil, err
	}
	job, err = s.jobs.Transition(job.ID, domain.JobStateExecuting)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("job_id", job.ID).Str("plan_id", planID).Str("session", job.SessionID).Msg("workflow: execution started")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runExecution(s.base, job)
	}()
	return job, nil
}

// runExecution drains the agent stream into LOG events and finishes the job.
// Run metadata is saved on every exit path, panics included.
func (s *Service) runExecution(ctx context.Context, job *domain.Job) {
	defer s.saveMetadata(job.ID)
	defer func() {
		if r := recover(); r != nil {
			s.fail(job.ID, fmt.Errorf("%w: panic: %v", domain.ErrInvocationFailure, r))
		}
	}()

	s.addEvent(job.ID, domain.EventStep, "Starting agent in execute mode (streaming)")
	output, final, err := s.drain(ctx, job)
	if err != nil {
		s.failExecution(job.ID, err)
		return
	}

	if final != nil && final.SessionID != "" {
		s.recordSession(job, final.SessionID)
	}
	saveCtx := context.WithoutCancel(ctx)
	if _, err := s.jobs.SaveArtifact(saveCtx, job.ID, jobs.ArtifactLogs, output); err != nil {
		s.failExecution(job.ID, err)
		return
	}
	if _, err := s.jobs.SaveArtifact(saveCtx, job.ID, jobs.ArtifactSummary, renderSummary(job, final, output, time.Now().UTC())); err != nil {
		s.failExecution(job.ID, err)
		return
	}
	if _, err := s.jobs.Transition(job.ID, domain.JobStateComplete); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("workflow: mark complete")
		return
	}
	s.addEvent(job.ID, domain.EventDone, "Execution completed successfully")
	s.logger.Info().Str("job_id", job.ID).Int("output_len", len(output)).Msg("workflow: execution complete")
}

// drain consumes the stream until its end item. The result marker is recorded
// but draining continues so trailing output is still forwarded.
func (s *Service) drain(ctx context.Context, job *domain.Job) (string, *agent.ResultChunk, error) {
	items, err := s.agent.InvokeStreaming(ctx, agent.Request{
		Prompt:    prompts.Execute(job.PlanMarkdown),
		Dir:       job.ProjectPath,
		Mode:      agent.ModeExecute,
		SessionID: job.SessionID,
	})
	if err != nil {
		return "", nil, err
	}

	var (
		output strings.Builder
		final  *agent.ResultChunk
		ended  bool
		endErr error
	)
	for item := range items {
		switch item.Kind {
		case agent.ItemProgress:
			output.WriteString(item.Text)
			s.addEvent(job.ID, domain.EventLog, item.Text)
		case agent.ItemResult:
			final = item.Result
			if final != nil && final.Result != "" {
				output.WriteString(final.Result)
			}
		case agent.ItemEnd:
			ended = true
			endErr = item.Err
		}
	}

	switch {
	case endErr != nil:
		return output.String(), final, endErr
	case !ended:
		if err := ctx.Err(); err != nil {
			return output.String(), final, fmt.Errorf("%w: %v", domain.ErrInvocationFailure, err)
		}
		return output.String(), final, fmt.Errorf("%w: stream closed without exit status", domain.ErrInvocationFailure)
	case final != nil && final.IsError:
		return output.String(), final, fmt.Errorf("%w: agent reported an error: %s", domain.ErrInvocationFailure, final.Result)
	}
	return output.String(), final, nil
}

func (s *Service) failExecution(jobID string, err error) {
	s.logger.Error().Err(err).Str("job_id", jobID).Msg("workflow: execution failed")
	if _, terr := s.jobs.Transition(jobID, domain.JobStateFailed); terr != nil {
		s.logger.Error().Err(terr).Str("job_id", jobID).Msg("workflow: mark failed")
	}
	s.addEvent(jobID, domain.EventError, err.Error())
}

// renderSummary produces job_summary.md.
func renderSummary(job *domain.Job, final *agent.ResultChunk, output string, finished time.Time) string {
	body := output
	if final != nil && final.Result != "" {
		body = final.Result
	}

	var b strings.Builder
	b.WriteString("# Execution Summary\n\n")
	fmt.Fprintf(&b, "- Job: %s\n", job.ID)
	fmt.Fprintf(&b, "- Plan: %s\n", job.PlanID)
	fmt.Fprintf(&b, "- Project: %s\n", job.ProjectPath)
	b.WriteString("- State: Complete\n")
	fmt.Fprintf(&b, "- Finished: %s\n", finished.Format(time.RFC3339))
	if final != nil && final.DurationMS > 0 {
		fmt.Fprintf(&b, "- Agent duration: %s\n", (time.Duration(final.DurationMS) * time.Millisecond).Round(time.Millisecond))
	}
	b.WriteString("\n## Result\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String()
}
