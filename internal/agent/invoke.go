package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"runner/internal/domain"
)

// waitDelay bounds how long Wait lingers on inherited pipes after the agent
// process has been killed.
const waitDelay = 2 * time.Second

const noResponseText = "(No response from agent)"

// Request describes one agent invocation.
type Request struct {
	Prompt    string
	Dir       string
	Mode      Mode
	SessionID string
	// Timeout bounds buffered invocations. Zero means no deadline.
	Timeout time.Duration
}

// Result is the outcome of a buffered invocation. Structured is false when
// the agent printed something other than a JSON object; Text then carries the
// raw output so banners and error messages still reach the user.
type Result struct {
	Text       string
	SessionID  string
	DurationMS int64
	IsError    bool
	Structured bool
}

type bufferedPayload struct {
	Result     *string `json:"result"`
	SessionID  string  `json:"session_id"`
	DurationMS float64 `json:"duration_ms"`
	IsError    bool    `json:"is_error"`
}

// InvokeBuffered runs the agent to completion and parses its JSON result. When
// the timeout expires the process is killed and domain.ErrTimeout returned.
func (b *Bridge) InvokeBuffered(ctx context.Context, req Request) (*Result, error) {
	base, err := b.Resolve()
	if err != nil {
		return nil, err
	}
	args := BuildArgs(base, b.model, req.Mode, req.SessionID, req.Prompt, false)

	runCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	b.logger.Info().
		Str("dir", req.Dir).
		Str("mode", modeName(req.Mode)).
		Str("resume", shortSession(req.SessionID)).
		Msg("agent: launching")

	var out bytes.Buffer
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = req.Dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	runErr := cmd.Run()
	if runErr != nil {
		if timedOut(runErr, runCtx, ctx) {
			return nil, fmt.Errorf("%w after %s", domain.ErrTimeout, req.Timeout)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			// Non-zero exit still carries a usable answer or error banner.
		case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, fs.ErrNotExist), errors.Is(runErr, fs.ErrPermission):
			return nil, &domain.AgentUnavailableError{Hint: installHint(b.goos)}
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrInvocationFailure, runErr)
		}
	}

	raw := strings.TrimSpace(out.String())
	b.logger.Info().Int("exit_code", exitCode(cmd)).Int("output_len", len(raw)).Msg("agent: exited")
	res := parseResult(raw)
	if !res.Structured && raw != "" {
		b.logger.Warn().Str("output", truncate(raw, 200)).Msg("agent: returned non-JSON")
	}
	return res, nil
}

// timedOut reports whether a failed run was killed by its own deadline. A run
// that finished cleanly is never a timeout, even if the deadline has since
// passed.
func timedOut(runErr error, runCtx, parent context.Context) bool {
	return runErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}

// parseResult decodes the buffered JSON document, falling back to the raw
// text when the output is not a JSON object.
func parseResult(raw string) *Result {
	if raw == "" {
		return &Result{Text: noResponseText, IsError: true}
	}
	var payload bufferedPayload
	if !strings.HasPrefix(raw, "{") || json.Unmarshal([]byte(raw), &payload) != nil {
		return &Result{Text: raw}
	}
	text := raw
	if payload.Result != nil {
		text = *payload.Result
	}
	return &Result{
		Text:       text,
		SessionID:  payload.SessionID,
		DurationMS: int64(payload.DurationMS),
		IsError:    payload.IsError,
		Structured: true,
	}
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func modeName(m Mode) string {
	if m == ModeExecute {
		return "agent"
	}
	return string(m)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
