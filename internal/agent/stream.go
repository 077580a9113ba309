package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"

	"runner/internal/domain"
)

const streamBufferSize = 64

// ItemKind classifies a StreamItem.
type ItemKind int

const (
	// ItemProgress carries incremental text to forward as a log line.
	ItemProgress ItemKind = iota
	// ItemResult carries the agent's final answer. More items may follow.
	ItemResult
	// ItemEnd is always the last item; the channel is closed after it.
	ItemEnd
)

// ResultChunk is the terminal `result` chunk of a stream.
type ResultChunk struct {
	Type       string          `json:"type"`
	Result     string          `json:"result"`
	SessionID  string          `json:"session_id"`
	DurationMS float64         `json:"duration_ms"`
	IsError    bool            `json:"is_error"`
	Raw        json.RawMessage `json:"-"`
}

// StreamItem is one element produced by InvokeStreaming.
type StreamItem struct {
	Kind   ItemKind
	Text   string
	Result *ResultChunk
	// ExitCode and Err are set on ItemEnd. Err wraps
	// domain.ErrInvocationFailure when the process failed.
	ExitCode int
	Err      error
}

// InvokeStreaming launches the agent in stream-json mode with no deadline and
// returns a channel of classified output. A dedicated goroutine reads the
// process output line by line with no length cap; the final item is always
// ItemEnd. Cancelling ctx kills the process.
func (b *Bridge) InvokeStreaming(ctx context.Context, req Request) (<-chan StreamItem, error) {
	base, err := b.Resolve()
	if err != nil {
		return nil, err
	}
	args := BuildArgs(base, b.model, req.Mode, req.SessionID, req.Prompt, true)

	b.logger.Info().
		Str("dir", req.Dir).
		Str("mode", modeName(req.Mode)).
		Str("resume", shortSession(req.SessionID)).
		Msg("agent: launching stream")

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = req.Dir
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, &domain.AgentUnavailableError{Hint: installHint(b.goos)}
		}
		return nil, fmt.Errorf("%w: start agent: %v", domain.ErrInvocationFailure, err)
	}

	waitCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		waitCh <- err
	}()

	out := make(chan StreamItem, streamBufferSize)
	go b.pump(ctx, pr, waitCh, cmd, out)
	return out, nil
}

func (b *Bridge) pump(ctx context.Context, r *io.PipeReader, waitCh <-chan error, cmd *exec.Cmd, out chan<- StreamItem) {
	defer close(out)

	send := func(item StreamItem) bool {
		select {
		case out <- item:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := bufio.NewReaderSize(r, 64*1024)
	consuming := true
	var readErr error
	for {
		raw, err := reader.ReadString('\n')
		if line := strings.TrimRight(raw, "\r\n"); line != "" {
			if item, ok := classifyLine(line); ok && !send(item) {
				consuming = false
				break
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
				b.logger.Warn().Err(err).Msg("agent: stream read failed")
			}
			break
		}
	}
	// Keep the pipe drained so the process can exit.
	_, _ = io.Copy(io.Discard, r)

	waitErr := <-waitCh
	end := StreamItem{Kind: ItemEnd, ExitCode: exitCode(cmd)}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		end.Err = fmt.Errorf("%w: agent exited with code %d", domain.ErrInvocationFailure, end.ExitCode)
	default:
		end.Err = fmt.Errorf("%w: %v", domain.ErrInvocationFailure, waitErr)
	}
	if readErr != nil && end.Err == nil {
		end.Err = fmt.Errorf("%w: read agent output: %v", domain.ErrInvocationFailure, readErr)
	}
	if ctx.Err() != nil && end.Err == nil {
		end.Err = ctx.Err()
	}
	b.logger.Info().Int("exit_code", end.ExitCode).Msg("agent: stream exited")
	if consuming {
		send(end)
	}
}

// classifyLine maps one output line onto a stream item. The boolean is false
// when the line carries nothing worth forwarding.
func classifyLine(line string) (StreamItem, bool) {
	var chunk map[string]any
	if json.Unmarshal([]byte(line), &chunk) != nil || chunk == nil {
		return StreamItem{Kind: ItemProgress, Text: line}, true
	}

	switch stringField(chunk, "type") {
	case "text_delta":
		text := stringField(chunk, "content")
		if text == "" {
			return StreamItem{}, false
		}
		return StreamItem{Kind: ItemProgress, Text: text}, true
	case "result":
		if stringField(chunk, "result") == "" {
			return StreamItem{}, false
		}
		var rc ResultChunk
		_ = json.Unmarshal([]byte(line), &rc)
		rc.Raw = json.RawMessage(line)
		return StreamItem{Kind: ItemResult, Text: rc.Result, Result: &rc}, true
	case "tool_use":
		name := stringField(chunk, "name")
		if name == "" {
			name = "unknown"
		}
		return StreamItem{Kind: ItemProgress, Text: "[Tool: " + name + "]"}, true
	case "tool_result":
		return StreamItem{Kind: ItemProgress, Text: "[Tool completed]"}, true
	default:
		text := stringField(chunk, "content")
		if text == "" {
			text = stringField(chunk, "result")
		}
		if text == "" {
			compact, err := json.Marshal(chunk)
			if err != nil {
				return StreamItem{Kind: ItemProgress, Text: line}, true
			}
			text = string(compact)
		}
		return StreamItem{Kind: ItemProgress, Text: text}, true
	}
}

func stringField(chunk map[string]any, key string) string {
	if v, ok := chunk[key].(string); ok {
		return v
	}
	return ""
}
