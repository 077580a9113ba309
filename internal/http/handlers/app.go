package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"runner/internal/domain"
	"runner/internal/infra"
	"runner/internal/jobs"
	"runner/internal/workflow"
)

// maxBodyBytes caps request payloads; plans and histories are plain text.
const maxBodyBytes = 4 << 20

// AgentProbe reports how the agent CLI resolves on this host.
type AgentProbe interface {
	Describe() (string, error)
}

type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Jobs     *jobs.Registry
	Workflow *workflow.Service
	Agent    AgentProbe
	now      func() time.Time
}

func NewApp(cfg *infra.Config, logger infra.Logger, registry *jobs.Registry, svc *workflow.Service, probe AgentProbe) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Jobs:     registry,
		Workflow: svc,
		Agent:    probe,
		now:      time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}

// fail translates a domain error into its HTTP status.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("handler failed")
	}
	a.error(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrAgentUnavailable):
		return http.StatusServiceUnavailable, "agent_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decode reads a JSON body of at most maxBodyBytes into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid payload: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
