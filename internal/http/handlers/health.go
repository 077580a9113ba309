package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status         string `json:"status"`
	AgentAvailable bool   `json:"agent_available"`
	AgentCommand   string `json:"agent_command"`
	Jobs           int    `json:"jobs"`
}

// Health reports ok when the agent CLI resolves, degraded otherwise.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Jobs: a.Jobs.Len()}
	desc, err := a.Agent.Describe()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("health: agent CLI not found")
		resp.Status = "degraded"
	} else {
		resp.AgentAvailable = true
		resp.AgentCommand = desc
	}
	a.json(w, http.StatusOK, resp)
}
