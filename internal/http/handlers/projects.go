package handlers

import (
	"net/http"
	"strconv"

	"runner/internal/projects"
)

func (a *App) ListProjects(w http.ResponseWriter, r *http.Request) {
	days := a.Config.ProjectScanDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			a.error(w, http.StatusBadRequest, "bad_request", "days must be between 1 and 365")
			return
		}
		days = n
	}
	found, err := projects.Scan(a.Config.ProjectRoot, days, a.now())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().Int("count", len(found)).Str("root", a.Config.ProjectRoot).Msg("projects: discovered")
	a.json(w, http.StatusOK, map[string]any{"projects": found})
}

type createProjectRequest struct {
	Name string `json:"name"`
}

func (a *App) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	info, err := projects.Create(a.Config.ProjectRoot, req.Name, a.Config.TemplateDir)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !projects.HasTemplate(a.Config.TemplateDir) {
		a.Logger.Warn().Str("path", info.Path).Msg("projects: created without rules template")
	}
	a.Logger.Info().Str("path", info.Path).Msg("projects: created")
	a.json(w, http.StatusCreated, map[string]string{"name": info.Name, "path": info.Path})
}
