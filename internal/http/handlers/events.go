package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"runner/internal/domain"
	"runner/pkg/zip"
)

// keepAlive is the interval between SSE comment pings.
const keepAlive = 15 * time.Second

// Events streams the job's events as server-sent events until a DONE or
// ERROR event has been written or the client goes away.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if _, err := a.Jobs.Get(jobID); err != nil {
		a.fail(w, r, err)
		return
	}
	ch, err := a.Jobs.EventChannel(jobID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		waitCtx, cancel := context.WithTimeout(ctx, keepAlive)
		ev, err := ch.Get(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				a.Logger.Debug().Str("job_id", jobID).Msg("events: client disconnected")
				return
			}
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
			continue
		}
		if err := writeSSE(w, ev); err != nil {
			return
		}
		flusher.Flush()
		if ev.Type.Terminal() {
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, ev domain.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", ev.Type)
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	b.WriteString("\n")
	_, err := fmt.Fprint(w, b.String())
	return err
}

type jobStatusResponse struct {
	JobID       string          `json:"job_id"`
	State       domain.JobState `json:"state"`
	EventCount  int             `json:"event_count"`
	LatestEvent string          `json:"latest_event"`
	PlanID      string          `json:"plan_id,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// JobStatus is the polling alternative to Events.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.URL.Query().Get("job_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	latest, _ := job.LatestEvent()
	a.json(w, http.StatusOK, jobStatusResponse{
		JobID:       job.ID,
		State:       job.State,
		EventCount:  len(job.Events),
		LatestEvent: latest.Data,
		PlanID:      job.PlanID,
		UpdatedAt:   job.UpdatedAt,
	})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	list := a.Jobs.List()
	items := make([]jobStatusResponse, 0, len(list))
	for _, job := range list {
		latest, _ := job.LatestEvent()
		items = append(items, jobStatusResponse{
			JobID:       job.ID,
			State:       job.State,
			EventCount:  len(job.Events),
			LatestEvent: latest.Data,
			PlanID:      job.PlanID,
			UpdatedAt:   job.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// JobArtifacts downloads every artifact of the job as a zip archive.
func (a *App) JobArtifacts(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := zip.ArchiveDir(job.ArtifactsPath)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "job-"+job.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
