package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"runner/internal/domain"
	"runner/internal/infra"
	"runner/internal/storage"
)

// Artifact file names read by clients from a job directory.
const (
	ArtifactAskResponse = "ask_response.md"
	ArtifactPlan        = "plan.md"
	ArtifactLogs        = "logs.txt"
	ArtifactSummary     = "job_summary.md"
	ArtifactRunMetadata = "run.json"
)

// RunRecorder mirrors persisted run metadata somewhere outside the job
// directory. Failures are logged and never fail the caller.
type RunRecorder interface {
	RecordRun(ctx context.Context, job *domain.Job, payload []byte) error
}

type entry struct {
	mu      sync.RWMutex
	job     *domain.Job
	channel *EventChannel
}

// Registry is the in-memory owner of every job record and its event channel.
// It is the only component that mutates job state. The registry is volatile:
// nothing is reloaded after a restart.
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*entry
	store    *storage.FileStore
	logger   infra.Logger
	recorder RunRecorder
	now      func() time.Time
	newID    func() string
}

// Option customises a Registry.
type Option func(*Registry)

// WithRecorder mirrors run metadata to r on every SaveRunMetadata.
func WithRecorder(r RunRecorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(reg *Registry) { reg.now = now }
}

// NewRegistry constructs an empty registry writing artifacts into store.
func NewRegistry(store *storage.FileStore, logger infra.Logger, opts ...Option) *Registry {
	r := &Registry{
		jobs:   make(map[string]*entry),
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  shortID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// shortID returns 12 hex characters of a random UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NewPlanID allocates an identifier for a generated plan.
func NewPlanID() string {
	return shortID()
}

// Create registers a new DRAFT job and creates its artifacts directory.
func (r *Registry) Create(projectPath string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for _, exists := r.jobs[id]; exists; _, exists = r.jobs[id] {
		id = r.newID()
	}
	dir, err := r.store.EnsureDir(id)
	if err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}

	now := r.now()
	job := &domain.Job{
		ID:            id,
		ProjectPath:   projectPath,
		State:         domain.JobStateDraft,
		ArtifactsPath: dir,
		Events:        []domain.Event{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.jobs[id] = &entry{job: job, channel: newEventChannel()}
	r.logger.Info().Str("job_id", id).Str("project_path", projectPath).Msg("jobs: created")
	return job.Clone(), nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NotFoundf("job %q", id)
	}
	return e, nil
}

// Get returns a snapshot of the job with the given id.
func (r *Registry) Get(id string) (*domain.Job, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.job.Clone(), nil
}

// GetByPlanID returns a snapshot of the job carrying planID. This is a linear
// scan over every live job.
func (r *Registry) GetByPlanID(planID string) (*domain.Job, error) {
	if planID != "" {
		r.mu.RLock()
		entries := make([]*entry, 0, len(r.jobs))
		for _, e := range r.jobs {
			entries = append(entries, e)
		}
		r.mu.RUnlock()

		for _, e := range entries {
			e.mu.RLock()
			if e.job.PlanID == planID {
				job := e.job.Clone()
				e.mu.RUnlock()
				return job, nil
			}
			e.mu.RUnlock()
		}
	}
	return nil, domain.NotFoundf("plan %q", planID)
}

// Transition moves the job to target if the edge is legal. On failure the job
// is left untouched and an *domain.InvalidTransitionError is returned.
func (r *Registry) Transition(id string, target domain.JobState) (*domain.Job, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := domain.CheckTransition(e.job.State, target); err != nil {
		return nil, err
	}
	from := e.job.State
	e.job.State = target
	e.job.UpdatedAt = r.now()
	r.logger.Info().Str("job_id", id).Str("from", string(from)).Str("state", string(target)).Msg("jobs: transitioned")
	return e.job.Clone(), nil
}

// SetSession records the agent continuation token for the job.
func (r *Registry) SetSession(id, sessionID string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.job.SessionID = sessionID
	e.mu.Unlock()
	return nil
}

// AttachPlan records the generated plan on the job.
func (r *Registry) AttachPlan(id, planID, markdown string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.job.PlanID = planID
	e.job.PlanMarkdown = markdown
	e.mu.Unlock()
	return nil
}

// AddEvent appends an event to the job log and enqueues it on the job's
// channel. Both happen under the job lock so channel order matches log order.
func (r *Registry) AddEvent(id string, typ domain.EventType, data string) (domain.Event, error) {
	e, err := r.lookup(id)
	if err != nil {
		return domain.Event{}, err
	}
	ev := domain.Event{Type: typ, Data: data, Timestamp: r.now()}
	e.mu.Lock()
	e.job.Events = append(e.job.Events, ev)
	e.channel.Put(ev)
	e.mu.Unlock()
	return ev, nil
}

// EventChannel returns the single channel associated with the job.
func (r *Registry) EventChannel(id string) (*EventChannel, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if e.channel == nil {
		return nil, domain.NotFoundf("event channel for job %q", id)
	}
	return e.channel, nil
}

// SaveArtifact writes content as name inside the job's artifacts directory,
// replacing any existing file, and returns the absolute path.
func (r *Registry) SaveArtifact(ctx context.Context, id, name, content string) (string, error) {
	if _, err := r.lookup(id); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: artifact name %q", domain.ErrInvalidInput, name)
	}
	path, err := r.store.Write(ctx, id+"/"+name, []byte(content))
	if err != nil {
		return "", err
	}
	r.logger.Debug().Str("job_id", id).Str("artifact", name).Msg("jobs: saved artifact")
	return path, nil
}

// SaveRunMetadata serialises the full job record to run.json and mirrors it
// through the configured RunRecorder.
func (r *Registry) SaveRunMetadata(ctx context.Context, id string) (string, error) {
	job, err := r.Get(id)
	if err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run metadata: %w", err)
	}
	path, err := r.SaveArtifact(ctx, id, ArtifactRunMetadata, string(payload))
	if err != nil {
		return "", err
	}
	if r.recorder != nil {
		if err := r.recorder.RecordRun(ctx, job, payload); err != nil {
			r.logger.Warn().Err(err).Str("job_id", id).Msg("jobs: mirror run metadata failed")
		}
	}
	return path, nil
}

// List returns snapshots of every live job, oldest first.
func (r *Registry) List() []*domain.Job {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.jobs))
	for _, e := range r.jobs {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]*domain.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.job.Clone())
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
