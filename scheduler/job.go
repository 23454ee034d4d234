package scheduler

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Job is one upload of one file.
type Job struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Base        string    `json:"base"`
	Dir         string    `json:"dir"`
	Ext         string    `json:"ext"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewJob builds a Job for path with a fresh id.
func NewJob(path string) Job {
	path = filepath.Clean(path)
	return Job{
		ID:          uuid.NewString(),
		Path:        path,
		Base:        filepath.Base(path),
		Dir:         filepath.Dir(path),
		Ext:         filepath.Ext(path),
		SubmittedAt: time.Now(),
	}
}

// Handler executes a job.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job Job) error {
	return f(ctx, job)
}
