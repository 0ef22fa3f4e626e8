package vcs

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/thomas-vilte/shipsheet/internal/errors"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

// Source lists merged change-requests of one platform.
type Source interface {
	// Platform is the lower-case platform name, e.g. "github".
	Platform() string
	// ListMerged returns the change-requests of repo merged inside window.
	ListMerged(ctx context.Context, repo string, window Window) ([]models.ChangeRequest, error)
	// ListMergedBetween returns the merged change-requests that brought the
	// commits of head missing from base.
	ListMergedBetween(ctx context.Context, repo, base, head string) ([]models.ChangeRequest, error)
}

// Window bounds merge times. A zero bound is open.
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls in [Since, Until).
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}

// Registry maps platform names to sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[strings.ToLower(src.Platform())] = src
}

func (r *Registry) Get(platform string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[strings.ToLower(platform)]
	if !ok {
		return nil, apperrors.ErrVCSNotSupported.WithContext("platform", platform)
	}
	return src, nil
}
