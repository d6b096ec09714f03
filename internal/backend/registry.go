// Package backend manages the ordered chain of completion backends.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Manjussha/insightlab/internal/proxy"
)

// ErrUnavailable is returned when every registered backend failed.
var ErrUnavailable = errors.New("no completion backend available")

// Backend defines the interface every completion backend must implement.
type Backend interface {
	// Name returns a human-readable identifier used in logs.
	Name() string
	// Complete returns the raw upstream completion body for req.
	Complete(ctx context.Context, req proxy.Request) ([]byte, error)
	// HealthCheck runs a quick check that the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// Registry holds backends in the order they are tried.
type Registry struct {
	backends []Backend
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a backend to the chain.
func (r *Registry) Register(b Backend) {
	r.backends = append(r.backends, b)
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (Backend, bool) {
	for _, b := range r.backends {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// List returns the registered backend names in chain order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.backends))
	for _, b := range r.backends {
		names = append(names, b.Name())
	}
	return names
}

// HealthCheck runs the named backend's health check.
func (r *Registry) HealthCheck(ctx context.Context, name string) error {
	b, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("backend.Registry.HealthCheck: unknown backend %q", name)
	}
	return b.HealthCheck(ctx)
}

// Complete tries each backend in order and returns the first success.
// Once all have failed it returns ErrUnavailable wrapping every failure.
func (r *Registry) Complete(ctx context.Context, req proxy.Request) ([]byte, error) {
	if len(r.backends) == 0 {
		return nil, fmt.Errorf("backend.Registry.Complete: %w: none registered", ErrUnavailable)
	}
	errs := make([]error, 0, len(r.backends))
	for _, b := range r.backends {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		raw, err := b.Complete(ctx, req)
		if err == nil {
			return raw, nil
		}
		log.Printf("backend.Registry.Complete: %s: %v", b.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return nil, fmt.Errorf("backend.Registry.Complete: %w: %w", ErrUnavailable, errors.Join(errs...))
}
