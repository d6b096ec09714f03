package backend

import (
	"context"

	"github.com/Manjussha/insightlab/internal/proxy"
)

// Forwarder is satisfied by *proxy.Forwarder.
type Forwarder interface {
	Ready() error
	Forward(ctx context.Context, req proxy.Request) (*proxy.Envelope, error)
}

// LocalBackend calls the in-process proxy without an HTTP hop.
type LocalBackend struct {
	fwd Forwarder
}

// NewLocalBackend wraps fwd.
func NewLocalBackend(fwd Forwarder) *LocalBackend {
	return &LocalBackend{fwd: fwd}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Complete(ctx context.Context, req proxy.Request) ([]byte, error) {
	env, err := b.fwd.Forward(ctx, req)
	if err != nil {
		return nil, err
	}
	return env.Raw, nil
}

func (b *LocalBackend) HealthCheck(context.Context) error {
	return b.fwd.Ready()
}
