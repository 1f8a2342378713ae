package alerts

import (
	"context"
	"sync"

	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// SystemNotifier raises an out-of-app notification.
type SystemNotifier interface {
	Show(ctx context.Context, title, body string) error
}

// Permission is the platform notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// PermissionFunc asks the platform for notification permission.
type PermissionFunc func(ctx context.Context) (Permission, error)

// Gate only forwards notifications once permission has been granted. The
// prompt is shown at most once: a denied or granted answer is final.
type Gate struct {
	inner SystemNotifier
	ask   PermissionFunc

	mu    sync.Mutex
	state Permission
}

// NewGate wraps inner. ask may be nil, in which case Request is a no-op.
func NewGate(inner SystemNotifier, ask PermissionFunc) *Gate {
	return &Gate{inner: inner, ask: ask, state: PermissionDefault}
}

// Request asks for permission if it has not been decided yet.
func (g *Gate) Request(ctx context.Context) (Permission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != PermissionDefault || g.ask == nil {
		return g.state, nil
	}
	p, err := g.ask(ctx)
	if err != nil {
		return g.state, err
	}
	if p == PermissionGranted || p == PermissionDenied {
		g.state = p
	}
	return g.state, nil
}

// Permission returns the current state.
func (g *Gate) Permission() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Show implements SystemNotifier. It is a no-op until permission is granted.
func (g *Gate) Show(ctx context.Context, title, body string) error {
	if g.Permission() != PermissionGranted || g.inner == nil {
		return nil
	}
	return g.inner.Show(ctx, title, body)
}

// Grant returns a PermissionFunc with a fixed answer.
func Grant(granted bool) PermissionFunc {
	return func(context.Context) (Permission, error) {
		if granted {
			return PermissionGranted, nil
		}
		return PermissionDenied, nil
	}
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{logger: logger}
}

// Show implements SystemNotifier.
func (n *LogNotifier) Show(_ context.Context, title, body string) error {
	n.logger.Warn("alerts: system notification", "title", title, "body", body)
	return nil
}

// MultiNotifier fans out to several notifiers.
type MultiNotifier []SystemNotifier

// Show implements SystemNotifier, returning the first error.
func (m MultiNotifier) Show(ctx context.Context, title, body string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Show(ctx, title, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
