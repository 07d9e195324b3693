package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// SessionHookCoordinator fans session events out to registered hooks in
// registration order.
type SessionHookCoordinator struct {
	mu    sync.RWMutex
	hooks []SessionHook
}

func NewSessionHookCoordinator(hooks ...SessionHook) *SessionHookCoordinator {
	coordinator := &SessionHookCoordinator{hooks: make([]SessionHook, 0, len(hooks))}
	for _, hook := range hooks {
		coordinator.Register(hook)
	}
	return coordinator
}

func (c *SessionHookCoordinator) Register(hook SessionHook) {
	if c == nil || hook == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Notify runs every hook even when one fails. Failures are aggregated and
// never roll back the session transition that produced the event.
func (c *SessionHookCoordinator) Notify(ctx context.Context, event SessionEvent) error {
	var hookErr error
	for _, hook := range c.snapshot() {
		if err := notifyHook(ctx, hook, event); err != nil {
			hookErr = errors.Join(hookErr, fmt.Errorf("session hook %q failed: %w", hookName(hook), err))
		}
	}
	return hookErr
}

func (c *SessionHookCoordinator) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hooks)
}

func (c *SessionHookCoordinator) snapshot() []SessionHook {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SessionHook, len(c.hooks))
	copy(out, c.hooks)
	return out
}

func notifyHook(ctx context.Context, hook SessionHook, event SessionEvent) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return hook.OnSessionEvent(ctx, event)
}

func hookName(hook SessionHook) string {
	if hook == nil {
		return "unknown"
	}
	name := strings.TrimSpace(hook.Name())
	if name == "" {
		return "unnamed"
	}
	return name
}

type sessionHookFunc struct {
	name string
	fn   func(ctx context.Context, event SessionEvent) error
}

// SessionHookFunc adapts a plain function. Only events of the listed types
// are delivered; no types means every event.
func SessionHookFunc(name string, fn func(ctx context.Context, event SessionEvent) error, types ...SessionEventType) SessionHook {
	if fn == nil {
		return nil
	}
	if len(types) == 0 {
		return sessionHookFunc{name: name, fn: fn}
	}
	allowed := make(map[SessionEventType]struct{}, len(types))
	for _, eventType := range types {
		allowed[eventType] = struct{}{}
	}
	return sessionHookFunc{name: name, fn: func(ctx context.Context, event SessionEvent) error {
		if _, ok := allowed[event.Type]; !ok {
			return nil
		}
		return fn(ctx, event)
	}}
}

func (h sessionHookFunc) Name() string {
	return h.name
}

func (h sessionHookFunc) OnSessionEvent(ctx context.Context, event SessionEvent) error {
	return h.fn(ctx, event)
}
