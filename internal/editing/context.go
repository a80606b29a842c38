// Package editing publishes the current batch-edit scope for readers outside the loop.
package editing

import (
	"log/slog"
	"sync"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// Context holds the current editing target and the token of the session that set it.
type Context struct {
	mu     sync.RWMutex
	target core.EditingTarget
	token  string
}

// NewContext creates a Context with no session.
func NewContext() *Context {
	return &Context{}
}

// Target returns the current editing target.
func (c *Context) Target() core.EditingTarget {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// Token returns the current session token.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Set replaces the target and token together.
func (c *Context) Set(target core.EditingTarget, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = target
	c.token = token
}

// IsCurrent reports whether token belongs to the live session.
func (c *Context) IsCurrent(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token == token
}

// LogAttrs returns the scope as slog attributes; it is used as a logging.ContextProvider.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.target.IsZero() {
		return nil
	}
	return []slog.Attr{
		slog.String("scene", c.target.Scene),
		slog.String("trackId", c.target.ObjTrackID),
		slog.String("session", c.token),
	}
}
