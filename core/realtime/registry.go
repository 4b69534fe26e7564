package realtime

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry tracks the live connections, indexed by connection and by user.
type Registry struct {
	conns *xsync.Map[string, *Connection]
	users *xsync.Map[string, []*Connection]
}

func NewRegistry() *Registry {
	return &Registry{
		conns: xsync.NewMap[string, *Connection](),
		users: xsync.NewMap[string, []*Connection](),
	}
}

func (r *Registry) Add(c *Connection) {
	r.conns.Store(c.ID(), c)
	r.users.Compute(c.UserID(), func(old []*Connection, _ bool) ([]*Connection, xsync.ComputeOp) {
		next := make([]*Connection, 0, len(old)+1)
		next = append(next, old...)
		return append(next, c), xsync.UpdateOp
	})
}

// Remove reports whether c was registered. Removing twice is a no-op.
func (r *Registry) Remove(c *Connection) bool {
	if _, loaded := r.conns.LoadAndDelete(c.ID()); !loaded {
		return false
	}
	r.users.Compute(c.UserID(), func(old []*Connection, loaded bool) ([]*Connection, xsync.ComputeOp) {
		if !loaded {
			return nil, xsync.CancelOp
		}
		next := make([]*Connection, 0, len(old))
		for _, o := range old {
			if o != c {
				next = append(next, o)
			}
		}
		if len(next) == 0 {
			return nil, xsync.DeleteOp
		}
		return next, xsync.UpdateOp
	})
	return true
}

func (r *Registry) Contains(c *Connection) bool {
	_, ok := r.conns.Load(c.ID())
	return ok
}

func (r *Registry) Len() int {
	return r.conns.Size()
}

// Snapshot returns the connections registered at call time.
func (r *Registry) Snapshot() []*Connection {
	out := make([]*Connection, 0, r.conns.Size())
	r.conns.Range(func(_ string, c *Connection) bool {
		out = append(out, c)
		return true
	})
	return out
}

// ForUser returns the user's connections. The slice must not be modified.
func (r *Registry) ForUser(userID string) []*Connection {
	conns, _ := r.users.Load(userID)
	return conns
}
