package persist

import (
	"context"
	"sync"

	"github.com/jrsteele09/bizadmin/session"
)

var _ session.Persister = (*MemoryPersister)(nil)

// MemoryPersister keeps the session for the life of the process.
type MemoryPersister struct {
	lock  sync.RWMutex
	saved *session.Session
	Saves int
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (p *MemoryPersister) Load(_ context.Context) (*session.Session, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.saved == nil {
		return nil, nil
	}
	s := *p.saved
	return &s, nil
}

func (p *MemoryPersister) Save(_ context.Context, s *session.Session) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	saved := *s
	p.saved = &saved
	p.Saves++
	return nil
}

func (p *MemoryPersister) Clear(_ context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.saved = nil
	return nil
}
