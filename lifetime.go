package rxgo

import "sync"

// lifetime guards a native region owned by a Cache or Dataset.
//
// Machines pin the region they are bound to. A pinned region cannot be
// released, and nothing can be pinned after release.
type lifetime struct {
	mu     sync.Mutex
	pins   int
	closed bool
}

func (l *lifetime) pin() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.pins++
	return nil
}

func (l *lifetime) unpin() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pins > 0 {
		l.pins--
	}
}

// release runs fn exactly once, provided nothing is pinned.
// Releasing an already released region is a no-op.
func (l *lifetime) release(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if l.pins > 0 {
		return ErrInUse
	}
	l.closed = true
	fn()
	return nil
}

// guard runs fn while holding the region open. It returns ErrClosed if the
// region is already released.
func (l *lifetime) guard(fn func() error) error {
	if err := l.pin(); err != nil {
		return err
	}
	defer l.unpin()
	return fn()
}

func (l *lifetime) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *lifetime) pinned() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pins
}
