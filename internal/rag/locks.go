package rag

import (
	"strings"
	"sync"
)

// docLocks hands out one RWMutex per document id. Entries are dropped once
// no goroutine holds or waits on them.
type docLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	sync.RWMutex
	refs int
}

func newDocLocks() *docLocks {
	return &docLocks{locks: make(map[string]*docLock)}
}

func (l *docLocks) acquire(id string) *docLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		lock = &docLock{}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *docLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock := l.locks[id]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

// Lock takes the exclusive lock for id and returns its unlock function.
// id is copied, so callers may pass strings backed by reused buffers.
func (l *docLocks) Lock(id string) func() {
	id = strings.Clone(id)
	lock := l.acquire(id)
	lock.Lock()
	return func() {
		lock.Unlock()
		l.release(id)
	}
}

// RLock takes the shared lock for id and returns its unlock function.
func (l *docLocks) RLock(id string) func() {
	id = strings.Clone(id)
	lock := l.acquire(id)
	lock.RLock()
	return func() {
		lock.RUnlock()
		l.release(id)
	}
}

func (l *docLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
