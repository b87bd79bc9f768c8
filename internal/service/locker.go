package service

import (
	"context"
	"sync"
)

// Locker serializes compound operations on the same key.
// *redisclient.Client satisfies it across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LocalLocker is a process-local keyed mutex used when Redis is not configured
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an empty keyed mutex
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// Lock blocks until key is free or ctx ends
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lk, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, lk, true) })
	}, nil
}

func (l *LocalLocker) release(key string, lk *localLock, held bool) {
	if held {
		<-lk.ch
	}
	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// lockAll takes keys in order and returns a func releasing them in reverse
func lockAll(ctx context.Context, locker Locker, keys ...string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, err := locker.Lock(ctx, key)
		if err != nil {
			unlock()
			return nil, storeError("failed to acquire lock", err)
		}
		releases = append(releases, release)
	}
	return unlock, nil
}
