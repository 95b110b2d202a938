package vote

import "sync"

// keyedMutex provides one mutex per voter id so that the check-then-cast pair
// for a single voter is serialized while unrelated voters proceed in
// parallel.
//
// Entries are reference-counted and removed once the last holder unlocks, so
// the map does not grow with the electorate.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint64]*keyedLock)}
}

// Lock acquires the mutex for key, creating it on first use.
func (km *keyedMutex) Lock(key uint64) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the mutex for key and drops it once no goroutine holds or
// waits on it.
func (km *keyedMutex) Unlock(key uint64) {
	km.mu.Lock()
	l := km.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	l.mu.Unlock()
}
