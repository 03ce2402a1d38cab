package implement

import "sync"

// keyedLocks serializes work per key so that two concurrent first-time
// enrollments for the same course cannot both provision it. Mutexes are
// created on demand and kept for the life of the process; the key space
// (guild x course) is small.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
