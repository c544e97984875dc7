package async

// RWLock is a fiber read-write lock with writer priority: a pending writer
// blocks newly arriving readers, so writers are not starved. Like Mutex it
// serializes fibers on a single loop and keeps its state without atomics.
type RWLock struct {
	loop    *Loop
	readers map[*Fiber]struct{}
	writer  *Fiber
	waiters []rwWaiter
}

type rwWaiter struct {
	fiber *Fiber
	write bool
}

// NewRWLock creates a read-write lock bound to the loop.
func (l *Loop) NewRWLock() *RWLock {
	return &RWLock{loop: l, readers: make(map[*Fiber]struct{})}
}

func (rw *RWLock) writerPending() bool {
	for _, w := range rw.waiters {
		if w.write {
			return true
		}
	}
	return false
}

// grant hands the lock to as many waiters as the current state allows:
// either the head writer once all readers drain, or the run of readers at
// the head of the queue.
func (rw *RWLock) grant() {
	if rw.writer != nil || len(rw.waiters) == 0 {
		return
	}
	if rw.waiters[0].write {
		if len(rw.readers) > 0 {
			return
		}
		head := rw.waiters[0]
		rw.waiters = rw.waiters[1:]
		rw.writer = head.fiber
		rw.loop.Wakeup(head.fiber)
		return
	}
	for len(rw.waiters) > 0 && !rw.waiters[0].write {
		head := rw.waiters[0]
		rw.waiters = rw.waiters[1:]
		rw.readers[head.fiber] = struct{}{}
		rw.loop.Wakeup(head.fiber)
	}
}

// RLock acquires the lock for reading. The calling fiber suspends while a
// writer holds the lock or is queued ahead.
func (rw *RWLock) RLock() {
	f := rw.loop.mustCurrent()
	if rw.writer == nil && !rw.writerPending() {
		rw.readers[f] = struct{}{}
		return
	}
	rw.waiters = append(rw.waiters, rwWaiter{fiber: f})
	rw.loop.park()
}

// TryRLock acquires the read lock without suspending.
func (rw *RWLock) TryRLock() bool {
	f := rw.loop.mustCurrent()
	if rw.writer != nil || rw.writerPending() {
		return false
	}
	rw.readers[f] = struct{}{}
	return true
}

// RUnlock releases a read lock. The last reader out hands the lock to a
// queued writer, if any.
func (rw *RWLock) RUnlock() {
	f := rw.loop.mustCurrent()
	if _, ok := rw.readers[f]; !ok {
		panic("async: read-unlock by fiber that holds no read lock")
	}
	delete(rw.readers, f)
	rw.grant()
}

// Lock acquires the lock for writing, suspending until every reader and any
// earlier waiter has drained.
func (rw *RWLock) Lock() {
	f := rw.loop.mustCurrent()
	if rw.writer == nil && len(rw.readers) == 0 && len(rw.waiters) == 0 {
		rw.writer = f
		return
	}
	rw.waiters = append(rw.waiters, rwWaiter{fiber: f, write: true})
	rw.loop.park()
}

// TryLock acquires the write lock without suspending.
func (rw *RWLock) TryLock() bool {
	f := rw.loop.mustCurrent()
	if rw.writer != nil || len(rw.readers) > 0 || len(rw.waiters) > 0 {
		return false
	}
	rw.writer = f
	return true
}

// Unlock releases the write lock and grants queued waiters.
func (rw *RWLock) Unlock() {
	if rw.writer != rw.loop.mustCurrent() {
		panic("async: write-unlock of lock not held by calling fiber")
	}
	rw.writer = nil
	rw.grant()
}

// RCheck reports whether the calling fiber holds a read lock.
func (rw *RWLock) RCheck() bool {
	_, ok := rw.readers[rw.loop.Current()]
	return ok
}

// WCheck reports whether the calling fiber holds the write lock.
func (rw *RWLock) WCheck() bool {
	return rw.writer != nil && rw.writer == rw.loop.Current()
}

// Upgrade converts the calling fiber's read lock into the write lock. The
// sole reader is granted immediately; otherwise the read lock is released,
// the fiber queues as a writer, and it suspends until granted.
func (rw *RWLock) Upgrade() {
	f := rw.loop.mustCurrent()
	if _, ok := rw.readers[f]; !ok {
		panic("async: upgrade by fiber that holds no read lock")
	}
	if len(rw.readers) == 1 {
		delete(rw.readers, f)
		rw.writer = f
		return
	}
	delete(rw.readers, f)
	rw.waiters = append(rw.waiters, rwWaiter{fiber: f, write: true})
	rw.grant()
	rw.loop.park()
}

// Downgrade converts the write lock into a read lock without releasing
// exclusion, then wakes readers that queued behind the writer.
func (rw *RWLock) Downgrade() {
	f := rw.loop.mustCurrent()
	if rw.writer != f {
		panic("async: downgrade of lock not held by calling fiber")
	}
	rw.writer = nil
	rw.readers[f] = struct{}{}
	rw.grant()
}
