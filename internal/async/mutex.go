package async

// Mutex serializes fibers, not OS threads. All methods must be called from a
// fiber of the owning loop; because only one fiber runs at a time, the
// internal state needs no atomic operations, only careful ordering around
// the suspension point in Lock.
type Mutex struct {
	loop    *Loop
	holder  *Fiber
	waiters []*Fiber
}

// NewMutex creates a mutex bound to the loop.
func (l *Loop) NewMutex() *Mutex {
	return &Mutex{loop: l}
}

// Lock acquires the mutex, suspending the calling fiber behind earlier
// waiters if it is held. Waiters are granted in FIFO order.
func (m *Mutex) Lock() {
	f := m.loop.mustCurrent()
	if m.holder == nil {
		m.holder = f
		return
	}
	m.waiters = append(m.waiters, f)
	m.loop.park()
	// Unlock hands ownership over before the wakeup.
}

// TryLock acquires the mutex without suspending. It reports whether the
// lock was taken.
func (m *Mutex) TryLock() bool {
	f := m.loop.mustCurrent()
	if m.holder != nil {
		return false
	}
	m.holder = f
	return true
}

// Unlock releases the mutex. If fibers are waiting, ownership passes to the
// head waiter, which is woken; the releaser keeps running.
func (m *Mutex) Unlock() {
	if m.holder != m.loop.mustCurrent() {
		panic("async: unlock of mutex not held by calling fiber")
	}
	if len(m.waiters) == 0 {
		m.holder = nil
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.holder = next
	m.loop.Wakeup(next)
}

// Check reports whether the calling fiber holds the mutex. Intended for
// assertions.
func (m *Mutex) Check() bool {
	return m.holder != nil && m.holder == m.loop.Current()
}
