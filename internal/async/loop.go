// Package async provides the cooperative concurrency substrate: a
// single-threaded fiber scheduler, a bounded worker pool for CPU-bound and
// blocking work, an async I/O facade, and fiber-aware synchronization
// primitives.
//
// Exactly one fiber runs at a time. The loop hands control to a fiber and
// waits for it to park, yield, or exit before dispatching the next, so
// process-wide state touched only from fibers needs no locking. Completions
// arriving from worker goroutines re-enter the loop through a coalesced
// wakeup path.
package async

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Fiber states. Transitions between Running and WakePending are raced by
// worker goroutines delivering completions, hence the atomic.
const (
	stateParked int32 = iota
	stateReady
	stateRunning
	stateWakePending
)

type yieldKind int

const (
	opPark yieldKind = iota
	opYield
	opExit
)

type yieldOp struct {
	fiber *Fiber
	kind  yieldKind
}

// Fiber is a cooperative thread. It is backed by a goroutine that only runs
// while it holds the loop's dispatch baton.
type Fiber struct {
	loop   *Loop
	name   string
	resume chan struct{}
	state  atomic.Int32
}

// Name returns the name the fiber was spawned with.
func (f *Fiber) Name() string { return f.name }

// Loop is the process-wide reactor. Create one with New, spawn fibers onto
// it, and drive it with Run from a single goroutine.
type Loop struct {
	workers *workerPool

	runq    []*Fiber
	yieldc  chan yieldOp
	current *Fiber
	live    atomic.Int64

	// Bridge for wakeups and spawns originating off the loop.
	extmu   sync.Mutex
	extq    []*Fiber
	wakesig chan struct{}

	quitc    chan struct{}
	quitonce sync.Once
}

// New creates a loop whose worker pool admits at most workers concurrent
// blocking operations. A non-positive count falls back to the default of 4.
func New(workers int) *Loop {
	l := &Loop{
		yieldc:  make(chan yieldOp),
		wakesig: make(chan struct{}, 1),
		quitc:   make(chan struct{}),
	}
	l.workers = newWorkerPool(workers)
	return l
}

// Spawn schedules fn to run on a new fiber. The fiber does not run
// synchronously; it is enqueued and dispatched by the loop. Safe to call
// from fibers and from foreign goroutines alike.
func (l *Loop) Spawn(name string, fn func()) *Fiber {
	f := &Fiber{loop: l, name: name, resume: make(chan struct{})}
	f.state.Store(stateReady)
	l.live.Add(1)
	go func() {
		<-f.resume
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("fiber", name).Msg("fiber terminated by panic")
			}
			l.yieldc <- yieldOp{fiber: f, kind: opExit}
		}()
		fn()
	}()
	l.enqueueExternal(f)
	return f
}

// Submit spawns a fiber running fn and blocks the calling goroutine until it
// returns. It is the bridge for code running outside the loop (for example
// HTTP handler goroutines) into the cooperative world.
func (l *Loop) Submit(name string, fn func() error) error {
	done := make(chan error, 1)
	l.Spawn(name, func() { done <- fn() })
	return <-done
}

// Current returns the fiber the loop is dispatching, or nil when no fiber
// is running. It does not identify the calling goroutine: called from a
// goroutine that is not a fiber of this loop while a fiber runs, it returns
// that fiber.
func (l *Loop) Current() *Fiber {
	return l.current
}

// mustCurrent guards suspension points against misuse from foreign
// goroutines, where parking would stall forever.
func (l *Loop) mustCurrent() *Fiber {
	f := l.current
	if f == nil {
		panic("async: suspension point reached outside a fiber")
	}
	return f
}

// Wakeup enqueues f for later resumption. It does not switch immediately and
// is idempotent per pending resumption: waking an already-ready fiber, or
// waking a running fiber twice before it parks, coalesces into one
// resumption. Safe to call from worker goroutines.
func (l *Loop) Wakeup(f *Fiber) {
	for {
		switch s := f.state.Load(); s {
		case stateParked:
			if f.state.CompareAndSwap(stateParked, stateReady) {
				l.enqueueExternal(f)
				return
			}
		case stateRunning:
			if f.state.CompareAndSwap(stateRunning, stateWakePending) {
				return
			}
		default: // ready or wake already pending
			return
		}
	}
}

// Yield parks the calling fiber at the back of the run queue, giving every
// other ready fiber a turn.
func (l *Loop) Yield() {
	f := l.mustCurrent()
	l.yieldc <- yieldOp{fiber: f, kind: opYield}
	<-f.resume
}

// YieldTo switches to another fiber. A parked target runs next; a target
// that is already ready keeps its place in the queue. The calling fiber is
// not requeued and stays parked until woken.
func (l *Loop) YieldTo(target *Fiber) {
	l.wakeupFront(target)
	l.park()
}

// Park suspends the calling fiber until a Wakeup delivers it back to the
// loop. It is the raw suspension point underlying the synchronization
// primitives and wait queues; callers must have arranged a wakeup first.
func (l *Loop) Park() {
	l.park()
}

// park suspends the calling fiber until a Wakeup delivers it back to the
// loop. A wakeup that arrived while the fiber was still running is consumed
// immediately without switching.
func (l *Loop) park() {
	f := l.mustCurrent()
	if f.state.CompareAndSwap(stateRunning, stateParked) {
		l.yieldc <- yieldOp{fiber: f, kind: opPark}
		<-f.resume
		return
	}
	// Completion beat us to the suspension point.
	f.state.Store(stateRunning)
}

// wakeupFront is Wakeup with front-of-queue placement, used by YieldTo.
func (l *Loop) wakeupFront(f *Fiber) {
	for {
		switch s := f.state.Load(); s {
		case stateParked:
			if f.state.CompareAndSwap(stateParked, stateReady) {
				l.runq = append([]*Fiber{f}, l.runq...)
				return
			}
		case stateRunning:
			if f.state.CompareAndSwap(stateRunning, stateWakePending) {
				return
			}
		default:
			return
		}
	}
}

func (l *Loop) enqueueExternal(f *Fiber) {
	l.extmu.Lock()
	l.extq = append(l.extq, f)
	l.extmu.Unlock()
	select {
	case l.wakesig <- struct{}{}:
	default:
	}
}

func (l *Loop) drainExternal() {
	l.extmu.Lock()
	if len(l.extq) > 0 {
		l.runq = append(l.runq, l.extq...)
		l.extq = nil
	}
	l.extmu.Unlock()
}

func (l *Loop) dispatch(f *Fiber) {
	f.state.Store(stateRunning)
	l.current = f
	f.resume <- struct{}{}
	op := <-l.yieldc
	l.current = nil
	switch op.kind {
	case opPark:
		// The fiber moved itself to parked (or a late wakeup already
		// requeued it through the external path). Nothing to do.
	case opYield:
		// Fibers spawned or woken while the yielder ran go ahead of it.
		l.drainExternal()
		op.fiber.state.Store(stateReady)
		l.runq = append(l.runq, op.fiber)
	case opExit:
		l.live.Add(-1)
	}
}

// Run drives the loop until every fiber has exited or Stop is called. It
// must be called from exactly one goroutine; that goroutine becomes the
// scheduler.
func (l *Loop) Run() {
	for {
		l.drainExternal()
		for len(l.runq) > 0 {
			f := l.runq[0]
			l.runq = l.runq[1:]
			l.dispatch(f)
			l.drainExternal()
		}
		if l.live.Load() == 0 {
			return
		}
		select {
		case <-l.wakesig:
		case <-l.quitc:
			return
		}
	}
}

// Stop makes Run return the next time its run queue is empty; fibers that
// are already ready are still dispatched first. Parked fibers are
// abandoned; this is intended for process shutdown only.
func (l *Loop) Stop() {
	l.quitonce.Do(func() { close(l.quitc) })
}
