// Package eventloop implements the process-wide event dispatcher of §4.2: a
// single-goroutine cooperative scheduler multiplexing file-descriptor
// readiness and absolute-deadline timers across two priority classes.
// Grounded on the teacher's context.Context-driven server loop
// (internal/protocol/portmap/server.go's Server.Serve(ctx) and
// shutdownOnce pattern) adapted from a goroutine-per-listener model to a
// single cooperative dispatcher, since here handlers must run to
// completion on the dispatcher's own stack rather than their own
// goroutines.
package eventloop

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Priority is the scheduling class of a registered file descriptor.
type Priority int

const (
	Normal Priority = iota
	Prio
)

// FDCallback is invoked when a registered fd becomes readable.
type FDCallback func(fd int, arg any) error

// TimeoutCallback is invoked when a registered timer's deadline elapses.
type TimeoutCallback func(arg any) error

type fdEvent struct {
	fd    int
	cb    FDCallback
	arg   any
	label string
	prio  Priority
}

type timerEvent struct {
	deadline time.Time
	cb       TimeoutCallback
	arg      any
	label    string
}

// maxBlock bounds how long a single Wait call blocks, whether no timer is
// registered or the earliest timer is further away than this, so Run can
// still observe ctx cancellation promptly without a
// real poll(2)+eventfd wakeup mechanism (a pragmatic adaptation of the
// "wait forever" primitive to Go's context idiom).
const maxBlock = 250 * time.Millisecond

// Loop is the event dispatcher. It is an explicit value (NewLoop), never a
// package-level singleton (DESIGN NOTES §9), with Run/Stop lifecycle.
type Loop struct {
	mu     sync.Mutex
	fds    []*fdEvent
	timers []*timerEvent

	unreg bool // "unreg happened" guard, set while dispatching a pass

	childFlag  bool
	ignoreFlag bool
	reaper     func() error

	exitCounter int32 // atomic: 0 run, 1 exit-after-iteration, >1 N-1 further iterations

	waiter Waiter
}

// Option configures a Loop at construction.
type Option func(*Loop)

// WithWaiter overrides the readiness primitive; used by tests to avoid
// depending on real file descriptors.
func WithWaiter(w Waiter) Option {
	return func(l *Loop) { l.waiter = w }
}

// NewLoop returns an empty, idle Loop.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{waiter: selectWaiter{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegFD registers fd for readability callbacks at the given priority.
func (l *Loop) RegFD(fd int, cb FDCallback, arg any, label string, prio Priority) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fds = append(l.fds, &fdEvent{fd: fd, cb: cb, arg: arg, label: label, prio: prio})
}

// UnregFD removes the registration matching (fd, cb), ignoring arg.
// Idempotent on absence (returns false, "not found").
func (l *Loop) UnregFD(fd int, cb FDCallback) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.fds {
		if e.fd == fd && sameFunc(e.cb, cb) {
			l.fds = append(l.fds[:i], l.fds[i+1:]...)
			l.unreg = true
			return true
		}
	}
	return false
}

// RegTimeout registers a one-shot timer, inserted in deadline order.
func (l *Loop) RegTimeout(deadline time.Time, cb TimeoutCallback, arg any, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := &timerEvent{deadline: deadline, cb: cb, arg: arg, label: label}
	i := sort.Search(len(l.timers), func(i int) bool { return l.timers[i].deadline.After(deadline) })
	l.timers = append(l.timers, nil)
	copy(l.timers[i+1:], l.timers[i:])
	l.timers[i] = ev
}

// UnregTimeout removes the registration matching (cb, arg), ignoring
// deadline. Idempotent on absence.
func (l *Loop) UnregTimeout(cb TimeoutCallback, arg any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.timers {
		if sameFunc(e.cb, cb) && reflect.DeepEqual(e.arg, arg) {
			l.timers = append(l.timers[:i], l.timers[i+1:]...)
			l.unreg = true
			return true
		}
	}
	return false
}

// SetChildFlag marks that the next EINTR should reap children rather than
// error.
func (l *Loop) SetChildFlag() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.childFlag = true
}

// SetIgnoreFlag marks that the next EINTR should be silently cleared.
func (l *Loop) SetIgnoreFlag() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ignoreFlag = true
}

// SetReaper installs the process-management collaborator invoked to reap
// children on EINTR when the child flag is set.
func (l *Loop) SetReaper(fn func() error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reaper = fn
}

// Stop sets the exit counter to 1: the loop exits after completing its
// current iteration.
func (l *Loop) Stop() { atomic.StoreInt32(&l.exitCounter, 1) }

// StopAfter sets the exit counter to n (n >= 2): n-1 further iterations run
// before exit.
func (l *Loop) StopAfter(n int) { atomic.StoreInt32(&l.exitCounter, int32(n)) }

// Poll is the point-query primitive: does fd have pending input right now,
// without waiting.
func (l *Loop) Poll(fd int) (int, error) {
	ready, err := l.waiter.Wait([]int{fd}, 0)
	if err != nil {
		return 0, err
	}
	return len(ready), nil
}

// Run executes the dispatch loop until ctx is cancelled or the exit
// counter is 1 at the start of an iteration (set by Stop, or reached by
// StopAfter's per-iteration decrement). It returns nil on a clean exit.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if atomic.LoadInt32(&l.exitCounter) == 1 {
			return nil
		}

		l.mu.Lock()
		fds := append([]*fdEvent(nil), l.fds...)
		var timeout time.Duration
		if len(l.timers) > 0 {
			timeout = time.Until(l.timers[0].deadline)
			if timeout < 0 {
				timeout = 0
			}
			if timeout > maxBlock {
				timeout = maxBlock
			}
		} else {
			timeout = maxBlock
		}
		l.mu.Unlock()

		fdNums := make([]int, len(fds))
		for i, e := range fds {
			fdNums[i] = e.fd
		}

		ready, err := l.waiter.Wait(fdNums, timeout)
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				if atomic.LoadInt32(&l.exitCounter) == 1 {
					return nil
				}
				l.mu.Lock()
				switch {
				case l.childFlag:
					l.childFlag = false
					reaper := l.reaper
					l.mu.Unlock()
					if reaper != nil {
						if rerr := reaper(); rerr != nil {
							return rerr
						}
					}
				case l.ignoreFlag:
					l.ignoreFlag = false
					l.mu.Unlock()
				default:
					l.mu.Unlock()
					return err
				}
				l.decrementExit()
				continue
			}
			return err
		}

		if len(ready) > 0 {
			l.dispatchReady(fds, ready)
		} else {
			l.fireEarliestTimer()
		}

		l.decrementExit()
	}
}

func (l *Loop) decrementExit() {
	for {
		cur := atomic.LoadInt32(&l.exitCounter)
		if cur <= 1 {
			return
		}
		if atomic.CompareAndSwapInt32(&l.exitCounter, cur, cur-1) {
			return
		}
	}
}

func (l *Loop) dispatchReady(fds []*fdEvent, ready []int) {
	readySet := make(map[int]bool, len(ready))
	for _, fd := range ready {
		readySet[fd] = true
	}

	var prioEvents, normalEvents []*fdEvent
	for _, e := range fds {
		if !readySet[e.fd] {
			continue
		}
		if e.prio == Prio {
			prioEvents = append(prioEvents, e)
		} else {
			normalEvents = append(normalEvents, e)
		}
	}

	l.mu.Lock()
	l.unreg = false
	l.mu.Unlock()

	for _, e := range prioEvents {
		_ = e.cb(e.fd, e.arg)
		l.mu.Lock()
		aborted := l.unreg
		l.mu.Unlock()
		if aborted {
			return
		}
	}

	for _, e := range normalEvents {
		_ = e.cb(e.fd, e.arg)
		l.mu.Lock()
		aborted := l.unreg
		stillHavePrio := hasPrio(l.fds)
		l.mu.Unlock()
		if aborted || stillHavePrio {
			return
		}
	}
}

func hasPrio(fds []*fdEvent) bool {
	for _, e := range fds {
		if e.prio == Prio {
			return true
		}
	}
	return false
}

func (l *Loop) fireEarliestTimer() {
	l.mu.Lock()
	if len(l.timers) == 0 {
		l.mu.Unlock()
		return
	}
	ev := l.timers[0]
	if time.Now().Before(ev.deadline) {
		l.mu.Unlock()
		return
	}
	l.timers = l.timers[1:]
	l.mu.Unlock()

	_ = ev.cb(ev.arg)
}

func sameFunc(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
