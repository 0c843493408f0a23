// loader.go --  This file is part of goTDSE project.
// Mirzaeva Irina, 2023
//
//	goTDSE is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

// Package stream prefetches items from a generator into a bounded FIFO queue
// filled by one background goroutine.
package stream

import (
	"errors"
	"sync"
)

var (
	// ErrNoMoreData is returned by a generator when it is exhausted.
	ErrNoMoreData = errors.New("stream: no more data")
	// ErrOutOfRange is returned by PopFront once the generator is exhausted
	// and the queue is empty.
	ErrOutOfRange = errors.New("stream: pop from exhausted loader")
	ErrClosed     = errors.New("stream: loader closed")
)

// Loader keeps up to capacity items produced by gen ready for the consumer.
// It assumes one consumer.
//
// Exhaustion of the generator lowers the target size by one each time the
// producer would have called it again, so the queue drains instead of
// blocking forever. Any other generator error stops the producer; PopFront
// returns it once the queued items are consumed.
type Loader[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue     []T
	target    int
	exhausted bool
	err       error
	closed    bool

	gen  func() (T, error)
	done chan struct{}
}

// NewLoader starts the producer and blocks until the queue holds capacity
// items or the generator has run dry.
func NewLoader[T any](capacity int, gen func() (T, error)) *Loader[T] {
	l := &Loader[T]{
		queue:  make([]T, 0, max(capacity, 1)),
		target: max(capacity, 1),
		gen:    gen,
		done:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	go l.produce()

	l.mu.Lock()
	for len(l.queue) < l.target && l.err == nil {
		l.cond.Wait()
	}
	l.mu.Unlock()
	return l
}

func (l *Loader[T]) produce() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for !l.closed && l.err == nil && len(l.queue) >= l.target {
			l.cond.Wait()
		}
		if l.closed || l.err != nil || l.target == 0 {
			l.mu.Unlock()
			return
		}
		exhausted := l.exhausted
		l.mu.Unlock()

		var (
			v   T
			err = ErrNoMoreData
		)
		if !exhausted {
			v, err = l.gen()
		}

		l.mu.Lock()
		switch {
		case errors.Is(err, ErrNoMoreData):
			l.exhausted = true
			l.target--
		case err != nil:
			l.err = err
		default:
			l.queue = append(l.queue, v)
		}
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// PopFront removes and returns the oldest item, blocking until one is
// available.
func (l *Loader[T]) PopFront() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) == 0 && l.target > 0 && l.err == nil && !l.closed {
		l.cond.Wait()
	}

	var zero T
	if len(l.queue) == 0 {
		switch {
		case l.err != nil:
			return zero, l.err
		case l.closed:
			return zero, ErrClosed
		}
		return zero, ErrOutOfRange
	}
	v := l.queue[0]
	l.queue[0] = zero
	l.queue = l.queue[1:]
	l.cond.Broadcast()
	return v, nil
}

// Len returns the number of queued items.
func (l *Loader[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Close stops the producer and waits for it to exit. Items already queued
// can still be popped.
func (l *Loader[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
	<-l.done
}
