package snevent

import "sync"

// Reply is a single-use completion handle.
// One value flows from the driver to the caller waiting on [Reply.C].
//
// The underlying channel is buffered,
// so completing a reply never blocks the driver,
// even if the caller has already stopped waiting.
type Reply[T any] struct {
	ch   chan T
	once sync.Once
}

// NewReply returns a Reply ready to be completed.
func NewReply[T any]() *Reply[T] {
	return &Reply[T]{ch: make(chan T, 1)}
}

// Complete delivers v to the waiting caller.
// Only the first call to Complete or Drop has any effect;
// Complete reports whether this call was the one that took effect.
func (r *Reply[T]) Complete(v T) bool {
	done := false
	r.once.Do(func() {
		r.ch <- v
		close(r.ch)
		done = true
	})
	return done
}

// Drop closes the reply without a value.
// The caller observes a closed channel and treats it as a failure.
// Drop reports whether this call was the one that took effect.
func (r *Reply[T]) Drop() bool {
	done := false
	r.once.Do(func() {
		close(r.ch)
		done = true
	})
	return done
}

// C returns the channel the caller waits on.
// It yields at most one value and is then closed.
func (r *Reply[T]) C() <-chan T {
	return r.ch
}
