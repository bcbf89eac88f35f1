package sntest

import (
	"testing"
	"time"
)

// soon is the timeout for the *Soon helpers.
const soon = 250 * time.Millisecond

// ReceiveSoon receives and returns a value from ch,
// failing the test if no value arrives within a short timeout.
// A closed channel counts as receiving the zero value.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(soon)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("timed out receiving value")
	}

	panic("unreachable")
}

// ReceiveOrFail is like [ReceiveSoon], but it also reports
// whether the channel was open at the time of the receive.
func ReceiveOrFail[T any](t testing.TB, ch <-chan T) (T, bool) {
	t.Helper()

	timer := time.NewTimer(soon)
	defer timer.Stop()

	select {
	case v, ok := <-ch:
		return v, ok
	case <-timer.C:
		t.Fatalf("timed out receiving value")
	}

	panic("unreachable")
}

// IsSending asserts that ch is immediately readable,
// without waiting.
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		// Okay.
	default:
		t.Fatalf("expected channel to be sending")
	}
}

// NotSending asserts that ch is not immediately readable.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("expected channel not to be sending; received %v", v)
	default:
		// Okay.
	}
}

// NotSendingFor asserts that ch produces nothing for the duration d.
func NotSendingFor[T any](t testing.TB, ch <-chan T, d time.Duration) {
	t.Helper()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case v := <-ch:
		t.Fatalf("expected channel not to be sending; received %v", v)
	case <-timer.C:
		// Okay.
	}
}
