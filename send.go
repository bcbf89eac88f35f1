package swapnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gordian-engine/swapnet/internal/sntrace"
	"github.com/gordian-engine/swapnet/snevent"
	"github.com/gordian-engine/swapnet/snmetrics"
	"github.com/gordian-engine/swapnet/snproto"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/multierr"
)

// SendMessageWithRetry delivers msg to p through the driver,
// making up to cfg.MaxRetries attempts within cfg.OverallTimeout.
//
// Pass [snevent.NoConnection] as conn to let the driver choose a connection.
//
// The outcome is one of:
//   - nil, on the first successful attempt.
//   - An error wrapping [ErrProtocolNotSupported], as soon as any attempt reports it.
//     No further attempts are made.
//   - An error wrapping [ErrQueueFull] or [ErrNetworkStopped],
//     as soon as any attempt cannot be queued.
//   - A [*SendFailedError] holding every attempt's error, if all attempts failed.
//   - A [*SendDeadlineError], if cfg.OverallTimeout elapsed first.
//
// Transient failures are separated by cfg.Backoff,
// but a backoff never extends past the overall deadline.
func (n *Network) SendMessageWithRetry(
	ctx context.Context,
	p peer.ID,
	conn snevent.ConnectionID,
	msg snproto.Message,
	cfg RetryConfig,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	ctx, span := n.tracer.Start(
		ctx, "swapnet.SendMessageWithRetry",
		sntrace.WithAttributes(
			sntrace.PeerAttr(p),
			sntrace.SizeAttr(msg.EncodedLen()),
		),
	)
	defer span.End()

	n.log.Debug("Sending message", "peer", p, "conn", conn, "size", msg.EncodedLen())

	err := n.sendWithRetry(ctx, span, p, conn, msg, cfg)
	n.metrics.ObserveSend(sendOutcome(err))
	if err != nil {
		sntrace.SpanError(span, err)
	}
	return err
}

func (n *Network) sendWithRetry(
	ctx context.Context,
	span sntrace.Span,
	p peer.ID,
	conn snevent.ConnectionID,
	msg snproto.Message,
	cfg RetryConfig,
) error {
	deadline := n.clock.Now().Add(cfg.OverallTimeout)
	ctx, cancel := n.clock.WithDeadline(ctx, deadline)
	defer cancel()

	var errs error
	attempts := 0

	for i := range cfg.MaxRetries {
		// Check the deadline explicitly rather than trusting ctx to have fired,
		// so that no attempt starts after the deadline.
		if !n.clock.Now().Before(deadline) {
			return &SendDeadlineError{Peer: p, Timeout: cfg.OverallTimeout, Attempts: attempts, Err: errs}
		}

		reqID := uuid.New()
		n.log.Debug("Send attempt", "peer", p, "req_id", reqID, "attempt", i+1, "max", cfg.MaxRetries)

		reply := snevent.NewReply[error]()
		if err := n.enqueue(snevent.SendMessageEvent{
			ReqID:   reqID,
			Peer:    p,
			Message: msg,
			Conn:    conn,
			Reply:   reply,
		}); err != nil {
			// Not counted as an attempt; the driver never saw it.
			return fmt.Errorf("failed to queue message to %s: %w", p, err)
		}
		attempts++
		n.metrics.ObserveSendAttempt()
		span.AddEvent("attempt", sntrace.WithAttributes(sntrace.AttemptAttr(i)))

		var attemptErr error
		select {
		case <-ctx.Done():
			// The request stays with the driver,
			// but nothing observes its reply anymore.
			return n.interruptedSendError(ctx, p, cfg, attempts, errs)

		case res, ok := <-reply.C():
			switch {
			case !ok:
				attemptErr = snevent.ErrReplyDropped
			case res == nil:
				n.log.Debug("Message sent", "peer", p, "req_id", reqID, "attempt", i+1)
				return nil
			case errors.Is(res, snevent.ErrProtocolNotSupported):
				return fmt.Errorf("failed to send message to %s: %w", p, res)
			default:
				attemptErr = res
			}
		}

		n.log.Debug(
			"Send attempt failed",
			"peer", p, "req_id", reqID,
			"attempt", i+1, "max", cfg.MaxRetries,
			"err", attemptErr,
		)
		errs = multierr.Append(errs, attemptErr)

		if i == cfg.MaxRetries-1 {
			break
		}

		if err := n.backoff(ctx, deadline, cfg.Backoff); err != nil {
			return n.interruptedSendError(ctx, p, cfg, attempts, errs)
		}
	}

	return &SendFailedError{Peer: p, Attempts: attempts, Err: errs}
}

// backoff sleeps for d, or until the deadline if that is sooner.
// It returns a non-nil error only if ctx finishes first.
func (n *Network) backoff(ctx context.Context, deadline time.Time, d time.Duration) error {
	if remaining := deadline.Sub(n.clock.Now()); remaining < d {
		d = max(remaining, 0)
	}

	timer := n.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// interruptedSendError builds the error for a send
// whose context finished during a wait.
func (n *Network) interruptedSendError(
	ctx context.Context, p peer.ID, cfg RetryConfig, attempts int, errs error,
) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &SendDeadlineError{Peer: p, Timeout: cfg.OverallTimeout, Attempts: attempts, Err: errs}
	}

	return fmt.Errorf(
		"context canceled while sending message to %s: %w",
		p, multierr.Append(context.Cause(ctx), errs),
	)
}

func sendOutcome(err error) string {
	if err == nil {
		return snmetrics.OutcomeOK
	}

	var failed *SendFailedError
	var deadline *SendDeadlineError
	switch {
	case errors.As(err, &deadline):
		return snmetrics.OutcomeDeadline
	case errors.As(err, &failed):
		return snmetrics.OutcomeExhausted
	case errors.Is(err, ErrProtocolNotSupported):
		return snmetrics.OutcomeFatal
	case errors.Is(err, ErrQueueFull):
		return snmetrics.OutcomeQueueFull
	case errors.Is(err, ErrNetworkStopped):
		return snmetrics.OutcomeStopped
	default:
		return snmetrics.OutcomeCanceled
	}
}

// SendMessage dials p and then makes a single attempt to deliver msg,
// with a timeout derived from the message size by [SendTimeout].
func (n *Network) SendMessage(ctx context.Context, p peer.ID, msg snproto.Message) error {
	if _, err := n.Dial(ctx, p, n.dialTimeout); err != nil {
		return err
	}

	return n.SendMessageWithRetry(ctx, p, snevent.NoConnection, msg, RetryConfig{
		MaxRetries:     1,
		OverallTimeout: SendTimeout(msg.EncodedLen()),
		Backoff:        DefaultSendErrorBackoff,
	})
}
