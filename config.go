package swapnet

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gordian-engine/swapnet/internal/sntrace"
	"github.com/gordian-engine/swapnet/snmetrics"
)

const (
	DefaultQueueCapacity      = 1024
	DefaultPingTimeout        = 30 * time.Second
	DefaultProviderBufferSize = 16
	DefaultSendErrorBackoff   = 100 * time.Millisecond
)

// NetworkConfig is the configuration for a [Network].
// Zero values are replaced with the documented defaults.
type NetworkConfig struct {
	// Maximum number of requests waiting for the driver.
	// Defaults to DefaultQueueCapacity.
	QueueCapacity int

	// Timeout for dials performed implicitly by
	// [*Network.NewMessageSender] and [*Network.SendMessage].
	// Defaults to ConnectTimeout.
	DialTimeout time.Duration

	// Defaults to DefaultPingTimeout.
	PingTimeout time.Duration

	// Buffer size of the stream returned from [*Network.FindProviders].
	// Defaults to DefaultProviderBufferSize.
	ProviderBufferSize int

	// Source of time for every timeout and backoff.
	// Defaults to the wall clock.
	Clock clock.Clock

	// Defaults to a no-op provider.
	TracerProvider sntrace.TracerProvider

	// Optional.
	Metrics *snmetrics.Metrics
}

// validate panics if there are any illegal settings in the configuration.
func (c NetworkConfig) validate() {
	// Collect every problem so a single panic reports all of them.
	var panicErrs error

	if c.QueueCapacity < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"NetworkConfig.QueueCapacity must not be negative (got %d)", c.QueueCapacity,
		))
	}
	if c.DialTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"NetworkConfig.DialTimeout must not be negative (got %s)", c.DialTimeout,
		))
	}
	if c.PingTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"NetworkConfig.PingTimeout must not be negative (got %s)", c.PingTimeout,
		))
	}
	if c.ProviderBufferSize < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"NetworkConfig.ProviderBufferSize must not be negative (got %d)", c.ProviderBufferSize,
		))
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

func (c NetworkConfig) withDefaults() NetworkConfig {
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = ConnectTimeout
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.ProviderBufferSize == 0 {
		c.ProviderBufferSize = DefaultProviderBufferSize
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.TracerProvider == nil {
		c.TracerProvider = sntrace.NopTracerProvider()
	}
	return c
}

// MessageSenderConfig controls how a [MessageSender] retries.
type MessageSenderConfig struct {
	// Number of attempts per message, at least 1.
	MaxRetries int

	// Overall time allowed for one message, across all attempts.
	SendTimeout time.Duration

	// Delay between a failed attempt and the next one.
	SendErrorBackoff time.Duration
}

// DefaultMessageSenderConfig returns the configuration used
// when a caller has no per-destination override.
func DefaultMessageSenderConfig() MessageSenderConfig {
	return MessageSenderConfig{
		MaxRetries:       3,
		SendTimeout:      MaxSendTimeout,
		SendErrorBackoff: DefaultSendErrorBackoff,
	}
}

// Validate reports every illegal setting in c.
func (c MessageSenderConfig) Validate() error {
	return c.RetryConfig().Validate()
}

// RetryConfig converts c to the form accepted by [*Network.SendMessageWithRetry].
func (c MessageSenderConfig) RetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     c.MaxRetries,
		OverallTimeout: c.SendTimeout,
		Backoff:        c.SendErrorBackoff,
	}
}

// RetryConfig is the per-call configuration of [*Network.SendMessageWithRetry].
type RetryConfig struct {
	MaxRetries     int
	OverallTimeout time.Duration
	Backoff        time.Duration
}

// Validate reports every illegal setting in c.
func (c RetryConfig) Validate() error {
	var err error
	if c.MaxRetries < 1 {
		err = errors.Join(err, fmt.Errorf("max retries must be at least 1 (got %d)", c.MaxRetries))
	}
	if c.OverallTimeout <= 0 {
		err = errors.Join(err, fmt.Errorf("overall timeout must be positive (got %s)", c.OverallTimeout))
	}
	if c.Backoff < 0 {
		err = errors.Join(err, fmt.Errorf("backoff must not be negative (got %s)", c.Backoff))
	}
	return err
}
