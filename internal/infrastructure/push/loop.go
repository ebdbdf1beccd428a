package push

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ReconnectConfig holds reconnection strategy parameters.
type ReconnectConfig struct {
	// InitialInterval is the first retry delay (default: 1s)
	InitialInterval time.Duration

	// MaxInterval is the maximum retry delay (default: 60s)
	MaxInterval time.Duration

	// MaxElapsedTime is the total time to keep retrying. 0 means never stop (default: 0)
	MaxElapsedTime time.Duration

	// Multiplier grows the delay between attempts (default: 2.0)
	Multiplier float64

	// RandomizationFactor jitters the delay (default: 0.1)
	RandomizationFactor float64

	// OnConnected is called after each successful connect.
	OnConnected func()

	// OnDisconnected is called when a connection ends, with its error.
	OnDisconnected func(err error)

	// OnReconnecting is called before each retry with the attempt number
	// and the upcoming delay.
	OnReconnecting func(attempt uint64, delay time.Duration)
}

// DefaultReconnectConfig returns the default reconnection configuration.
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		InitialInterval:     1 * time.Second,
		MaxInterval:         60 * time.Second,
		MaxElapsedTime:      0,
		Multiplier:          2.0,
		RandomizationFactor: 0.1,
	}
}

// Run connects once and processes events until the connection drops or the
// context is canceled.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := l.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect push channel: %w", err)
	}
	defer conn.Close()

	return conn.Run(ctx)
}

// RunWithReconnect keeps the push channel alive with exponential backoff.
// It blocks until the context is canceled.
func (l *Listener) RunWithReconnect(ctx context.Context, config *ReconnectConfig) error {
	if config == nil {
		config = DefaultReconnectConfig()
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = config.InitialInterval
	expBackoff.MaxInterval = config.MaxInterval
	expBackoff.Multiplier = config.Multiplier
	expBackoff.RandomizationFactor = config.RandomizationFactor
	expBackoff.Reset()

	var attempt uint64
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		attempt++

		err := l.runOnce(ctx, config)

		if config.OnDisconnected != nil {
			config.OnDisconnected(err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if config.MaxElapsedTime > 0 && time.Since(startTime) >= config.MaxElapsedTime {
			return fmt.Errorf("reconnection failed after %v: %w", config.MaxElapsedTime, err)
		}

		delay := expBackoff.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("reconnection failed: %w", err)
		}

		if config.OnReconnecting != nil {
			config.OnReconnecting(attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Listener) runOnce(ctx context.Context, config *ReconnectConfig) error {
	conn, err := l.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect push channel: %w", err)
	}
	defer conn.Close()

	if config.OnConnected != nil {
		config.OnConnected()
	}

	return conn.Run(ctx)
}
