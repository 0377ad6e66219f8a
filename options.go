// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import "time"

// Tunable constants (spec §6), overridable via Option.
const (
	// DefaultReadBufSize is the chunk size per AsyncReader fill.
	DefaultReadBufSize = 64 * 1024
	// DefaultMaxWriteBufSize is the coalescing threshold for AsyncBufWriter.
	DefaultMaxWriteBufSize = 64 * 1024
	// DefaultConnTimeout is the fallback per-operation deadline when none
	// is configured on a Conn.
	DefaultConnTimeout = 30 * time.Second
	// DefaultPollEventBatch is the number of OS readiness events fetched
	// per Poller.Poll call.
	DefaultPollEventBatch = 256
)

// executorOptions holds configuration resolved at Executor construction.
type executorOptions struct {
	readBufSize      int
	maxWriteBufSize  int
	defaultConnTimeout time.Duration
	pollEventBatch   int
	logger           Logger
}

// Option configures an Executor at construction time.
type Option interface {
	applyExecutor(*executorOptions) error
}

type optionFunc func(*executorOptions) error

func (f optionFunc) applyExecutor(o *executorOptions) error { return f(o) }

// WithReadBufSize overrides DefaultReadBufSize.
func WithReadBufSize(n int) Option {
	return optionFunc(func(o *executorOptions) error {
		o.readBufSize = n
		return nil
	})
}

// WithMaxWriteBufSize overrides DefaultMaxWriteBufSize.
func WithMaxWriteBufSize(n int) Option {
	return optionFunc(func(o *executorOptions) error {
		o.maxWriteBufSize = n
		return nil
	})
}

// WithDefaultConnTimeout overrides DefaultConnTimeout.
func WithDefaultConnTimeout(d time.Duration) Option {
	return optionFunc(func(o *executorOptions) error {
		o.defaultConnTimeout = d
		return nil
	})
}

// WithPollEventBatch overrides DefaultPollEventBatch.
func WithPollEventBatch(n int) Option {
	return optionFunc(func(o *executorOptions) error {
		o.pollEventBatch = n
		return nil
	})
}

// WithLogger installs a structured Logger on the Executor, overriding the
// package-level default for that instance only.
func WithLogger(logger Logger) Option {
	return optionFunc(func(o *executorOptions) error {
		o.logger = logger
		return nil
	})
}

func resolveExecutorOptions(opts []Option) (*executorOptions, error) {
	cfg := &executorOptions{
		readBufSize:        DefaultReadBufSize,
		maxWriteBufSize:    DefaultMaxWriteBufSize,
		defaultConnTimeout: DefaultConnTimeout,
		pollEventBatch:     DefaultPollEventBatch,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyExecutor(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = getGlobalLogger()
	}
	return cfg, nil
}
