// Package fallback runs an ordered list of providers and falls back to a
// named backup value when all of them fail. Which step produced the result
// is part of the returned Outcome instead of being hidden behind a recover
// or an ignored error.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SourceBackup is the Outcome source when the backup value was used
const SourceBackup = "backup"

// ErrAllProvidersFailed is returned when no provider succeeded and the chain
// has no backup
var ErrAllProvidersFailed = errors.New("all providers failed")

// ErrEmptyResult can be returned by a provider whose call succeeded but
// produced nothing usable, so the chain moves on
var ErrEmptyResult = errors.New("empty result")

// Provider is one step of a chain
type Provider[T any] struct {
	Name string
	Fn   func(ctx context.Context) (T, error)
}

// Attempt records one failed provider call
type Attempt struct {
	Provider string `json:"provider"`
	Err      string `json:"error"`
}

// Outcome is the result of running a chain
type Outcome[T any] struct {
	Value    T
	Source   string
	Attempts []Attempt
}

// UsedBackup reports whether the backup value was returned
func (o Outcome[T]) UsedBackup() bool {
	return o.Source == SourceBackup
}

// Degraded reports whether any provider failed before the result was produced
func (o Outcome[T]) Degraded() bool {
	return len(o.Attempts) > 0
}

// Chain tries providers in order
type Chain[T any] struct {
	providers []Provider[T]
	backup    *T
	onFailure func(provider string, err error)
}

// New creates a chain over the given providers
func New[T any](providers ...Provider[T]) *Chain[T] {
	return &Chain[T]{providers: providers}
}

// Then appends a provider
func (c *Chain[T]) Then(name string, fn func(ctx context.Context) (T, error)) *Chain[T] {
	c.providers = append(c.providers, Provider[T]{Name: name, Fn: fn})
	return c
}

// WithBackup sets the value returned when every provider fails
func (c *Chain[T]) WithBackup(value T) *Chain[T] {
	c.backup = &value
	return c
}

// OnFailure registers a hook called for each failed provider
func (c *Chain[T]) OnFailure(fn func(provider string, err error)) *Chain[T] {
	c.onFailure = fn
	return c
}

// Run executes the chain. A cancelled context stops the chain and is
// returned as an error even when a backup is set.
func (c *Chain[T]) Run(ctx context.Context) (Outcome[T], error) {
	var out Outcome[T]

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		value, err := p.Fn(ctx)
		if err == nil {
			out.Value = value
			out.Source = p.Name
			return out, nil
		}

		out.Attempts = append(out.Attempts, Attempt{Provider: p.Name, Err: err.Error()})
		if c.onFailure != nil {
			c.onFailure(p.Name, err)
		}
	}

	if c.backup != nil {
		out.Value = *c.backup
		out.Source = SourceBackup
		return out, nil
	}

	return out, fmt.Errorf("%w: %s", ErrAllProvidersFailed, summarize(out.Attempts))
}

func summarize(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no providers configured"
	}
	parts := make([]string, len(attempts))
	for i, a := range attempts {
		parts[i] = a.Provider + ": " + a.Err
	}
	return strings.Join(parts, "; ")
}
