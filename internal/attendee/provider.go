// Package attendee resolves attendees to their breakout group.
//
// A Provider answers FindUser for one backend. Chain composes a primary
// backend (the remote store or the SQLite mirror) with a fallback (usually
// the static users file) so callers never need to know which one answered.
package attendee

import (
	"context"
	"errors"
	"strings"

	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

// ErrNotFound is returned when no attendee matches the identifier. It is an
// ordinary outcome, not a backend failure.
var ErrNotFound = errors.New("attendee not found")

// Provider looks up attendees by email or Pega ID.
type Provider interface {
	FindUser(ctx context.Context, identifier string) (model.User, error)
	Name() string
}

// Chain tries Primary once and, on any error other than ErrNotFound, tries
// Fallback once. Either side may be nil.
type Chain struct {
	Primary  Provider
	Fallback Provider
}

// NewChain tries providers in order: each one is consulted only when every
// provider before it failed with an error other than ErrNotFound. nil
// providers are skipped.
func NewChain(providers ...Provider) *Chain {
	var ps []Provider
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	switch len(ps) {
	case 0:
		return &Chain{}
	case 1:
		return &Chain{Primary: ps[0]}
	}
	return &Chain{Primary: ps[0], Fallback: NewChain(ps[1:]...)}
}

func (c *Chain) Name() string {
	var names []string
	if c.Primary != nil {
		names = append(names, c.Primary.Name())
	}
	if c.Fallback != nil {
		names = append(names, c.Fallback.Name())
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

func (c *Chain) FindUser(ctx context.Context, identifier string) (model.User, error) {
	u, _, err := c.Lookup(ctx, identifier)
	return u, err
}

// Lookup is FindUser that also reports the name of the provider that
// produced the answer.
func (c *Chain) Lookup(ctx context.Context, identifier string) (model.User, string, error) {
	if strings.TrimSpace(identifier) == "" {
		return model.User{}, "", ErrNotFound
	}

	var primaryErr error
	if c.Primary != nil {
		u, err := c.Primary.FindUser(ctx, identifier)
		switch {
		case err == nil:
			return u, c.Primary.Name(), nil
		case errors.Is(err, ErrNotFound):
			return model.User{}, c.Primary.Name(), ErrNotFound
		}
		primaryErr = err
		appLog.Error("attendee primary lookup failed; using fallback", err,
			"primary", c.Primary.Name(),
		)
	}

	if c.Fallback == nil {
		if primaryErr != nil {
			return model.User{}, "", primaryErr
		}
		return model.User{}, "", errors.New("no attendee provider configured")
	}

	if next, ok := c.Fallback.(*Chain); ok {
		return next.Lookup(ctx, identifier)
	}
	u, err := c.Fallback.FindUser(ctx, identifier)
	if err != nil {
		return model.User{}, c.Fallback.Name(), err
	}
	return u, c.Fallback.Name(), nil
}
