// Package policy decides the column limit that applies to a line.
package policy

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultLimit is the limit used whenever nothing else resolves.
const DefaultLimit = 80

var (
	// ErrInvalidLimit is returned for limits that are not positive integers.
	ErrInvalidLimit = errors.New("column limit must be a positive integer")

	// ErrPolicyResolution wraps failures of a custom resolver. It is only
	// ever logged; Resolve falls back to DefaultLimit.
	ErrPolicyResolution = errors.New("column limit resolution failed")
)

// LineContext describes the line a limit is being resolved for.
type LineContext struct {
	Line         int // 1-based line number
	LineStart    int // byte offset of the line start
	LineEnd      int // byte offset of the line end, excluding the terminator
	DocumentName string
	Language     string // detected language name, empty when unknown
}

// ResolverFunc computes the limit for a line. Returning an error, a
// non-positive limit or panicking makes the policy fall back to DefaultLimit.
type ResolverFunc func(ctx LineContext) (int, error)

// Policy resolves per-line column limits. The zero value resolves to
// DefaultLimit for every line.
type Policy struct {
	// Limit is the configured fixed limit.
	Limit int
	// FallbackWidth is used when Limit is not set.
	FallbackWidth int
	// Resolver, when set, overrides Limit and FallbackWidth.
	Resolver ResolverFunc

	logger *zap.Logger
}

// Fixed returns a policy with a fixed limit.
func Fixed(limit int) Policy {
	return Policy{Limit: limit}
}

// WithLogger returns a copy of p that reports resolver failures to logger.
func (p Policy) WithLogger(logger *zap.Logger) Policy {
	p.logger = logger
	return p
}

// WithLimit returns a copy of p with a new fixed limit.
func (p Policy) WithLimit(limit int) Policy {
	p.Limit = limit
	return p
}

// Resolve returns the limit for the line described by ctx. It never fails:
// a resolver error or panic yields DefaultLimit.
func (p Policy) Resolve(ctx LineContext) int {
	if p.Resolver != nil {
		limit, err := p.callResolver(ctx)
		if err != nil {
			if p.logger != nil {
				p.logger.Debug("column limit resolver failed, using default",
					zap.Int("line", ctx.Line),
					zap.String("document", ctx.DocumentName),
					zap.Error(err))
			}
			return DefaultLimit
		}
		return limit
	}
	if p.Limit > 0 {
		return p.Limit
	}
	if p.FallbackWidth > 0 {
		return p.FallbackWidth
	}
	return DefaultLimit
}

func (p Policy) callResolver(ctx LineContext) (limit int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: resolver panicked: %v", ErrPolicyResolution, r)
		}
	}()

	limit, err = p.Resolver(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPolicyResolution, err)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("%w: resolver returned %d", ErrPolicyResolution, limit)
	}
	return limit, nil
}

// ValidateLimit rejects limits that are not positive.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}
