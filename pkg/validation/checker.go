// Package validation holds the input checks shared across packages: a
// fluent multi-error checker for configuration values and a friendly
// formatter for validator tag failures.
package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Checker accumulates problems instead of stopping at the first one, so a
// single run reports everything wrong with a configuration. Methods chain;
// Err joins whatever was found.
type Checker struct {
	name     string
	problems []error
}

// NewChecker returns an empty checker. name prefixes every reported
// problem, typically the name of the struct under inspection.
func NewChecker(name string) *Checker {
	return &Checker{name: name}
}

// Require flags an empty string value.
func (c *Checker) Require(field, value string) *Checker {
	if value == "" {
		c.add(field, errors.New("required value is empty"))
	}
	return c
}

// PositiveDuration flags a zero or negative duration.
func (c *Checker) PositiveDuration(field string, d time.Duration) *Checker {
	if d <= 0 {
		c.add(field, fmt.Errorf("duration %v is not positive", d))
	}
	return c
}

// MaxDuration flags a duration above max.
func (c *Checker) MaxDuration(field string, d, max time.Duration) *Checker {
	if d > max {
		c.add(field, fmt.Errorf("duration %v exceeds maximum %v", d, max))
	}
	return c
}

// When runs checks only if cond holds, keeping conditional sections of a
// configuration out of the report when they are switched off.
func (c *Checker) When(cond bool, checks func(*Checker)) *Checker {
	if cond {
		checks(c)
	}
	return c
}

// Problems returns every problem found so far.
func (c *Checker) Problems() []error {
	return c.problems
}

// Err joins all problems into a single error, or returns nil when every
// check passed.
func (c *Checker) Err() error {
	return errors.Join(c.problems...)
}

func (c *Checker) add(field string, err error) {
	c.problems = append(c.problems, fmt.Errorf("%s.%s: %w", c.name, field, err))
}

// FormatTagError rewrites a validator/v10 tag failure into a plain message
// naming the offending field and its constraint. Errors that did not come
// from the validator pass through unchanged.
func FormatTagError(err error) error {
	if err == nil {
		return nil
	}
	var tagErrs validator.ValidationErrors
	if !errors.As(err, &tagErrs) || len(tagErrs) == 0 {
		return err
	}

	e := tagErrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: value is required", e.Field())
	case "oneof":
		return fmt.Errorf("%s: must be one of %s", e.Field(), e.Param())
	case "gte":
		return fmt.Errorf("%s: must be at least %s", e.Field(), e.Param())
	case "lte":
		return fmt.Errorf("%s: must not exceed %s", e.Field(), e.Param())
	case "hostname_port":
		return fmt.Errorf("%s: must be a host:port address", e.Field())
	default:
		return fmt.Errorf("%s: failed %s check", e.Field(), e.Tag())
	}
}
