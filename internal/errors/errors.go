// Package errors wraps the standard errors package with a builder that
// attaches a component, a category and free-form context to an error.
// Built errors are handed to an optional reporter (Sentry in production).
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
)

// ErrorCategory classifies an error for reporting and HTTP mapping.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryNetwork       ErrorCategory = "network"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryDatabase      ErrorCategory = "database"
	CategoryAudio         ErrorCategory = "audio"
	CategoryNotification  ErrorCategory = "notification"
	CategoryMQTT          ErrorCategory = "mqtt"
	CategorySystem        ErrorCategory = "system"
	CategoryGeneric       ErrorCategory = "generic"
)

// EnhancedError carries the wrapped error plus reporting metadata.
type EnhancedError struct {
	Err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

func (e *EnhancedError) Error() string { return e.Err.Error() }
func (e *EnhancedError) Unwrap() error { return e.Err }

// Component returns the component that produced the error.
func (e *EnhancedError) Component() string { return e.component }

// Category returns the error category.
func (e *EnhancedError) Category() ErrorCategory { return e.category }

// Context returns a copy of the attached context.
func (e *EnhancedError) Context() map[string]any {
	return maps.Clone(e.context)
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err *EnhancedError
}

// New starts a builder around an existing error.
func New(err error) *ErrorBuilder {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return &ErrorBuilder{err: &EnhancedError{Err: err, category: CategoryGeneric}}
}

// Newf starts a builder around a formatted message. %w verbs wrap as usual.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// NewStd creates a plain error, for sentinel declarations.
func NewStd(text string) error {
	return stderrors.New(text)
}

func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.err.component = name
	return b
}

func (b *ErrorBuilder) Category(c ErrorCategory) *ErrorBuilder {
	b.err.category = c
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.err.context == nil {
		b.err.context = make(map[string]any)
	}
	b.err.context[key] = value
	return b
}

// Build finalizes the error and passes it to the registered reporter.
// Validation and not-found errors are never reported.
func (b *ErrorBuilder) Build() error {
	report(b.err)
	return b.err
}

// Reporter receives every built error worth reporting.
type Reporter func(*EnhancedError)

var (
	reporterMu sync.RWMutex
	reporter   Reporter
)

// SetReporter installs the reporter. Passing nil disables reporting.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func report(e *EnhancedError) {
	switch e.category {
	case CategoryValidation, CategoryNotFound:
		return
	}
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil {
		r(e)
	}
}

// CategoryOf returns the category of the first EnhancedError in the chain,
// or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.category
	}
	return CategoryGeneric
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap returns the result of calling Unwrap on err.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }
