package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// TimeoutError reports that a named operation exceeded its time budget.
// It unwraps to context.DeadlineExceeded so existing errors.Is checks
// keep working.
type TimeoutError struct {
	// Operation is a short human-readable name for what timed out,
	// e.g. "xtream authentication" or "epg download".
	Operation string

	// Budget is the timeout that was in effect.
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Budget)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// StatusError reports a non-success HTTP status from an upstream server.
// It carries the status code so callers can classify without parsing text.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// WithTimeout runs fn under a child context bounded by the given budget.
// If the budget expires, the returned error is a *TimeoutError naming the
// operation; other errors from fn pass through unchanged.
//
// Timeout tiers are policy, not per-call-site tuning: pass TimeoutShort for
// authentication-class probes, TimeoutDefault for ordinary API calls, and
// TimeoutExtended for whole-EPG downloads.
func WithTimeout(ctx context.Context, operation string, budget time.Duration, fn func(ctx context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	err := fn(tctx)
	if err == nil {
		return nil
	}

	// Only attribute the timeout to our budget if the child deadline fired;
	// a parent cancellation or deadline belongs to the caller.
	if errors.Is(err, context.DeadlineExceeded) && tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return &TimeoutError{Operation: operation, Budget: budget}
	}
	return err
}

// Category classifies a transport failure so callers can branch on the
// kind of failure instead of inspecting error strings.
type Category string

const (
	CategoryNetwork Category = "network"
	CategoryServer  Category = "server"
	CategoryAuth    Category = "auth"
	CategoryTimeout Category = "timeout"
	CategoryUnknown Category = "unknown"
)

// Classify maps a transport error to its Category. Classification happens
// here, once, so every caller gets consistent behaviour:
//   - timeout budgets and context deadlines -> CategoryTimeout
//   - open circuit, dial/DNS/reset failures, truncated bodies -> CategoryNetwork
//   - StatusError -> ClassifyStatus of its code
//   - anything else -> CategoryUnknown
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var te *TimeoutError
	if errors.As(err, &te) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrRequestTimeout) {
		return CategoryTimeout
	}

	if errors.Is(err, ErrCircuitOpen) {
		return CategoryNetwork
	}

	var se *StatusError
	if errors.As(err, &se) {
		return ClassifyStatus(se.StatusCode)
	}

	// net.Error covers *net.OpError, *net.DNSError and *url.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	// Raw errno values that escape the net wrappers.
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return CategoryNetwork
	}

	// A connection dropped mid-body surfaces as an unexpected EOF.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return CategoryNetwork
	}

	return CategoryUnknown
}

// ClassifyStatus maps an HTTP status code to a Category: 401/403 are auth
// failures, any other 4xx/5xx is a server error, everything else is unknown.
func ClassifyStatus(code int) Category {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return CategoryAuth
	case code >= 400:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// CategoryOf is a convenience that classifies the error from a completed
// request together with its response status. A nil error with a non-success
// status classifies the status; a nil error with a success status returns
// CategoryUnknown.
func CategoryOf(resp *http.Response, err error) Category {
	if err != nil {
		return Classify(err)
	}
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return ClassifyStatus(resp.StatusCode)
	}
	return CategoryUnknown
}
