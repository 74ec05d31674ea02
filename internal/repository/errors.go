package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/guidarr/guidarr/internal/ingestor"
	"github.com/guidarr/guidarr/internal/kvstore"
	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/pkg/httpclient"
)

// ErrNoCache is returned by guide reads when no snapshot exists yet,
// neither in memory nor in the persisted store.
var ErrNoCache = errors.New("no cached guide available")

// Kind is the repository's failure taxonomy. Callers branch on kinds,
// never on error text: HTTP handlers map kinds to status codes, the
// scheduler decides retry behaviour from them.
type Kind string

const (
	// KindParse marks a guide document that could not be parsed at all.
	KindParse Kind = "parse"
	// KindNotFound marks a read with no cached snapshot to serve, or a
	// missing source.
	KindNotFound Kind = "not_found"
	// KindNetwork marks transport failures: DNS, dial, reset, open circuit.
	KindNetwork Kind = "network"
	// KindServer marks an upstream that answered with a failure status.
	KindServer Kind = "server"
	// KindAuth marks rejected credentials, either as an HTTP 401/403 or as
	// a portal auth probe that came back negative.
	KindAuth Kind = "auth"
	// KindTimeout marks an operation that exceeded its time budget.
	KindTimeout Kind = "timeout"
	// KindUnknown is the catch-all for everything else.
	KindUnknown Kind = "unknown"
)

// Error is the repository's boundary error: every failure leaving a
// repository method is wrapped in one, carrying the classified kind and
// the operation that failed. The underlying cause stays reachable
// through errors.Is/As.
type Error struct {
	// Kind is the classified failure kind.
	Kind Kind

	// Op names the repository operation that failed, e.g. "refreshing guide".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps an error to its Kind. A *repository.Error short-circuits
// to its pinned kind; otherwise the cause chain decides:
//   - no-cache, missing-source and record-not-found sentinels -> KindNotFound
//   - rejected portal credentials -> KindAuth
//   - transport failures, via httpclient categories -> network, server,
//     auth or timeout
//   - an unparseable guide document -> KindParse
//   - anything else -> KindUnknown
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}

	if errors.Is(err, ErrNoCache) ||
		errors.Is(err, models.ErrSourceNotFound) ||
		errors.Is(err, kvstore.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}

	if errors.Is(err, ingestor.ErrAuthRejected) {
		return KindAuth
	}

	// Caller cancellation is not a failure of the guide pipeline; keep it
	// out of the parse bucket even when it surfaced mid-parse.
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	switch httpclient.Classify(err) {
	case httpclient.CategoryTimeout:
		return KindTimeout
	case httpclient.CategoryNetwork:
		return KindNetwork
	case httpclient.CategoryServer:
		return KindServer
	case httpclient.CategoryAuth:
		return KindAuth
	}

	var me *ingestor.MalformedGuideError
	if errors.As(err, &me) {
		return KindParse
	}

	return KindUnknown
}

// wrap builds the boundary error for op, classifying err. A nil err
// returns nil so call sites can wrap unconditionally.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// wrapKind builds the boundary error for op with an explicit kind,
// overriding classification.
func wrapKind(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
