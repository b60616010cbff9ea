package errors

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies a failure independently of its message text. Boundaries
// pick a transport status from the kind alone.
type Kind string

const (
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindInvalidOperation Kind = "INVALID_OPERATION"
	KindNotFound         Kind = "NOT_FOUND"
	KindAlreadyExists    Kind = "ALREADY_EXISTS"
	KindQuotaExceeded    Kind = "QUOTA_EXCEEDED"
	KindTransient        Kind = "TRANSIENT"
	KindInternal         Kind = "INTERNAL"
)

// Error is a tagged application error. Message is safe to show to callers;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with a message also
// has to carry the same message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// ErrQuotaExceeded is returned when the swiper has used up the day's allowance.
var ErrQuotaExceeded = &Error{Kind: KindQuotaExceeded, Message: "Daily swipe limit reached"}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func InvalidInput(msg string) error     { return New(KindInvalidInput, msg) }
func InvalidOperation(msg string) error { return New(KindInvalidOperation, msg) }
func NotFound(msg string) error         { return New(KindNotFound, msg) }
func AlreadyExists(msg string) error    { return New(KindAlreadyExists, msg) }

// KindOf reports the kind of err. Untagged errors are classified from the
// infrastructure error they wrap; anything unrecognised is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindAlreadyExists
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn), isRetryableDB(err):
		return KindTransient
	}
	return KindInternal
}

// IsTransient reports whether retrying the whole operation may succeed.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// isRetryableDB detects serialization failures, deadlocks and lock timeouts.
func isRetryableDB(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213:
			return true
		}
	}
	return false
}
