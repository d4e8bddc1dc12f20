package infra

import (
	"errors"

	"bookhub-loans/internal/pkg/errs"
)

type ErrorKind string

// Error kinds shared by repositories and remote port clients.
const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindDBFailure    ErrorKind = "DB_FAILURE"
	KindDuplicateKey ErrorKind = "DUPLICATE_KEY"
	KindConflict     ErrorKind = "CONFLICT"
	KindTimeout      ErrorKind = "TIMEOUT"
	KindUnavailable  ErrorKind = "UNAVAILABLE"
)

type InfraError struct {
	Kind ErrorKind
	msg  string
	err  error // wrapped low-level error
}

func (e InfraError) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.msg + ": " + e.err.Error()
	}
	return string(e.Kind) + ": " + e.msg
}

func (e InfraError) Unwrap() error {
	return e.err
}

// WrapErr tags err with a kind so the usecase layer can branch on it
// without depending on driver error types. Defaults to KindDBFailure.
func WrapErr(msg string, err error, kinds ...ErrorKind) error {
	kind := KindDBFailure
	if len(kinds) > 0 {
		kind = kinds[0]
	}

	if err != nil {
		err = errs.Wrap(err, msg)
	}

	return InfraError{Kind: kind, msg: msg, err: err}
}

func IsKind(err error, kind ErrorKind) bool {
	var e InfraError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
