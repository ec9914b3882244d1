package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/domain/errs"
)

// DenyCodeHeader carries the gate rule code on policy denials.
const DenyCodeHeader = "X-Deny-Code"

// toConnectError maps domain errors to connect codes. Policy denials keep
// their user-facing reason as the message.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	var pe *errs.PolicyError
	switch {
	case errors.As(err, &pe):
		out := connect.NewError(connect.CodeFailedPrecondition, errors.New(pe.Error()))
		out.Meta().Set(DenyCodeHeader, pe.Code)
		return out
	case errors.Is(err, errs.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errs.ErrInvalidState):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, errs.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, errs.ErrPermissionDenied):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, errs.ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	zlog.Error().Msgf("Unhandled error: %+v", err)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

// DenyCode returns the gate rule code of a policy denial received by a client, or "".
func DenyCode(err error) string {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Meta().Get(DenyCodeHeader)
	}
	return ""
}

func invalidArgument(msg string) error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}

func unavailable(msg string) error {
	return connect.NewError(connect.CodeUnavailable, errors.New(msg))
}
