package store

import (
	"context"
	"errors"
	"fmt"

	apierrors "parkingapp/internal/errors"
)

// Rejection messages recorded by Dispatch
const (
	MsgCancelled  = "request cancelled"
	MsgUnexpected = "Something went wrong. Please try again."
)

// Dispatch runs op as one async operation against s: pending first, then
// fulfilled with merge(current, result) or rejected with the error's
// user-facing message. The loading flag is cleared on every path, including
// a panic in op, which is returned as an error.
//
// If ctx is done by the time op returns, the result is discarded and the
// slice is rejected with MsgCancelled, so an abandoned request never
// overwrites newer state.
func Dispatch[T, R any](ctx context.Context, s *Slice[T], op func(context.Context) (R, error), merge func(T, R) T) (result R, err error) {
	s.Pending()

	defer func() {
		if rec := recover(); rec != nil {
			var zero R
			result = zero
			err = fmt.Errorf("%s operation panicked: %v", s.Name(), rec)
			s.Rejected(MsgUnexpected)
		}
	}()

	res, opErr := op(ctx)

	if ctxErr := ctx.Err(); ctxErr != nil {
		s.Rejected(MsgCancelled)
		var zero R
		return zero, apierrors.NewCancelledError(ctxErr)
	}

	if opErr != nil {
		s.Rejected(UserMessage(opErr))
		return res, opErr
	}

	if merge == nil {
		s.Fulfilled(nil)
	} else {
		s.Fulfilled(func(cur T) T { return merge(cur, res) })
	}
	return res, nil
}

// UserMessage returns the message that may be shown for err. AppErrors carry
// a user-safe message; anything else is reported generically.
func UserMessage(err error) string {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return MsgUnexpected
}
